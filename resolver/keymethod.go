package resolver

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"sync"

	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"
)

// KeyMethodHandler is an in-process handler for key-embedding DIDs: the
// document is derived entirely from the identifier, so resolution never
// touches the network. It doubles as the reference MethodHandler
// implementation and as the workhorse for tests.
type KeyMethodHandler struct {
	mu   sync.Mutex
	keys map[string]ed25519.PrivateKey
}

// NewKeyMethodHandler returns a handler for the "key" method.
func NewKeyMethodHandler() *KeyMethodHandler {
	return &KeyMethodHandler{keys: make(map[string]ed25519.PrivateKey)}
}

// Resolve reconstructs the DID document from the multibase-encoded key in
// the identifier.
func (h *KeyMethodHandler) Resolve(_ context.Context, did string) (*DIDDocument, error) {
	encoded, err := keyFromDID(did)
	if err != nil {
		return nil, err
	}

	_, decoded, err := multibase.Decode(encoded)
	if err != nil {
		return nil, errors.WithMessagef(ErrDIDNotFound,
			"%s: bad key encoding", did)
	}
	if len(decoded) != ed25519.PublicKeySize+2 ||
		decoded[0] != ed25519Multicodec[0] ||
		decoded[1] != ed25519Multicodec[1] {
		return nil, errors.WithMessagef(ErrDIDNotFound,
			"%s: not an ed25519 key", did)
	}

	vmID := did + "#" + encoded
	return &DIDDocument{
		Context: []string{
			"https://www.w3.org/ns/did/v1",
			"https://w3id.org/security/suites/ed25519-2020/v1",
		},
		ID: did,
		VerificationMethod: []VerificationMethod{{
			ID:                 vmID,
			Type:               "Ed25519VerificationKey2020",
			Controller:         did,
			PublicKeyMultibase: encoded,
		}},
		Authentication:       []string{vmID},
		AssertionMethod:      []string{vmID},
		CapabilityDelegation: []string{vmID},
	}, nil
}

// Create generates a fresh Ed25519 keypair and derives its DID. The private
// key stays inside the handler; fetch it with PrivateKey when acting as a
// software signer.
func (h *KeyMethodHandler) Create(_ context.Context,
	_ map[string]interface{}) (*DIDDocument, error) {

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.WithMessage(err, "generate ed25519 key")
	}

	prefixed := append(append([]byte{}, ed25519Multicodec...), pub...)
	encoded, err := multibase.Encode(multibase.Base58BTC, prefixed)
	if err != nil {
		return nil, errors.WithMessage(err, "multibase encode public key")
	}

	did := "did:key:" + encoded

	h.mu.Lock()
	h.keys[did] = priv
	h.mu.Unlock()

	return h.Resolve(context.Background(), did)
}

// PrivateKey returns the private key for a DID created through this
// handler.
func (h *KeyMethodHandler) PrivateKey(did string) (ed25519.PrivateKey, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	priv, ok := h.keys[did]
	return priv, ok
}

func keyFromDID(did string) (string, error) {
	const prefix = "did:key:"
	if !strings.HasPrefix(did, prefix) || len(did) == len(prefix) {
		return "", errors.Errorf("malformed key-method did %q", did)
	}
	return did[len(prefix):], nil
}
