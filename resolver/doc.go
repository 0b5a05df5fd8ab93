package resolver

import (
	"encoding/hex"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"
)

// DIDDocument is the resolved document model the engine works against.
// Relationship lists hold verification method references, either a full
// "did#fragment" id or a bare "#fragment".
type DIDDocument struct {
	Context              []string             `json:"@context,omitempty"`
	ID                   string               `json:"id"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []string             `json:"authentication,omitempty"`
	AssertionMethod      []string             `json:"assertionMethod,omitempty"`
	CapabilityDelegation []string             `json:"capabilityDelegation,omitempty"`
	Service              []Service            `json:"service,omitempty"`
}

// VerificationMethod is a DID document verification method entry. Key
// material may appear multibase, base58 or hex encoded.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58    string `json:"publicKeyBase58,omitempty"`
	PublicKeyHex       string `json:"publicKeyHex,omitempty"`
}

// Service describes a standard DID document service entry.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// ed25519Multicodec is the varint multicodec prefix for Ed25519 public keys.
var ed25519Multicodec = []byte{0xed, 0x01}

// KeyBytes decodes the verification method's public key material. The first
// populated encoding wins; a method with no key material is an error so
// dependent operations fail closed instead of proceeding with a partial key.
func (vm *VerificationMethod) KeyBytes() ([]byte, error) {
	switch {
	case vm.PublicKeyMultibase != "":
		_, decoded, err := multibase.Decode(vm.PublicKeyMultibase)
		if err != nil {
			return nil, errors.WithMessagef(err,
				"decode publicKeyMultibase of %s", vm.ID)
		}
		// did:key style material carries the multicodec prefix
		if len(decoded) == 34 &&
			decoded[0] == ed25519Multicodec[0] &&
			decoded[1] == ed25519Multicodec[1] {
			decoded = decoded[2:]
		}
		return decoded, nil
	case vm.PublicKeyBase58 != "":
		decoded, err := base58.Decode(vm.PublicKeyBase58)
		if err != nil {
			return nil, errors.WithMessagef(err,
				"decode publicKeyBase58 of %s", vm.ID)
		}
		return decoded, nil
	case vm.PublicKeyHex != "":
		decoded, err := hex.DecodeString(vm.PublicKeyHex)
		if err != nil {
			return nil, errors.WithMessagef(err,
				"decode publicKeyHex of %s", vm.ID)
		}
		return decoded, nil
	}
	return nil, errors.Errorf("verification method %s has no key material",
		vm.ID)
}

// VerificationMethodByID finds a verification method by full id or by
// fragment.
func (d *DIDDocument) VerificationMethodByID(id string) (*VerificationMethod, bool) {
	want := d.expandRef(id)
	for i := range d.VerificationMethod {
		if d.expandRef(d.VerificationMethod[i].ID) == want {
			return &d.VerificationMethod[i], true
		}
	}
	return nil, false
}

// AllowsAssertion reports whether the given verification method id is listed
// under assertionMethod.
func (d *DIDDocument) AllowsAssertion(id string) bool {
	return d.listsRef(d.AssertionMethod, id)
}

// AllowsDelegation reports whether the given verification method id is
// listed under capabilityDelegation.
func (d *DIDDocument) AllowsDelegation(id string) bool {
	return d.listsRef(d.CapabilityDelegation, id)
}

// DelegatedRefs returns the capabilityDelegation references in full
// "did#fragment" form. References naming another controller's key stay
// untouched.
func (d *DIDDocument) DelegatedRefs() []string {
	out := make([]string, 0, len(d.CapabilityDelegation))
	for _, ref := range d.CapabilityDelegation {
		out = append(out, d.expandRef(ref))
	}
	return out
}

func (d *DIDDocument) listsRef(list []string, id string) bool {
	want := d.expandRef(id)
	for _, ref := range list {
		if d.expandRef(ref) == want {
			return true
		}
	}
	return false
}

func (d *DIDDocument) expandRef(ref string) string {
	if strings.HasPrefix(ref, "#") {
		return d.ID + ref
	}
	return ref
}

// SplitKeyRef separates a "did#fragment" key reference into its DID and
// fragment parts.
func SplitKeyRef(ref string) (did, fragment string, err error) {
	idx := strings.Index(ref, "#")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", errors.Errorf("malformed key reference %q", ref)
	}
	return ref[:idx], ref[idx+1:], nil
}
