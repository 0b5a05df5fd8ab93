package suites

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

// Ed25519Suite implements Ed25519Signature2020 with both sign and verify
// capability.
type Ed25519Suite struct{}

func (Ed25519Suite) ID() SuiteID {
	return Ed25519Signature2020
}

// Sign signs canonical bytes with a 64-byte Ed25519 private key.
func (Ed25519Suite) Sign(data, privateKey []byte) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, errors.Errorf(
			"ed25519 private key must be %d bytes, got %d",
			ed25519.PrivateKeySize, len(privateKey))
	}
	return ed25519.Sign(ed25519.PrivateKey(privateKey), data), nil
}

// Verify checks a raw 64-byte Ed25519 signature against a 32-byte public
// key.
func (Ed25519Suite) Verify(data, signature, publicKey []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return errors.Errorf("ed25519 public key must be %d bytes, got %d",
			ed25519.PublicKeySize, len(publicKey))
	}
	if len(signature) != ed25519.SignatureSize {
		return errors.Errorf("ed25519 signature must be %d bytes, got %d",
			ed25519.SignatureSize, len(signature))
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), data, signature) {
		return errors.New("ed25519 signature mismatch")
	}
	return nil
}
