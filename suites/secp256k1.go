package suites

import (
	"crypto/sha256"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Secp256k1Suite implements EcdsaSecp256k1Signature2019 over the
// go-ethereum secp256k1 primitives. The canonical bytes are hashed with
// SHA-256 before signing; the recovery byte is stripped so signatures are
// the 64-byte compact [R||S] form.
type Secp256k1Suite struct{}

func (Secp256k1Suite) ID() SuiteID {
	return EcdsaSecp256k1Signature2019
}

// Sign signs canonical bytes with a 32-byte secp256k1 private scalar.
func (Secp256k1Suite) Sign(data, privateKey []byte) ([]byte, error) {
	key, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, errors.WithMessage(err, "parse secp256k1 private key")
	}

	digest := sha256.Sum256(data)

	sig, err := ethcrypto.Sign(digest[:], key)
	if err != nil {
		return nil, errors.WithMessage(err, "secp256k1 sign")
	}

	// drop the recovery id, keep compact [R||S]
	return sig[:64], nil
}

// Verify checks a 64-byte compact signature against a SEC1-encoded public
// key (33-byte compressed or 65-byte uncompressed).
func (Secp256k1Suite) Verify(data, signature, publicKey []byte) error {
	if len(signature) != 64 {
		return errors.Errorf(
			"secp256k1 signature must be 64 bytes, got %d", len(signature))
	}
	if len(publicKey) != 33 && len(publicKey) != 65 {
		return errors.Errorf(
			"secp256k1 public key must be 33 or 65 bytes, got %d",
			len(publicKey))
	}

	digest := sha256.Sum256(data)

	if !ethcrypto.VerifySignature(publicKey, digest[:], signature) {
		return errors.New("secp256k1 signature mismatch")
	}
	return nil
}
