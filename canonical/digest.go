package canonical

import (
	"crypto/sha256"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// HashAlg selects the hash function used to produce a CanonicalDigest.
type HashAlg string

const (
	// SHA256 is the default digest algorithm.
	SHA256 HashAlg = "sha2-256"
	// Blake2b256 is supported as an alternative for callers anchoring into
	// ecosystems that prefer BLAKE2.
	Blake2b256 HashAlg = "blake2b-256"
)

// ErrUnknownHashAlg is returned for an algorithm with no registered hasher.
var ErrUnknownHashAlg = errors.New("unknown hash algorithm")

// CanonicalDigest is a content hash of a canonical byte sequence. Encoded is
// the multibase (base58btc) form of the multihash-wrapped digest, so the
// algorithm travels with the value and the string form is portable across
// implementations.
type CanonicalDigest struct {
	Alg     HashAlg
	Bytes   []byte
	Encoded string
}

// Equal reports whether two digests carry the same encoded value.
func (d CanonicalDigest) Equal(other CanonicalDigest) bool {
	return d.Encoded == other.Encoded
}

// Digest hashes canonical bytes with the given algorithm. It is pure: the
// only failure mode is an unknown algorithm.
func Digest(data []byte, alg HashAlg) (CanonicalDigest, error) {
	var (
		sum  []byte
		code uint64
	)

	switch alg {
	case SHA256, "":
		h := sha256.Sum256(data)
		sum, code, alg = h[:], multihash.SHA2_256, SHA256
	case Blake2b256:
		h := blake2b.Sum256(data)
		sum, code = h[:], multihash.BLAKE2B_MIN+31
	default:
		return CanonicalDigest{}, errors.WithMessagef(ErrUnknownHashAlg,
			"%q", alg)
	}

	mh, err := multihash.Encode(sum, code)
	if err != nil {
		return CanonicalDigest{}, errors.WithMessage(err, "multihash encode")
	}

	encoded, err := multibase.Encode(multibase.Base58BTC, mh)
	if err != nil {
		return CanonicalDigest{}, errors.WithMessage(err, "multibase encode")
	}

	return CanonicalDigest{Alg: alg, Bytes: sum, Encoded: encoded}, nil
}

// DigestDocument canonicalizes a document and digests the result. This is
// the form every layer of the integrity chain uses to reference the layer
// below it.
func DigestDocument(doc map[string]interface{}, alg HashAlg) (CanonicalDigest, error) {
	canonicalBytes, err := Canonicalize(doc)
	if err != nil {
		return CanonicalDigest{}, err
	}
	return Digest(canonicalBytes, alg)
}

// DecodeDigest parses a multibase-encoded multihash string back into a
// CanonicalDigest. Digests produced by other implementations round-trip
// through here as long as the algorithm is one we know.
func DecodeDigest(encoded string) (CanonicalDigest, error) {
	_, mhBytes, err := multibase.Decode(encoded)
	if err != nil {
		return CanonicalDigest{}, errors.WithMessage(err, "multibase decode")
	}

	dec, err := multihash.Decode(mhBytes)
	if err != nil {
		return CanonicalDigest{}, errors.WithMessage(err, "multihash decode")
	}

	var alg HashAlg
	switch dec.Code {
	case multihash.SHA2_256:
		alg = SHA256
	case multihash.BLAKE2B_MIN + 31:
		alg = Blake2b256
	default:
		return CanonicalDigest{}, errors.WithMessagef(ErrUnknownHashAlg,
			"multihash code 0x%x", dec.Code)
	}

	return CanonicalDigest{Alg: alg, Bytes: dec.Digest, Encoded: encoded}, nil
}
