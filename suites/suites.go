package suites

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// SuiteID names a proof suite: a fixed pairing of signature algorithm, key
// format and signature encoding.
type SuiteID string

const (
	// Ed25519Signature2020 signs the canonical bytes directly with Ed25519.
	// Signatures are the raw 64-byte form, keys are raw 32-byte points.
	Ed25519Signature2020 SuiteID = "Ed25519Signature2020"

	// EcdsaSecp256k1Signature2019 hashes canonical bytes with SHA-256 and
	// signs the digest on secp256k1. Signatures are 64-byte compact [R||S],
	// public keys are compressed (33 bytes) or uncompressed (65 bytes) SEC1
	// points.
	EcdsaSecp256k1Signature2019 SuiteID = "EcdsaSecp256k1Signature2019"
)

func (s SuiteID) String() string {
	return string(s)
}

// Suite is the common capability surface of a registered proof suite.
// Concrete suites additionally implement SignerSuite, VerifierSuite or both.
type Suite interface {
	ID() SuiteID
}

// SignerSuite produces a signature over canonical bytes with raw private key
// material. Input bytes are never mutated.
type SignerSuite interface {
	Suite
	Sign(data, privateKey []byte) ([]byte, error)
}

// VerifierSuite checks a signature over canonical bytes against public key
// material. It is side-effect-free and returns a non-nil error for any
// signature that was not produced over exactly these bytes.
type VerifierSuite interface {
	Suite
	Verify(data, signature, publicKey []byte) error
}

// ErrSuiteCannotSign is returned when a sign operation targets a suite
// registered with verify-only capability.
var ErrSuiteCannotSign = errors.New("suite is not sign-capable")

// ErrSuiteCannotVerify is the counterpart for verify on a sign-only suite.
var ErrSuiteCannotVerify = errors.New("suite is not verify-capable")

// UnsupportedProofSuiteError reports an unknown suite id together with the
// ids that are registered, so the caller can correct configuration instead
// of guessing.
type UnsupportedProofSuiteError struct {
	SuiteID   SuiteID
	Available []SuiteID
}

func (e *UnsupportedProofSuiteError) Error() string {
	return errors.Errorf("proof suite %q is not registered, available: %v",
		e.SuiteID, e.Available).Error()
}

// Registry maps suite ids to implementations. Registration is mutually
// exclusive with lookups; lookups take the read lock only.
type Registry struct {
	mu         sync.RWMutex
	suites     map[SuiteID]Suite
	deprecated map[SuiteID]struct{}
}

// NewRegistry returns a registry with the built-in suites registered.
func NewRegistry() *Registry {
	r := &Registry{
		suites:     make(map[SuiteID]Suite),
		deprecated: make(map[SuiteID]struct{}),
	}
	r.Register(Ed25519Suite{})
	r.Register(Secp256k1Suite{})
	return r
}

// Register adds or replaces a suite under its own id.
func (r *Registry) Register(s Suite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suites[s.ID()] = s
}

// MarkDeprecated flags a suite id; verification keeps working but reports a
// warning so callers can migrate.
func (r *Registry) MarkDeprecated(id SuiteID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deprecated[id] = struct{}{}
}

// IsDeprecated reports whether the suite id carries the deprecation flag.
func (r *Registry) IsDeprecated(id SuiteID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.deprecated[id]
	return ok
}

// Get returns the suite registered under id.
func (r *Registry) Get(id SuiteID) (Suite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.suites[id]
	if !ok {
		return nil, &UnsupportedProofSuiteError{
			SuiteID:   id,
			Available: r.availableLocked(),
		}
	}
	return s, nil
}

// Signer returns the suite as a SignerSuite, or ErrSuiteCannotSign when the
// registered implementation lacks the capability.
func (r *Registry) Signer(id SuiteID) (SignerSuite, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	signer, ok := s.(SignerSuite)
	if !ok {
		return nil, errors.WithMessagef(ErrSuiteCannotSign, "%q", id)
	}
	return signer, nil
}

// Verifier returns the suite as a VerifierSuite, or ErrSuiteCannotVerify
// when the registered implementation lacks the capability.
func (r *Registry) Verifier(id SuiteID) (VerifierSuite, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	verifier, ok := s.(VerifierSuite)
	if !ok {
		return nil, errors.WithMessagef(ErrSuiteCannotVerify, "%q", id)
	}
	return verifier, nil
}

func (r *Registry) availableLocked() []SuiteID {
	ids := make([]SuiteID, 0, len(r.suites))
	for id := range r.suites {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
