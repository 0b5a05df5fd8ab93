package issuer

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trustweave/go-trust-engine/suites"
)

type softwareKey struct {
	suiteID suites.SuiteID
	private []byte
}

// SoftwareSigner is an in-memory KeySigner: raw private keys held in
// process, signed through the suite registry. Production custody belongs in
// an HSM or KMS backend implementing KeySigner directly.
type SoftwareSigner struct {
	suites *suites.Registry

	mu   sync.RWMutex
	keys map[string]softwareKey
}

// NewSoftwareSigner builds an empty signer over the suite registry.
func NewSoftwareSigner(reg *suites.Registry) *SoftwareSigner {
	return &SoftwareSigner{
		suites: reg,
		keys:   make(map[string]softwareKey),
	}
}

// AddKey registers private key material under a "did#fragment" reference.
func (s *SoftwareSigner) AddKey(keyRef string, suiteID suites.SuiteID,
	privateKey []byte) {

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[keyRef] = softwareKey{suiteID: suiteID, private: privateKey}
}

// Sign signs data with the key registered under keyRef.
func (s *SoftwareSigner) Sign(_ context.Context, keyRef string,
	data []byte) ([]byte, error) {

	s.mu.RLock()
	key, ok := s.keys[keyRef]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.Errorf("no key registered for %s", keyRef)
	}

	signer, err := s.suites.Signer(key.suiteID)
	if err != nil {
		return nil, err
	}
	return signer.Sign(data, key.private)
}
