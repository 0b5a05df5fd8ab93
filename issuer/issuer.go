package issuer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"

	"github.com/trustweave/go-trust-engine/resolver"
	"github.com/trustweave/go-trust-engine/suites"
)

// KeySigner holds private key custody on behalf of the issuer. The engine
// never sees raw private keys; software, HSM and cloud-KMS backends all fit
// behind this interface.
type KeySigner interface {
	// Sign signs data with the key behind the "did#fragment" reference
	// using that key's suite semantics.
	Sign(ctx context.Context, keyRef string, data []byte) ([]byte, error)
}

var (
	// ErrIssuerUnresolvable wraps the resolution failure that stopped
	// issuance.
	ErrIssuerUnresolvable = errors.New("issuer did is unresolvable")

	// ErrKeyNotAuthorized reports a key fragment missing from the issuer
	// document's assertionMethod list.
	ErrKeyNotAuthorized = errors.New("key is not authorized for assertion")

	// ErrSigningFailed wraps a KeySigner failure.
	ErrSigningFailed = errors.New("signing failed")
)

// Issuer assembles and signs credentials. It has no storage and no side
// effects beyond returning the signed copy.
type Issuer struct {
	resolver *resolver.Registry
	suites   *suites.Registry
	signer   KeySigner
	now      func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithClock replaces the issuance timestamp source, mostly for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// New builds an Issuer over the given resolution facade, suite registry and
// key custody backend.
func New(res *resolver.Registry, reg *suites.Registry, signer KeySigner,
	opts ...IssuerOption) *Issuer {

	i := &Issuer{resolver: res, suites: reg, signer: signer, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueOption adjusts a single issuance.
type IssueOption func(*issueConfig)

type issueConfig struct {
	purpose   string
	challenge string
	domain    string
	created   *time.Time
}

// WithProofPurpose overrides the default assertionMethod purpose.
func WithProofPurpose(purpose string) IssueOption {
	return func(c *issueConfig) {
		c.purpose = purpose
	}
}

// WithChallenge binds the proof to a verifier-supplied challenge.
func WithChallenge(challenge string) IssueOption {
	return func(c *issueConfig) {
		c.challenge = challenge
	}
}

// WithDomain binds the proof to a domain.
func WithDomain(domain string) IssueOption {
	return func(c *issueConfig) {
		c.domain = domain
	}
}

// WithCreated pins the proof creation timestamp.
func WithCreated(created time.Time) IssueOption {
	return func(c *issueConfig) {
		c.created = &created
	}
}

// Issue resolves the issuer DID, confirms the key fragment is authorized
// for assertion, canonicalizes the credential without its proof, signs the
// canonical bytes and returns a new credential with the proof attached. The
// input credential is left untouched.
func (i *Issuer) Issue(ctx context.Context, cred *Credential, issuerDID,
	keyFragment string, suiteID suites.SuiteID,
	opts ...IssueOption) (*Credential, error) {

	cfg := issueConfig{purpose: ProofPurposeAssertion}
	for _, opt := range opts {
		opt(&cfg)
	}

	// configuration errors surface before any resolution work
	if _, err := i.suites.Signer(suiteID); err != nil {
		return nil, err
	}

	doc, err := i.resolver.Resolve(ctx, issuerDID)
	if err != nil {
		return nil, errors.WithMessagef(ErrIssuerUnresolvable,
			"%s: %v", issuerDID, err)
	}

	keyRef := issuerDID + "#" + keyFragment
	if _, ok := doc.VerificationMethodByID(keyRef); !ok {
		return nil, errors.WithMessagef(ErrKeyNotAuthorized,
			"%s has no verification method %s", issuerDID, keyRef)
	}
	if !doc.AllowsAssertion(keyRef) {
		return nil, errors.WithMessagef(ErrKeyNotAuthorized,
			"%s is not listed for assertion", keyRef)
	}

	signed, err := cred.clone()
	if err != nil {
		return nil, err
	}

	signed.Issuer = issuerDID
	if signed.ID == "" {
		signed.ID = "urn:uuid:" + uuid.NewString()
	}
	if signed.IssuanceDate == nil {
		issuedAt := i.now().UTC()
		signed.IssuanceDate = &issuedAt
	}

	signingInput, err := signed.SigningInput()
	if err != nil {
		return nil, err
	}

	signature, err := i.signer.Sign(ctx, keyRef, signingInput)
	if err != nil {
		return nil, errors.WithMessagef(ErrSigningFailed, "%s: %v", keyRef, err)
	}

	proofValue, err := multibase.Encode(multibase.Base58BTC, signature)
	if err != nil {
		return nil, errors.WithMessage(err, "encode proof value")
	}

	created := i.now().UTC()
	if cfg.created != nil {
		created = cfg.created.UTC()
	}

	signed.Proof = &Proof{
		Type:               suiteID,
		Created:            created,
		VerificationMethod: keyRef,
		ProofPurpose:       cfg.purpose,
		Challenge:          cfg.challenge,
		Domain:             cfg.domain,
		ProofValue:         proofValue,
	}
	return signed, nil
}
