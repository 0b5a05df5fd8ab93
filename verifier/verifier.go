package verifier

import (
	"context"
	"time"

	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"

	"github.com/trustweave/go-trust-engine/issuer"
	"github.com/trustweave/go-trust-engine/resolver"
	"github.com/trustweave/go-trust-engine/schemaval"
	"github.com/trustweave/go-trust-engine/status"
	"github.com/trustweave/go-trust-engine/suites"
	"github.com/trustweave/go-trust-engine/trust"
)

// Policy selects which checks run beyond the always-on signature check.
// The zero value runs the signature check only; enabling anything further
// is an explicit choice.
type Policy struct {
	CheckExpiration bool
	CheckRevocation bool
	CheckSchema     bool
	CheckTrust      bool

	// FullReport keeps going after the first failure and records every
	// failed check in Outcome.Findings. The primary Code is still the
	// first failure in check order.
	FullReport bool
}

var (
	// ErrNoStatusSource: revocation checking was requested but no status
	// registry is configured. Deliberately a hard error, not a silent
	// pass, since a skipped check would weaken the trust guarantee
	// invisibly.
	ErrNoStatusSource = errors.New(
		"revocation check enabled but no status source configured")

	// ErrNoSchemaSource is the schema-check analogue.
	ErrNoSchemaSource = errors.New(
		"schema check enabled but no schema source configured")

	// ErrNoTrustResolver is the trust-check analogue.
	ErrNoTrustResolver = errors.New(
		"trust check enabled but no trust resolver configured")
)

// Verifier runs credential verification. It holds no mutable state of its
// own; independent Verify calls may run fully in parallel.
type Verifier struct {
	resolver *resolver.Registry
	suites   *suites.Registry
	trust    *trust.Resolver
	status   *status.Registry
	schemas  schemaval.Source
	now      func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTrustResolver wires the delegation-aware trust resolver used by the
// trust check.
func WithTrustResolver(t *trust.Resolver) Option {
	return func(v *Verifier) {
		v.trust = t
	}
}

// WithStatusRegistry wires the revocation status sources.
func WithStatusRegistry(r *status.Registry) Option {
	return func(v *Verifier) {
		v.status = r
	}
}

// WithSchemaSource wires the schema retrieval backend.
func WithSchemaSource(s schemaval.Source) Option {
	return func(v *Verifier) {
		v.schemas = s
	}
}

// WithClock replaces the verification timestamp source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// New builds a Verifier over the resolution facade and suite registry;
// collaborators for the optional checks arrive through options.
func New(res *resolver.Registry, reg *suites.Registry, opts ...Option) *Verifier {
	v := &Verifier{resolver: res, suites: reg, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks one credential against the policy. The outcome is one of
// the closed variant set; a non-nil error means the engine could not reach
// a verdict and says nothing about the credential itself. Nothing is
// mutated anywhere, so cancellation mid-verify leaves no partial state.
func (v *Verifier) Verify(ctx context.Context, cred *issuer.Credential,
	pol Policy) (Outcome, error) {

	var (
		warnings []string
		findings []Finding
		first    *Outcome
	)

	fail := func(o Outcome) (Outcome, bool) {
		if !pol.FullReport {
			return o, true
		}
		findings = append(findings, Finding{Code: o.Code, Detail: o.Reason})
		if first == nil {
			first = &o
		}
		return Outcome{}, false
	}

	// 1. proof: recompute the signing input and check the signature
	// against the key resolved from the proof's verification method
	if outcome, err := v.checkProof(ctx, cred, &warnings); err != nil {
		return Outcome{}, err
	} else if outcome != nil {
		if o, done := fail(*outcome); done {
			return o, nil
		}
	}

	// 2. expiration, inclusive boundary: expirationDate == now is expired
	if pol.CheckExpiration && cred.ExpirationDate != nil {
		if !v.now().UTC().Before(cred.ExpirationDate.UTC()) {
			if o, done := fail(expired(*cred.ExpirationDate)); done {
				return o, nil
			}
		}
	}

	// 3. revocation via the external status source
	if pol.CheckRevocation {
		outcome, err := v.checkRevocation(ctx, cred, &warnings)
		if err != nil {
			return Outcome{}, err
		}
		if outcome != nil {
			if o, done := fail(*outcome); done {
				return o, nil
			}
		}
	}

	// 4. schema conformance of the credential subject
	if pol.CheckSchema {
		outcome, err := v.checkSchema(ctx, cred, &warnings)
		if err != nil {
			return Outcome{}, err
		}
		if outcome != nil {
			if o, done := fail(*outcome); done {
				return o, nil
			}
		}
	}

	// 5. issuer trust, directly or through a delegation chain
	if pol.CheckTrust {
		if v.trust == nil {
			return Outcome{}, ErrNoTrustResolver
		}
		trusted, err := v.trust.IsTrustedForIssuer(ctx, cred.Issuer,
			cred.PrimaryType())
		if err != nil {
			if errors.Is(err, trust.ErrDelegationCycle) {
				return Outcome{}, err
			}
			return Outcome{}, errors.WithMessage(err, "trust resolution")
		}
		if !trusted {
			if o, done := fail(untrusted(cred.Issuer)); done {
				return o, nil
			}
		}
	}

	if first != nil {
		out := *first
		out.Warnings = warnings
		out.Findings = findings
		return out, nil
	}
	return valid(warnings), nil
}

// checkProof returns a non-nil outcome when the credential fails the
// cryptographic check, nil when the proof holds.
func (v *Verifier) checkProof(ctx context.Context, cred *issuer.Credential,
	warnings *[]string) (*Outcome, error) {

	if cred.Proof == nil {
		o := badProof("credential carries no proof")
		return &o, nil
	}

	verifierSuite, err := v.suites.Verifier(cred.Proof.Type)
	if err != nil {
		var unsupported *suites.UnsupportedProofSuiteError
		if errors.As(err, &unsupported) ||
			errors.Is(err, suites.ErrSuiteCannotVerify) {
			o := badProof(err.Error())
			return &o, nil
		}
		return nil, err
	}

	if v.suites.IsDeprecated(cred.Proof.Type) {
		*warnings = append(*warnings,
			"proof suite "+cred.Proof.Type.String()+" is deprecated")
	}

	signingInput, err := cred.SigningInput()
	if err != nil {
		o := badProof("credential is not canonicalizable: " + err.Error())
		return &o, nil
	}

	_, signature, err := multibase.Decode(cred.Proof.ProofValue)
	if err != nil {
		o := badProof("proof value is not multibase: " + err.Error())
		return &o, nil
	}

	publicKey, err := v.resolver.ResolveKey(ctx, cred.Proof.VerificationMethod)
	switch {
	case errors.Is(err, resolver.ErrResolutionTimeout):
		return nil, err
	case err != nil:
		o := badProof("verification method unresolvable: " + err.Error())
		return &o, nil
	}

	if err := verifierSuite.Verify(signingInput, signature, publicKey); err != nil {
		o := badProof(err.Error())
		return &o, nil
	}
	return nil, nil
}

func (v *Verifier) checkRevocation(ctx context.Context,
	cred *issuer.Credential, warnings *[]string) (*Outcome, error) {

	if v.status == nil {
		return nil, ErrNoStatusSource
	}
	if cred.CredentialStatus == nil {
		*warnings = append(*warnings,
			"credential has no status reference, revocation not checkable")
		return nil, nil
	}

	st, err := v.status.CheckStatus(ctx, *cred.CredentialStatus)
	if err != nil {
		return nil, errors.WithMessage(err, "revocation status lookup")
	}
	if st.Revoked {
		o := revoked(st.Reason)
		return &o, nil
	}
	return nil, nil
}

func (v *Verifier) checkSchema(ctx context.Context, cred *issuer.Credential,
	warnings *[]string) (*Outcome, error) {

	if v.schemas == nil {
		return nil, ErrNoSchemaSource
	}
	if cred.CredentialSchema == nil {
		*warnings = append(*warnings,
			"credential references no schema, schema not checkable")
		return nil, nil
	}

	schema, err := v.schemas.GetSchema(ctx, *cred.CredentialSchema)
	if err != nil {
		return nil, errors.WithMessage(err, "schema retrieval")
	}

	violations, err := schemaval.Validate(cred.CredentialSubject, schema)
	if err != nil {
		return nil, err
	}
	if violations != nil {
		o := schemaViolation(violations)
		return &o, nil
	}
	return nil, nil
}
