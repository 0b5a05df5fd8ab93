package verifier

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustweave/go-trust-engine/issuer"
	"github.com/trustweave/go-trust-engine/resolver"
	"github.com/trustweave/go-trust-engine/schemaval"
	"github.com/trustweave/go-trust-engine/status"
	"github.com/trustweave/go-trust-engine/suites"
	"github.com/trustweave/go-trust-engine/trust"
)

type staticHandler struct {
	docs map[string]*resolver.DIDDocument
}

func (h *staticHandler) Resolve(_ context.Context, did string) (*resolver.DIDDocument, error) {
	doc, ok := h.docs[did]
	if !ok {
		return nil, resolver.ErrDIDNotFound
	}
	return doc, nil
}

func (h *staticHandler) Create(context.Context, map[string]interface{}) (*resolver.DIDDocument, error) {
	return nil, resolver.ErrDIDNotFound
}

type fakeStatusSource struct {
	revoked bool
	reason  string
}

func (s fakeStatusSource) CheckStatus(context.Context, status.Reference) (status.Status, error) {
	return status.Status{Revoked: s.revoked, Reason: s.reason}, nil
}

type fakeSchemaSource map[string]string

func (s fakeSchemaSource) GetSchema(_ context.Context, ref schemaval.Reference) ([]byte, error) {
	return []byte(s[ref.ID]), nil
}

const degreeSchema = `{
  "type": "object",
  "required": ["id", "degree"],
  "properties": {
    "id": {"type": "string"},
    "degree": {"type": "string"}
  }
}`

type fixture struct {
	verifier *Verifier
	issuer   *issuer.Issuer
	anchors  *trust.Registry
	docs     map[string]*resolver.DIDDocument
	suites   *suites.Registry
	now      time.Time
}

// newFixture wires a university issuer at did:x:univ with an Ed25519 key,
// plus status, schema and trust collaborators.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	encodedKey, err := multibase.Encode(multibase.Base58BTC, pub)
	require.NoError(t, err)

	const univDID = "did:x:univ"
	vmID := univDID + "#key-1"
	docs := map[string]*resolver.DIDDocument{
		univDID: {
			ID: univDID,
			VerificationMethod: []resolver.VerificationMethod{{
				ID:                 vmID,
				Type:               "Ed25519VerificationKey2020",
				Controller:         univDID,
				PublicKeyMultibase: encodedKey,
			}},
			AssertionMethod: []string{vmID},
		},
	}

	dids := resolver.NewRegistry()
	dids.RegisterMethod("x", &staticHandler{docs: docs})

	suiteReg := suites.NewRegistry()

	signer := issuer.NewSoftwareSigner(suiteReg)
	signer.AddKey(vmID, suites.Ed25519Signature2020, priv)

	anchors := trust.NewRegistry()
	anchors.AddAnchor(univDID, []string{"DegreeCredential"}, "university")

	statusReg := status.NewRegistry()
	statusReg.Register("FakeStatus", fakeStatusSource{})

	schemas := fakeSchemaSource{
		"https://example.com/degree-schema.json": degreeSchema,
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	v := New(dids, suiteReg,
		WithTrustResolver(trust.NewResolver(anchors, dids)),
		WithStatusRegistry(statusReg),
		WithSchemaSource(schemas),
		WithClock(func() time.Time { return now }),
	)

	return &fixture{
		verifier: v,
		issuer: issuer.New(dids, suiteReg, signer,
			issuer.WithClock(func() time.Time { return now })),
		anchors: anchors,
		docs:    docs,
		suites:  suiteReg,
		now:     now,
	}
}

func (f *fixture) issueDegree(t *testing.T) *issuer.Credential {
	t.Helper()

	expires := f.now.Add(365 * 24 * time.Hour)
	unsigned := &issuer.Credential{
		Context: []string{"https://www.w3.org/2018/credentials/v1"},
		Type:    []string{"DegreeCredential", "VerifiableCredential"},
		CredentialSubject: map[string]interface{}{
			"id":     "did:x:student",
			"degree": "Bachelor of Science",
		},
		ExpirationDate: &expires,
		CredentialStatus: &status.Reference{
			ID:   "https://example.com/status/42",
			Type: "FakeStatus",
		},
		CredentialSchema: &schemaval.Reference{
			ID:   "https://example.com/degree-schema.json",
			Type: "JsonSchema2023",
		},
	}

	signed, err := f.issuer.Issue(context.Background(), unsigned,
		"did:x:univ", "key-1", suites.Ed25519Signature2020)
	require.NoError(t, err)
	return signed
}

func allChecks() Policy {
	return Policy{
		CheckExpiration: true,
		CheckRevocation: true,
		CheckSchema:     true,
		CheckTrust:      true,
	}
}

func TestVerify_RoundTripValid(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)

	outcome, err := f.verifier.Verify(context.Background(), cred, allChecks())
	require.NoError(t, err)
	assert.Equal(t, CodeValid, outcome.Code)
	assert.True(t, outcome.IsValid())
	assert.Empty(t, outcome.Warnings)
}

func TestVerify_TamperedSubjectIsBadProof(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)
	cred.CredentialSubject["degree"] = "Doctor of Philosophy"

	outcome, err := f.verifier.Verify(context.Background(), cred, Policy{})
	require.NoError(t, err)
	assert.Equal(t, CodeBadProof, outcome.Code)
}

func TestVerify_MissingProof(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)
	cred.Proof = nil

	outcome, err := f.verifier.Verify(context.Background(), cred, Policy{})
	require.NoError(t, err)
	assert.Equal(t, CodeBadProof, outcome.Code)
}

func TestVerify_UntrustedIsNotBadProof(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)

	f.anchors.RemoveAnchor("did:x:univ")

	outcome, err := f.verifier.Verify(context.Background(), cred, allChecks())
	require.NoError(t, err)
	assert.Equal(t, CodeUntrustedIssuer, outcome.Code)
	assert.Equal(t, "did:x:univ", outcome.Issuer)
}

func TestVerify_ExpirationBoundaryInclusive(t *testing.T) {
	f := newFixture(t)
	pol := Policy{CheckExpiration: true}
	ctx := context.Background()

	// expirationDate strictly in the future: not expired
	cred := f.issueDegree(t)
	outcome, err := f.verifier.Verify(ctx, cred, pol)
	require.NoError(t, err)
	assert.Equal(t, CodeValid, outcome.Code)

	// expirationDate exactly now: expired, boundary is inclusive
	atNow := f.now
	unsigned := &issuer.Credential{
		Type: []string{"DegreeCredential"},
		CredentialSubject: map[string]interface{}{
			"id": "did:x:student",
		},
		ExpirationDate: &atNow,
	}
	cred, err = f.issuer.Issue(ctx, unsigned, "did:x:univ", "key-1",
		suites.Ed25519Signature2020)
	require.NoError(t, err)

	outcome, err = f.verifier.Verify(ctx, cred, pol)
	require.NoError(t, err)
	assert.Equal(t, CodeExpired, outcome.Code)
	require.NotNil(t, outcome.ExpiredAt)
	assert.True(t, outcome.ExpiredAt.Equal(f.now))
}

func TestVerify_Revoked(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)

	outcome, err := f.withStatus(fakeStatusSource{
		revoked: true, reason: "issuer request",
	}).Verify(context.Background(), cred, allChecks())
	require.NoError(t, err)
	assert.Equal(t, CodeRevoked, outcome.Code)
	assert.Equal(t, "issuer request", outcome.Reason)
}

func TestVerify_RevocationEnabledWithoutSource(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)

	dids := resolver.NewRegistry()
	dids.RegisterMethod("x", &staticHandler{docs: f.docs})
	v := New(dids, f.suites,
		WithClock(func() time.Time { return f.now }))

	_, err := v.Verify(context.Background(), cred,
		Policy{CheckRevocation: true})
	require.ErrorIs(t, err, ErrNoStatusSource)
}

func TestVerify_SchemaViolation(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)
	// break conformance after issuance; run schema check only, since the
	// proof check would flag the tamper first
	cred.CredentialSubject = map[string]interface{}{"id": "did:x:student"}

	outcome, err := f.verifier.Verify(context.Background(), cred,
		Policy{CheckSchema: true, FullReport: true})
	require.NoError(t, err)
	require.Contains(t, codes(outcome.Findings), CodeSchemaViolation)
}

func TestVerify_DeprecatedSuiteWarning(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)

	f.suites.MarkDeprecated(suites.Ed25519Signature2020)

	outcome, err := f.verifier.Verify(context.Background(), cred, allChecks())
	require.NoError(t, err)
	assert.Equal(t, CodeValid, outcome.Code)
	require.Len(t, outcome.Warnings, 1)
	assert.Contains(t, outcome.Warnings[0], "deprecated")
}

func TestVerify_FullReportCollectsFindings(t *testing.T) {
	f := newFixture(t)
	cred := f.issueDegree(t)

	// expired and untrusted at once
	past := f.now.Add(-time.Hour)
	cred.ExpirationDate = &past
	f.anchors.RemoveAnchor("did:x:univ")

	outcome, err := f.verifier.Verify(context.Background(), cred, Policy{
		CheckExpiration: true,
		CheckTrust:      true,
		FullReport:      true,
	})
	require.NoError(t, err)

	found := codes(outcome.Findings)
	// mutating ExpirationDate also breaks the signature
	assert.Contains(t, found, CodeBadProof)
	assert.Contains(t, found, CodeExpired)
	assert.Contains(t, found, CodeUntrustedIssuer)
	assert.Equal(t, outcome.Findings[0].Code, outcome.Code)
}

func TestVerifyBatch(t *testing.T) {
	f := newFixture(t)

	good := f.issueDegree(t)
	tampered := f.issueDegree(t)
	tampered.CredentialSubject["degree"] = "forged"

	outcomes, err := f.verifier.VerifyBatch(context.Background(),
		[]*issuer.Credential{good, tampered, good}, allChecks(), 2)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, CodeValid, outcomes[0].Code)
	assert.Equal(t, CodeBadProof, outcomes[1].Code)
	assert.Equal(t, CodeValid, outcomes[2].Code)
}

func codes(findings []Finding) []Code {
	out := make([]Code, len(findings))
	for i, f := range findings {
		out[i] = f.Code
	}
	return out
}

// withStatus rebuilds the fixture verifier with a replacement status
// source.
func (f *fixture) withStatus(src fakeStatusSource) *Verifier {
	dids := resolver.NewRegistry()
	dids.RegisterMethod("x", &staticHandler{docs: f.docs})

	statusReg := status.NewRegistry()
	statusReg.Register("FakeStatus", src)

	anchors := trust.NewRegistry()
	anchors.AddAnchor("did:x:univ", []string{"DegreeCredential"}, "university")

	return New(dids, f.suites,
		WithTrustResolver(trust.NewResolver(anchors, dids)),
		WithStatusRegistry(statusReg),
		WithSchemaSource(fakeSchemaSource{
			"https://example.com/degree-schema.json": degreeSchema,
		}),
		WithClock(func() time.Time { return f.now }),
	)
}
