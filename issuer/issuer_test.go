package issuer

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustweave/go-trust-engine/resolver"
	"github.com/trustweave/go-trust-engine/suites"
)

func newIssuerFixture(t *testing.T) (*Issuer, *resolver.Registry, string, string) {
	t.Helper()

	keyHandler := resolver.NewKeyMethodHandler()
	dids := resolver.NewRegistry()
	dids.RegisterMethod("key", keyHandler)

	doc, err := keyHandler.Create(context.Background(), nil)
	require.NoError(t, err)

	priv, ok := keyHandler.PrivateKey(doc.ID)
	require.True(t, ok)

	reg := suites.NewRegistry()
	signer := NewSoftwareSigner(reg)
	keyRef := doc.VerificationMethod[0].ID
	signer.AddKey(keyRef, suites.Ed25519Signature2020, priv)

	_, fragment, err := resolver.SplitKeyRef(keyRef)
	require.NoError(t, err)

	return New(dids, reg, signer), dids, doc.ID, fragment
}

func unsignedCredential() *Credential {
	return &Credential{
		Context: []string{"https://www.w3.org/2018/credentials/v1"},
		Type:    []string{"DegreeCredential", "VerifiableCredential"},
		CredentialSubject: map[string]interface{}{
			"id":     "did:x:student",
			"degree": "Bachelor of Science",
		},
	}
}

func TestIssue_AttachesProof(t *testing.T) {
	iss, _, issuerDID, fragment := newIssuerFixture(t)
	unsigned := unsignedCredential()

	signed, err := iss.Issue(context.Background(), unsigned, issuerDID,
		fragment, suites.Ed25519Signature2020,
		WithChallenge("nonce-1"), WithDomain("example.com"))
	require.NoError(t, err)

	require.NotNil(t, signed.Proof)
	assert.Equal(t, suites.Ed25519Signature2020, signed.Proof.Type)
	assert.Equal(t, issuerDID+"#"+fragment, signed.Proof.VerificationMethod)
	assert.Equal(t, ProofPurposeAssertion, signed.Proof.ProofPurpose)
	assert.Equal(t, "nonce-1", signed.Proof.Challenge)
	assert.Equal(t, "example.com", signed.Proof.Domain)
	assert.NotEmpty(t, signed.Proof.ProofValue)

	assert.Equal(t, issuerDID, signed.Issuer)
	assert.NotEmpty(t, signed.ID)
	assert.NotNil(t, signed.IssuanceDate)

	// the input credential is untouched
	assert.Nil(t, unsigned.Proof)
	assert.Empty(t, unsigned.ID)
}

func TestIssue_UnknownSuite(t *testing.T) {
	iss, _, issuerDID, fragment := newIssuerFixture(t)

	_, err := iss.Issue(context.Background(), unsignedCredential(),
		issuerDID, fragment, "NoSuchSuite")
	var unsupported *suites.UnsupportedProofSuiteError
	require.ErrorAs(t, err, &unsupported)
}

func TestIssue_UnresolvableIssuer(t *testing.T) {
	iss, _, _, _ := newIssuerFixture(t)

	_, err := iss.Issue(context.Background(), unsignedCredential(),
		"did:web:missing.example", "key-1", suites.Ed25519Signature2020)
	require.ErrorIs(t, err, ErrIssuerUnresolvable)
}

func TestIssue_KeyNotAuthorized(t *testing.T) {
	iss, _, issuerDID, _ := newIssuerFixture(t)

	_, err := iss.Issue(context.Background(), unsignedCredential(),
		issuerDID, "missing-fragment", suites.Ed25519Signature2020)
	require.ErrorIs(t, err, ErrKeyNotAuthorized)
}

type failingSigner struct{}

func (failingSigner) Sign(context.Context, string, []byte) ([]byte, error) {
	return nil, errors.New("hsm unreachable")
}

func TestIssue_SigningFailure(t *testing.T) {
	keyHandler := resolver.NewKeyMethodHandler()
	dids := resolver.NewRegistry()
	dids.RegisterMethod("key", keyHandler)

	doc, err := keyHandler.Create(context.Background(), nil)
	require.NoError(t, err)

	_, fragment, err := resolver.SplitKeyRef(doc.VerificationMethod[0].ID)
	require.NoError(t, err)

	iss := New(dids, suites.NewRegistry(), failingSigner{})

	_, err = iss.Issue(context.Background(), unsignedCredential(), doc.ID,
		fragment, suites.Ed25519Signature2020)
	require.ErrorIs(t, err, ErrSigningFailed)
	assert.Contains(t, err.Error(), "hsm unreachable")
}

func TestSigningInput_ExcludesProof(t *testing.T) {
	cred := unsignedCredential()

	before, err := cred.SigningInput()
	require.NoError(t, err)

	cred.Proof = &Proof{
		Type:       suites.Ed25519Signature2020,
		Created:    time.Now(),
		ProofValue: "zsig",
	}
	after, err := cred.SigningInput()
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestCredential_PrimaryType(t *testing.T) {
	cred := unsignedCredential()
	assert.Equal(t, "DegreeCredential", cred.PrimaryType())
	assert.Empty(t, (&Credential{}).PrimaryType())
}
