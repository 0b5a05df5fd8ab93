package issuer

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trustweave/go-trust-engine/canonical"
	"github.com/trustweave/go-trust-engine/schemaval"
	"github.com/trustweave/go-trust-engine/status"
	"github.com/trustweave/go-trust-engine/suites"
)

// Credential is a W3C-flavored verifiable credential. It is constructed
// unsigned, becomes issued once a Proof is attached and is never mutated
// after that; revocation lives behind CredentialStatus, not in the
// credential itself.
type Credential struct {
	Context           []string               `json:"@context,omitempty"`
	ID                string                 `json:"id,omitempty"`
	Type              []string               `json:"type"`
	Issuer            string                 `json:"issuer"`
	IssuanceDate      *time.Time             `json:"issuanceDate,omitempty"`
	ExpirationDate    *time.Time             `json:"expirationDate,omitempty"`
	CredentialSubject map[string]interface{} `json:"credentialSubject"`
	CredentialStatus  *status.Reference      `json:"credentialStatus,omitempty"`
	CredentialSchema  *schemaval.Reference   `json:"credentialSchema,omitempty"`
	LinksetDigest     string                 `json:"linksetDigest,omitempty"`
	Proof             *Proof                 `json:"proof,omitempty"`
}

// Proof is the descriptor attached to a credential at issuance. ProofValue
// is the multibase (base58btc) encoding of the suite signature.
type Proof struct {
	Type               suites.SuiteID `json:"type"`
	Created            time.Time      `json:"created"`
	VerificationMethod string         `json:"verificationMethod"`
	ProofPurpose       string         `json:"proofPurpose"`
	Challenge          string         `json:"challenge,omitempty"`
	Domain             string         `json:"domain,omitempty"`
	ProofValue         string         `json:"proofValue"`
}

// ProofPurposeAssertion is the purpose issued credentials carry by default.
const ProofPurposeAssertion = "assertionMethod"

// PrimaryType returns the first entry of the type list, which names what
// the credential claims to be.
func (c *Credential) PrimaryType() string {
	if len(c.Type) == 0 {
		return ""
	}
	return c.Type[0]
}

// AsMap renders the credential as a plain document, the form the
// canonicalization engine accepts.
func (c *Credential) AsMap() (map[string]interface{}, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, errors.WithMessage(err, "marshal credential")
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.WithMessage(err, "remarshal credential")
	}
	return doc, nil
}

// SigningInput produces the canonical bytes a proof signs: the credential
// document with the proof field removed. Recomputing this over a signed
// credential yields exactly the bytes that were signed, or different bytes
// if anything was tampered with.
func (c *Credential) SigningInput() ([]byte, error) {
	doc, err := c.AsMap()
	if err != nil {
		return nil, err
	}
	delete(doc, "proof")
	return canonical.Canonicalize(doc)
}

// Digest computes the canonical digest of the credential as it stands,
// proof included. This is the value anchor records bind to.
func (c *Credential) Digest(alg canonical.HashAlg) (canonical.CanonicalDigest, error) {
	doc, err := c.AsMap()
	if err != nil {
		return canonical.CanonicalDigest{}, err
	}
	return canonical.DigestDocument(doc, alg)
}

// clone deep-copies the credential through its JSON form. Issuance works on
// a clone so the caller's unsigned credential is never touched.
func (c *Credential) clone() (*Credential, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, errors.WithMessage(err, "marshal credential")
	}
	var out Credential
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.WithMessage(err, "remarshal credential")
	}
	return &out, nil
}
