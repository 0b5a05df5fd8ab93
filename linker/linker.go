package linker

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trustweave/go-trust-engine/anchors"
	"github.com/trustweave/go-trust-engine/canonical"
	"github.com/trustweave/go-trust-engine/issuer"
)

// AnchorRecord binds a credential digest to a ledger reference.
type AnchorRecord struct {
	CredentialDigest string      `json:"credentialDigest"`
	Ref              anchors.Ref `json:"ref"`
	AnchoredAt       time.Time   `json:"anchoredAt"`
}

// StepResult is the verdict for one layer of the chain.
type StepResult struct {
	Step   string
	Valid  bool
	Reason string
}

// ChainVerification is the aggregate verdict: valid iff every step is.
type ChainVerification struct {
	Steps []StepResult
}

// Valid reports whether every step of the chain held.
func (c ChainVerification) Valid() bool {
	for _, s := range c.Steps {
		if !s.Valid {
			return false
		}
	}
	return len(c.Steps) > 0
}

// Linker composes the digest engine across the artifact → linkset →
// credential → anchor layers.
type Linker struct {
	anchors *anchors.Registry
	alg     canonical.HashAlg
	now     func() time.Time
}

// Option configures a Linker.
type Option func(*Linker)

// WithHashAlg replaces the default SHA-256 digest algorithm.
func WithHashAlg(alg canonical.HashAlg) Option {
	return func(l *Linker) {
		l.alg = alg
	}
}

// WithClock replaces the anchoring timestamp source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Linker) {
		l.now = now
	}
}

// New builds a Linker over the anchor client registry. A nil registry is
// fine for callers that never anchor.
func New(reg *anchors.Registry, opts ...Option) *Linker {
	l := &Linker{anchors: reg, alg: canonical.SHA256, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BuildLinkset builds a linkset over artifacts with the linker's digest
// algorithm.
func (l *Linker) BuildLinkset(artifacts []Artifact) (*Linkset, error) {
	return BuildLinkset(artifacts, l.alg)
}

// AnchorCredential digests the signed credential (proof included) and
// writes the digest to the given chain, returning the binding record.
func (l *Linker) AnchorCredential(ctx context.Context,
	cred *issuer.Credential, chainID string) (*AnchorRecord, error) {

	if cred.Proof == nil {
		return nil, errors.New("refusing to anchor an unsigned credential")
	}
	if l.anchors == nil {
		return nil, errors.New("no anchor registry configured")
	}

	digest, err := cred.Digest(l.alg)
	if err != nil {
		return nil, err
	}

	ref, err := l.anchors.Write(ctx, chainID, digest.Encoded)
	if err != nil {
		return nil, errors.WithMessagef(err, "anchor to %s", chainID)
	}

	return &AnchorRecord{
		CredentialDigest: digest.Encoded,
		Ref:              ref,
		AnchoredAt:       l.now().UTC(),
	}, nil
}

// VerifyChain recomputes every digest bottom-up and compares each against
// the reference stored one layer above. Fresh digests flow upward: an
// artifact flip changes the recomputed linkset digest and with it the
// recomputed credential digest, so every layer above the tamper point fails
// while layers below stay valid. Passing a nil record skips the credential
// and anchor steps. The error return is reserved for infrastructure faults
// (an unreachable ledger), never for mismatches.
func (l *Linker) VerifyChain(ctx context.Context, cred *issuer.Credential,
	ls *Linkset, artifacts []Artifact,
	record *AnchorRecord) (ChainVerification, error) {

	var out ChainVerification

	if ls == nil {
		return out, errors.New("linkset is required")
	}
	if len(artifacts) != len(ls.Entries) {
		return out, errors.Errorf(
			"artifact count %d does not match linkset entries %d",
			len(artifacts), len(ls.Entries))
	}

	// bottom layer: recompute each artifact digest against its entry
	freshEntries := make([]LinksetEntry, len(ls.Entries))
	for i, a := range artifacts {
		d, err := canonical.Digest(a.Content, l.alg)
		if err != nil {
			return out, errors.WithMessagef(err, "digest artifact %s", a.Href)
		}

		step := StepResult{Step: "artifact:" + a.Href, Valid: true}
		if d.Encoded != ls.Entries[i].Digest {
			step.Valid = false
			step.Reason = "artifact digest does not match linkset entry"
		}
		out.Steps = append(out.Steps, step)

		freshEntries[i] = LinksetEntry{
			Href:   ls.Entries[i].Href,
			Type:   ls.Entries[i].Type,
			Digest: d.Encoded,
		}
	}

	// linkset layer: recompute over the fresh entry digests, compare to
	// the digest the credential stores
	freshLinkset := &Linkset{ID: ls.ID, Entries: freshEntries}
	lsDigest, err := digestLinkset(freshLinkset, l.alg)
	if err != nil {
		return out, err
	}

	lsStep := StepResult{Step: "linkset", Valid: true}
	switch {
	case cred == nil:
		lsStep.Valid = lsDigest.Encoded == ls.Digest
		if !lsStep.Valid {
			lsStep.Reason = "linkset digest does not match embedded digest"
		}
	case cred.LinksetDigest == "":
		lsStep.Valid = false
		lsStep.Reason = "credential references no linkset digest"
	case lsDigest.Encoded != cred.LinksetDigest:
		lsStep.Valid = false
		lsStep.Reason = "linkset digest does not match credential reference"
	}
	out.Steps = append(out.Steps, lsStep)

	if cred == nil || record == nil {
		return out, nil
	}

	// credential layer: recompute with the fresh linkset digest in place,
	// compare to the digest the anchor record stores
	credCopy := *cred
	credCopy.LinksetDigest = lsDigest.Encoded
	credDigest, err := credCopy.Digest(l.alg)
	if err != nil {
		return out, err
	}

	credStep := StepResult{Step: "credential", Valid: true}
	if credDigest.Encoded != record.CredentialDigest {
		credStep.Valid = false
		credStep.Reason = "credential digest does not match anchor record"
	}
	out.Steps = append(out.Steps, credStep)

	// anchor layer: read the ledger and compare against the recomputed
	// credential digest
	if l.anchors == nil {
		return out, errors.New("no anchor registry configured")
	}
	anchored, err := l.anchors.Read(ctx, record.Ref)
	if err != nil {
		return out, errors.WithMessagef(err, "read anchor %s", record.Ref.TxID)
	}

	anchorStep := StepResult{Step: "anchor", Valid: true}
	if anchored != credDigest.Encoded {
		anchorStep.Valid = false
		anchorStep.Reason = "anchored digest does not match recomputed credential digest"
	}
	out.Steps = append(out.Steps, anchorStep)

	return out, nil
}
