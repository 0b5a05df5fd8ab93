package linker

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trustweave/go-trust-engine/canonical"
)

// Artifact is a content-addressed leaf of the integrity chain: raw bytes
// plus how to find and interpret them.
type Artifact struct {
	Href    string
	Type    string
	Content []byte
}

// LinksetEntry references one artifact by digest.
type LinksetEntry struct {
	Href   string `json:"href"`
	Type   string `json:"type,omitempty"`
	Digest string `json:"digest"`
}

// Linkset is an ordered, digest-referencing index over artifacts. Digest is
// the linkset's own canonical digest, computed over the linkset with the
// Digest field absent and embedded afterwards; a structure never hashes
// itself.
type Linkset struct {
	ID      string         `json:"id,omitempty"`
	Entries []LinksetEntry `json:"entries"`
	Digest  string         `json:"digest,omitempty"`
}

// BuildLinkset digests every artifact, assembles the linkset without its
// own digest field, digests that form, and returns the linkset with the
// digest embedded.
func BuildLinkset(artifacts []Artifact, alg canonical.HashAlg) (*Linkset, error) {
	if len(artifacts) == 0 {
		return nil, errors.New("linkset needs at least one artifact")
	}

	entries := make([]LinksetEntry, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Href == "" {
			return nil, errors.New("artifact href must not be empty")
		}
		d, err := canonical.Digest(a.Content, alg)
		if err != nil {
			return nil, errors.WithMessagef(err, "digest artifact %s", a.Href)
		}
		entries = append(entries, LinksetEntry{
			Href:   a.Href,
			Type:   a.Type,
			Digest: d.Encoded,
		})
	}

	ls := &Linkset{
		ID:      "urn:uuid:" + uuid.NewString(),
		Entries: entries,
	}

	d, err := digestLinkset(ls, alg)
	if err != nil {
		return nil, err
	}
	ls.Digest = d.Encoded
	return ls, nil
}

// digestLinkset computes the linkset's canonical digest over a
// representation that omits the Digest field.
func digestLinkset(ls *Linkset, alg canonical.HashAlg) (canonical.CanonicalDigest, error) {
	doc, err := asMap(ls)
	if err != nil {
		return canonical.CanonicalDigest{}, err
	}
	delete(doc, "digest")
	return canonical.DigestDocument(doc, alg)
}

func asMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WithMessage(err, "marshal")
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.WithMessage(err, "remarshal")
	}
	return doc, nil
}
