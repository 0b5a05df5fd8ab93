package trust

import (
	"sort"
	"sync"
)

// Anchor is a DID explicitly authorized to issue the listed credential
// types. A type not listed is untrusted for that anchor.
type Anchor struct {
	DID             string
	CredentialTypes map[string]struct{}
	Description     string
}

// AllowsType reports whether the anchor covers a credential type.
func (a *Anchor) AllowsType(credType string) bool {
	_, ok := a.CredentialTypes[credType]
	return ok
}

// Registry holds the trust anchors. Mutation happens only through AddAnchor
// and RemoveAnchor; verification never writes.
type Registry struct {
	mu      sync.RWMutex
	anchors map[string]*Anchor
}

// NewRegistry returns an empty trust registry.
func NewRegistry() *Registry {
	return &Registry{anchors: make(map[string]*Anchor)}
}

// AddAnchor registers a DID as a trust anchor for the given credential
// types, replacing any previous entry for the same DID.
func (r *Registry) AddAnchor(did string, credentialTypes []string, description string) {
	types := make(map[string]struct{}, len(credentialTypes))
	for _, t := range credentialTypes {
		types[t] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors[did] = &Anchor{
		DID:             did,
		CredentialTypes: types,
		Description:     description,
	}
}

// RemoveAnchor drops the anchor for a DID, if present.
func (r *Registry) RemoveAnchor(did string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.anchors, did)
}

// IsTrusted reports whether the DID is directly anchored for the credential
// type.
func (r *Registry) IsTrusted(did, credType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	anchor, ok := r.anchors[did]
	return ok && anchor.AllowsType(credType)
}

// Anchor returns the registered anchor for a DID.
func (r *Registry) Anchor(did string) (*Anchor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	anchor, ok := r.anchors[did]
	return anchor, ok
}

// AnchorsForType lists the anchors covering a credential type, sorted by
// DID for deterministic walk order.
func (r *Registry) AnchorsForType(credType string) []*Anchor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Anchor
	for _, anchor := range r.anchors {
		if anchor.AllowsType(credType) {
			out = append(out, anchor)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DID < out[j].DID })
	return out
}
