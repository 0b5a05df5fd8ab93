package status

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Reference points at an external revocation status record for a
// credential. Type selects the Source implementation via the registry.
type Reference struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Status is the answer of a revocation status lookup.
type Status struct {
	Revoked bool   `json:"revoked"`
	Reason  string `json:"reason,omitempty"`
}

// Source resolves the revocation status behind a reference.
type Source interface {
	CheckStatus(ctx context.Context, ref Reference) (Status, error)
}

// Registry maps status reference types to sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry returns an empty status source registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds or replaces the source for a status type.
func (r *Registry) Register(statusType string, s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[statusType] = s
}

// Get returns the source registered for the status type.
func (r *Registry) Get(statusType string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[statusType]
	if !ok {
		return nil, errors.Errorf("status type %q is not registered",
			statusType)
	}
	return s, nil
}

// CheckStatus dispatches the lookup to the source matching the reference
// type.
func (r *Registry) CheckStatus(ctx context.Context, ref Reference) (Status, error) {
	s, err := r.Get(ref.Type)
	if err != nil {
		return Status{}, err
	}
	return s.CheckStatus(ctx, ref)
}
