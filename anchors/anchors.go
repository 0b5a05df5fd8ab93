package anchors

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Ref identifies a written anchor on a specific ledger.
type Ref struct {
	ChainID string `json:"chainId"`
	TxID    string `json:"txId"`
}

// Client is the per-ledger adapter the engine talks through. Write anchors
// an encoded digest and returns where it landed; Read recovers the digest
// stored at a reference.
type Client interface {
	Write(ctx context.Context, encodedDigest string) (Ref, error)
	Read(ctx context.Context, ref Ref) (string, error)
}

// ChainNotRegisteredError reports an unknown chain id along with the ids
// that are registered.
type ChainNotRegisteredError struct {
	ChainID   string
	Available []string
}

func (e *ChainNotRegisteredError) Error() string {
	return errors.Errorf("anchor chain %q is not registered, available: %v",
		e.ChainID, e.Available).Error()
}

// Registry holds one Client per chain id.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry returns an empty anchor client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds or replaces the client for a chain id.
func (r *Registry) Register(chainID string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[chainID] = c
}

// Get returns the client for a chain id.
func (r *Registry) Get(chainID string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[chainID]
	if !ok {
		available := make([]string, 0, len(r.clients))
		for id := range r.clients {
			available = append(available, id)
		}
		sort.Strings(available)
		return nil, &ChainNotRegisteredError{
			ChainID:   chainID,
			Available: available,
		}
	}
	return c, nil
}

// Write anchors a digest through the client registered for chainID.
func (r *Registry) Write(ctx context.Context, chainID, encodedDigest string) (Ref, error) {
	c, err := r.Get(chainID)
	if err != nil {
		return Ref{}, err
	}
	return c.Write(ctx, encodedDigest)
}

// Read recovers the digest stored at ref through the client registered for
// its chain.
func (r *Registry) Read(ctx context.Context, ref Ref) (string, error) {
	c, err := r.Get(ref.ChainID)
	if err != nil {
		return "", err
	}
	return c.Read(ctx, ref)
}
