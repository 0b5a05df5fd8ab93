package anchors

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MemoryClient is an in-process anchor ledger. It gives tests and local
// runs the full write/read cycle without a chain behind it.
type MemoryClient struct {
	chainID string

	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryClient returns an empty in-memory ledger for the chain id.
func NewMemoryClient(chainID string) *MemoryClient {
	return &MemoryClient{
		chainID: chainID,
		entries: make(map[string]string),
	}
}

func (c *MemoryClient) Write(_ context.Context, encodedDigest string) (Ref, error) {
	if encodedDigest == "" {
		return Ref{}, errors.New("refusing to anchor an empty digest")
	}

	txID := uuid.NewString()

	c.mu.Lock()
	c.entries[txID] = encodedDigest
	c.mu.Unlock()

	return Ref{ChainID: c.chainID, TxID: txID}, nil
}

func (c *MemoryClient) Read(_ context.Context, ref Ref) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	digest, ok := c.entries[ref.TxID]
	if !ok {
		return "", errors.Errorf("no anchor at tx %s", ref.TxID)
	}
	return digest, nil
}
