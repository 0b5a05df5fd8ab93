package resolver

import (
	"sync"
	"time"
)

type cachedDocument struct {
	doc    *DIDDocument
	expire time.Time
}

// documentCache is a TTL'd in-memory resolution cache. Entries past their
// expiry are treated as misses and lazily overwritten.
type documentCache struct {
	mu      sync.RWMutex
	entries map[string]cachedDocument
}

func newDocumentCache() *documentCache {
	return &documentCache{entries: make(map[string]cachedDocument)}
}

func (c *documentCache) get(did string) (*DIDDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[did]
	if !ok || time.Now().After(entry.expire) {
		return nil, false
	}
	return entry.doc, true
}

func (c *documentCache) set(did string, doc *DIDDocument, expire time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[did] = cachedDocument{doc: doc, expire: expire}
}
