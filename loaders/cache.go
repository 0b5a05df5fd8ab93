package loaders

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"
)

// ErrCacheMiss is returned by CacheEngine.Get for unknown keys.
var ErrCacheMiss = errors.New("cache miss")

// CacheEngine stores remote documents with an expiry.
type CacheEngine interface {
	Get(key string) (doc *ld.RemoteDocument, expire time.Time, err error)
	Set(key string, doc *ld.RemoteDocument, expire time.Time) error
}

type cachedDocument struct {
	doc    *ld.RemoteDocument
	expire time.Time
}

type memoryCacheEngine struct {
	mu    sync.RWMutex
	cache map[string]*cachedDocument

	// embedded documents never expire and are never overwritten
	embedded map[string]*ld.RemoteDocument
}

// MemoryCacheOption configures the in-memory cache engine.
type MemoryCacheOption func(*memoryCacheEngine) error

// WithEmbeddedDocumentBytes pins a document for a URL so it is served
// without any network fetch. Useful for well-known contexts and schemas.
func WithEmbeddedDocumentBytes(u string, doc []byte) MemoryCacheOption {
	return func(e *memoryCacheEngine) error {
		rd := &ld.RemoteDocument{DocumentURL: u}
		if err := json.Unmarshal(doc, &rd.Document); err != nil {
			return errors.WithMessagef(err, "embed document %s", u)
		}
		e.embedded[u] = rd
		return nil
	}
}

// NewMemoryCacheEngine returns an in-memory CacheEngine.
func NewMemoryCacheEngine(opts ...MemoryCacheOption) CacheEngine {
	e := &memoryCacheEngine{
		cache:    make(map[string]*cachedDocument),
		embedded: make(map[string]*ld.RemoteDocument),
	}
	for _, opt := range opts {
		// embed errors surface on first Get as a miss; keep construction
		// infallible for the common no-option path
		_ = opt(e)
	}
	return e
}

func (e *memoryCacheEngine) Get(key string) (*ld.RemoteDocument, time.Time, error) {
	if doc, ok := e.embedded[key]; ok {
		return doc, time.Now().Add(time.Hour), nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if cd, ok := e.cache[key]; ok {
		return cd.doc, cd.expire, nil
	}
	return nil, time.Time{}, ErrCacheMiss
}

func (e *memoryCacheEngine) Set(key string, doc *ld.RemoteDocument,
	expire time.Time) error {

	if _, ok := e.embedded[key]; ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[key] = &cachedDocument{doc: doc, expire: expire}
	return nil
}
