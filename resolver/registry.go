package resolver

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MethodHandler implements one DID method. The registry dispatches to it by
// the method segment of the DID string.
type MethodHandler interface {
	// Resolve returns the current document for the DID, or ErrDIDNotFound.
	Resolve(ctx context.Context, did string) (*DIDDocument, error)
	// Create materializes a new DID and its document.
	Create(ctx context.Context, opts map[string]interface{}) (*DIDDocument, error)
}

// ErrDIDNotFound reports a negative resolution: the method handler was
// reachable and answered that the DID does not exist.
var ErrDIDNotFound = errors.New("did not found")

// ErrResolutionTimeout reports that resolution was cut off by the caller's
// deadline before a positive or negative answer arrived. It is deliberately
// distinct from ErrDIDNotFound; retry policy belongs to the caller.
var ErrResolutionTimeout = errors.New("did resolution timed out")

// MethodNotRegisteredError reports a DID whose method has no handler,
// together with the methods that do.
type MethodNotRegisteredError struct {
	Method    string
	Available []string
}

func (e *MethodNotRegisteredError) Error() string {
	return errors.Errorf("did method %q is not registered, available: %v",
		e.Method, e.Available).Error()
}

// Registry is the DID resolution facade. It owns no method logic itself; it
// parses the method out of the DID and dispatches to the registered handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]MethodHandler

	cacheTTL time.Duration
	cache    *documentCache
}

// Option configures a Registry.
type Option func(*Registry)

// WithCacheTTL enables an in-memory resolution cache with the given TTL.
// Delegation walks bypass it via ResolveFresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.cacheTTL = ttl
		r.cache = newDocumentCache()
	}
}

// NewRegistry returns an empty facade; register handlers before resolving.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{handlers: make(map[string]MethodHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterMethod adds or replaces the handler for a method name ("key",
// "web", ...).
func (r *Registry) RegisterMethod(method string, h MethodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = h
}

// Resolve returns the document for the DID, consulting the cache when one
// is configured.
func (r *Registry) Resolve(ctx context.Context, did string) (*DIDDocument, error) {
	if r.cache != nil {
		if doc, ok := r.cache.get(did); ok {
			return doc, nil
		}
	}

	doc, err := r.ResolveFresh(ctx, did)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.set(did, doc, time.Now().Add(r.cacheTTL))
	}
	return doc, nil
}

// ResolveFresh resolves the DID through its method handler unconditionally,
// never serving a cached document. Freshness-sensitive callers (delegation
// verification) use this path.
func (r *Registry) ResolveFresh(ctx context.Context, did string) (*DIDDocument, error) {
	method, err := didMethod(did)
	if err != nil {
		return nil, err
	}

	handler, err := r.handler(method)
	if err != nil {
		return nil, err
	}

	doc, err := handler.Resolve(ctx, did)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, errors.WithMessagef(ErrResolutionTimeout, "%s", did)
	case errors.Is(err, ErrDIDNotFound):
		return nil, errors.WithMessagef(ErrDIDNotFound, "%s", did)
	case err != nil:
		return nil, errors.WithMessagef(err, "resolve %s", did)
	case doc == nil:
		return nil, errors.WithMessagef(ErrDIDNotFound, "%s", did)
	}
	return doc, nil
}

// Create dispatches DID creation to the handler for the given method.
func (r *Registry) Create(ctx context.Context, method string,
	opts map[string]interface{}) (*DIDDocument, error) {

	handler, err := r.handler(method)
	if err != nil {
		return nil, err
	}
	return handler.Create(ctx, opts)
}

// ResolveKey resolves a "did#fragment" reference down to the raw public key
// bytes of that verification method. Any missing link fails the whole
// lookup; there is no partial result.
func (r *Registry) ResolveKey(ctx context.Context, keyRef string) ([]byte, error) {
	did, _, err := SplitKeyRef(keyRef)
	if err != nil {
		return nil, err
	}

	doc, err := r.Resolve(ctx, did)
	if err != nil {
		return nil, err
	}

	vm, ok := doc.VerificationMethodByID(keyRef)
	if !ok {
		return nil, errors.Errorf("verification method %s not found in %s",
			keyRef, did)
	}
	return vm.KeyBytes()
}

func (r *Registry) handler(method string) (MethodHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[method]
	if !ok {
		available := make([]string, 0, len(r.handlers))
		for m := range r.handlers {
			available = append(available, m)
		}
		sort.Strings(available)
		return nil, &MethodNotRegisteredError{
			Method:    method,
			Available: available,
		}
	}
	return h, nil
}

func didMethod(did string) (string, error) {
	parts := strings.SplitN(did, ":", 3)
	if len(parts) < 3 || parts[0] != "did" || parts[1] == "" {
		return "", errors.Errorf("malformed did %q", did)
	}
	return parts[1], nil
}
