package trust

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/trustweave/go-trust-engine/resolver"
)

// ErrDelegationCycle reports a delegation walk that revisited a DID. The
// walk fails closed instead of looping.
var ErrDelegationCycle = errors.New("delegation cycle detected")

const (
	defaultMaxDepth = 5
	defaultHopDecay = 0.9
)

// TrustPath is a resolved delegation chain from an anchor down to a target
// DID. Score starts at 1.0 for a direct anchor and decays per hop.
type TrustPath struct {
	Path  []string
	Score float64
}

// Resolver walks delegation chains against live DID documents. Every hop
// re-resolves the delegating DID's document, so a revoked delegation stops
// being honored the moment the document changes; nothing here is served
// from a cache.
type Resolver struct {
	anchors  *Registry
	dids     *resolver.Registry
	maxDepth int
	hopDecay float64
}

// ResolverOption configures a trust Resolver.
type ResolverOption func(*Resolver)

// WithMaxDepth bounds the delegation walk. The walk is always finite; this
// only tightens or relaxes the bound.
func WithMaxDepth(depth int) ResolverOption {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithHopDecay sets the per-hop score decay factor in (0, 1].
func WithHopDecay(decay float64) ResolverOption {
	return func(r *Resolver) {
		if decay > 0 && decay <= 1 {
			r.hopDecay = decay
		}
	}
}

// NewResolver builds a delegation resolver over the anchor registry and the
// DID resolution facade.
func NewResolver(anchors *Registry, dids *resolver.Registry,
	opts ...ResolverOption) *Resolver {

	r := &Resolver{
		anchors:  anchors,
		dids:     dids,
		maxDepth: defaultMaxDepth,
		hopDecay: defaultHopDecay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveTrustPath finds a delegation chain from fromDID to toDID. It
// returns nil when no chain exists within the depth bound, and
// ErrDelegationCycle when the graph loops back on itself.
func (r *Resolver) ResolveTrustPath(ctx context.Context, fromDID,
	toDID string) (*TrustPath, error) {

	if fromDID == toDID {
		return &TrustPath{Path: []string{fromDID}, Score: 1.0}, nil
	}

	visited := map[string]struct{}{fromDID: {}}
	path, err := r.walk(ctx, fromDID, toDID, visited, r.maxDepth)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, nil
	}

	full := append([]string{fromDID}, path...)
	return &TrustPath{
		Path:  full,
		Score: math.Pow(r.hopDecay, float64(len(full)-1)),
	}, nil
}

// walk expands the current DID's capabilityDelegation list one hop at a
// time, depth-first. Each expansion reads the delegator's document fresh:
// an edge exists only if the document lists it right now.
func (r *Resolver) walk(ctx context.Context, current, target string,
	visited map[string]struct{}, depthLeft int) ([]string, error) {

	if depthLeft <= 0 {
		return nil, nil
	}

	doc, err := r.dids.ResolveFresh(ctx, current)
	if err != nil {
		if errors.Is(err, resolver.ErrDIDNotFound) {
			// a vanished delegator simply ends this branch
			return nil, nil
		}
		return nil, err
	}

	for _, ref := range doc.DelegatedRefs() {
		delegateDID, _, err := resolver.SplitKeyRef(ref)
		if err != nil || delegateDID == current {
			// self-references carry no delegation
			continue
		}

		if _, seen := visited[delegateDID]; seen {
			return nil, errors.WithMessagef(ErrDelegationCycle,
				"%s -> %s", current, delegateDID)
		}

		if delegateDID == target {
			return []string{delegateDID}, nil
		}

		visited[delegateDID] = struct{}{}
		path, err := r.walk(ctx, delegateDID, target, visited, depthLeft-1)
		if err != nil {
			return nil, err
		}
		if path != nil {
			return append([]string{delegateDID}, path...), nil
		}
		// backtrack so visited tracks the current path, not the whole
		// traversal; diamonds are legal, cycles are not
		delete(visited, delegateDID)
	}
	return nil, nil
}

// IsTrustedForIssuer reports whether the issuer may issue the credential
// type: either it is a direct anchor for the type, or a registered anchor
// for the type delegates to it through a resolvable chain.
func (r *Resolver) IsTrustedForIssuer(ctx context.Context, issuerDID,
	credType string) (bool, error) {

	if r.anchors.IsTrusted(issuerDID, credType) {
		return true, nil
	}

	for _, anchor := range r.anchors.AnchorsForType(credType) {
		path, err := r.ResolveTrustPath(ctx, anchor.DID, issuerDID)
		if err != nil {
			return false, err
		}
		if path != nil {
			return true, nil
		}
	}
	return false, nil
}
