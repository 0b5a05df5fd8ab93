package trust

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustweave/go-trust-engine/resolver"
)

type staticHandler struct {
	docs map[string]*resolver.DIDDocument
}

func (h *staticHandler) Resolve(_ context.Context, did string) (*resolver.DIDDocument, error) {
	doc, ok := h.docs[did]
	if !ok {
		return nil, resolver.ErrDIDNotFound
	}
	return doc, nil
}

func (h *staticHandler) Create(context.Context, map[string]interface{}) (*resolver.DIDDocument, error) {
	return nil, resolver.ErrDIDNotFound
}

// delegationDoc builds a document whose capabilityDelegation points at the
// given delegate DIDs.
func delegationDoc(did string, delegates ...string) *resolver.DIDDocument {
	doc := &resolver.DIDDocument{ID: did}
	for _, d := range delegates {
		doc.CapabilityDelegation = append(doc.CapabilityDelegation, d+"#key-1")
	}
	return doc
}

func newTrustFixture(docs map[string]*resolver.DIDDocument) (*Registry, *Resolver) {
	dids := resolver.NewRegistry()
	dids.RegisterMethod("x", &staticHandler{docs: docs})

	anchors := NewRegistry()
	return anchors, NewResolver(anchors, dids)
}

func TestRegistry_DirectTrust(t *testing.T) {
	r := NewRegistry()
	r.AddAnchor("did:x:univ", []string{"DegreeCredential"}, "university")

	assert.True(t, r.IsTrusted("did:x:univ", "DegreeCredential"))
	assert.False(t, r.IsTrusted("did:x:univ", "DriverLicense"))
	assert.False(t, r.IsTrusted("did:x:other", "DegreeCredential"))

	r.RemoveAnchor("did:x:univ")
	assert.False(t, r.IsTrusted("did:x:univ", "DegreeCredential"))
}

func TestResolveTrustPath_SingleHop(t *testing.T) {
	_, res := newTrustFixture(map[string]*resolver.DIDDocument{
		"did:x:univ":    delegationDoc("did:x:univ", "did:x:college"),
		"did:x:college": delegationDoc("did:x:college"),
	})

	path, err := res.ResolveTrustPath(context.Background(),
		"did:x:univ", "did:x:college")
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.Equal(t, []string{"did:x:univ", "did:x:college"}, path.Path)
	assert.InDelta(t, 0.9, path.Score, 1e-9)
}

func TestResolveTrustPath_MultiHop(t *testing.T) {
	_, res := newTrustFixture(map[string]*resolver.DIDDocument{
		"did:x:a": delegationDoc("did:x:a", "did:x:b"),
		"did:x:b": delegationDoc("did:x:b", "did:x:c"),
		"did:x:c": delegationDoc("did:x:c"),
	})

	path, err := res.ResolveTrustPath(context.Background(), "did:x:a", "did:x:c")
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.Equal(t, []string{"did:x:a", "did:x:b", "did:x:c"}, path.Path)
	assert.InDelta(t, 0.81, path.Score, 1e-9)
}

func TestResolveTrustPath_NoPath(t *testing.T) {
	_, res := newTrustFixture(map[string]*resolver.DIDDocument{
		"did:x:a": delegationDoc("did:x:a"),
		"did:x:b": delegationDoc("did:x:b"),
	})

	path, err := res.ResolveTrustPath(context.Background(), "did:x:a", "did:x:b")
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestResolveTrustPath_CycleFailsClosed(t *testing.T) {
	_, res := newTrustFixture(map[string]*resolver.DIDDocument{
		"did:x:a": delegationDoc("did:x:a", "did:x:b"),
		"did:x:b": delegationDoc("did:x:b", "did:x:a"),
	})

	_, err := res.ResolveTrustPath(context.Background(), "did:x:a", "did:x:target")
	require.ErrorIs(t, err, ErrDelegationCycle)
}

func TestResolveTrustPath_DepthBound(t *testing.T) {
	docs := map[string]*resolver.DIDDocument{
		"did:x:0": delegationDoc("did:x:0", "did:x:1"),
		"did:x:1": delegationDoc("did:x:1", "did:x:2"),
		"did:x:2": delegationDoc("did:x:2", "did:x:3"),
		"did:x:3": delegationDoc("did:x:3"),
	}

	dids := resolver.NewRegistry()
	dids.RegisterMethod("x", &staticHandler{docs: docs})
	res := NewResolver(NewRegistry(), dids, WithMaxDepth(2))

	path, err := res.ResolveTrustPath(context.Background(), "did:x:0", "did:x:3")
	require.NoError(t, err)
	assert.Nil(t, path)

	path, err = res.ResolveTrustPath(context.Background(), "did:x:0", "did:x:2")
	require.NoError(t, err)
	require.NotNil(t, path)
}

func TestIsTrustedForIssuer_ViaDelegation(t *testing.T) {
	anchors, res := newTrustFixture(map[string]*resolver.DIDDocument{
		"did:x:univ":    delegationDoc("did:x:univ", "did:x:college"),
		"did:x:college": delegationDoc("did:x:college"),
	})
	anchors.AddAnchor("did:x:univ", []string{"DegreeCredential"}, "university")
	ctx := context.Background()

	trusted, err := res.IsTrustedForIssuer(ctx, "did:x:college", "DegreeCredential")
	require.NoError(t, err)
	assert.True(t, trusted)

	// type not covered by the anchor
	trusted, err = res.IsTrustedForIssuer(ctx, "did:x:college", "DriverLicense")
	require.NoError(t, err)
	assert.False(t, trusted)
}

func TestIsTrustedForIssuer_HonorsLiveRevocation(t *testing.T) {
	docs := map[string]*resolver.DIDDocument{
		"did:x:univ":    delegationDoc("did:x:univ", "did:x:college"),
		"did:x:college": delegationDoc("did:x:college"),
	}
	anchors, res := newTrustFixture(docs)
	anchors.AddAnchor("did:x:univ", []string{"DegreeCredential"}, "university")
	ctx := context.Background()

	trusted, err := res.IsTrustedForIssuer(ctx, "did:x:college", "DegreeCredential")
	require.NoError(t, err)
	require.True(t, trusted)

	// the university withdraws the delegation; every hop re-resolves, so
	// the next walk sees the updated document immediately
	docs["did:x:univ"] = delegationDoc("did:x:univ")

	trusted, err = res.IsTrustedForIssuer(ctx, "did:x:college", "DegreeCredential")
	require.NoError(t, err)
	assert.False(t, trusted)
}
