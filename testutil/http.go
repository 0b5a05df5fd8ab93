package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type routedTripper struct {
	t      testing.TB
	routes map[string]string

	mu   sync.Mutex
	seen map[string]struct{}
}

func (m *routedTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	urlStr := req.URL.String()

	body, ok := m.routes[urlStr]
	if !ok {
		m.t.Errorf("unexpected http request: %v", urlStr)
		rr := httptest.NewRecorder()
		rr.WriteHeader(http.StatusNotFound)
		resp := rr.Result()
		resp.Request = req
		return resp, nil
	}

	m.mu.Lock()
	m.seen[urlStr] = struct{}{}
	m.mu.Unlock()

	rr := httptest.NewRecorder()
	rr.Header().Set("Content-Type", "application/json")
	_, _ = rr.WriteString(body)
	resp := rr.Result()
	resp.Request = req
	return resp, nil
}

// MockHTTPClient swaps http.DefaultTransport for a route map of URL →
// response body. The returned restore func asserts every route was hit;
// tests that intentionally leave routes untouched pass ignoreUntouched.
func MockHTTPClient(t testing.TB, routes map[string]string,
	ignoreUntouched bool) func() {

	old := http.DefaultTransport
	tripper := &routedTripper{
		t:      t,
		routes: routes,
		seen:   make(map[string]struct{}),
	}
	http.DefaultTransport = tripper

	return func() {
		http.DefaultTransport = old

		if ignoreUntouched {
			return
		}
		for u := range routes {
			_, ok := tripper.seen[u]
			assert.True(t, ok, "route never requested: %v", u)
		}
	}
}
