package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// HTTPStatusType is the reference type served by HTTPSource.
const HTTPStatusType = "HttpStatusList2023"

const maxStatusBodyBytes = 16 * 1024

// HTTPSource fetches a revocation status record from the URL in the
// reference id. Responses larger than 16 KiB are rejected.
type HTTPSource struct {
	// Client overrides http.DefaultClient when set.
	Client *http.Client
}

func (s HTTPSource) CheckStatus(ctx context.Context, ref Reference) (out Status, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.ID,
		http.NoBody)
	if err != nil {
		return out, errors.WithMessage(err, "build status request")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return out, errors.WithMessage(err, "fetch status")
	}
	defer func() {
		err2 := resp.Body.Close()
		if err2 != nil && err == nil {
			err = err2
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, errors.Errorf("unexpected status code: %d",
			resp.StatusCode)
	}

	limited := &io.LimitedReader{R: resp.Body, N: maxStatusBodyBytes}
	body, err := io.ReadAll(limited)
	if err != nil {
		return out, err
	}
	if limited.N <= 0 {
		return out, errors.Errorf("response body exceeds %d bytes",
			maxStatusBodyBytes)
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, errors.WithMessage(err, "decode status body")
	}
	return out, nil
}
