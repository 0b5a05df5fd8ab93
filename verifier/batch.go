package verifier

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/trustweave/go-trust-engine/issuer"
)

const defaultBatchConcurrency = 4

// VerifyBatch verifies independent credentials in parallel through a
// bounded worker pool, so a large batch cannot fan out into unbounded
// concurrent resolution calls. Outcomes align positionally with the input.
// The first infrastructure fault cancels the remaining work and is
// returned.
func (v *Verifier) VerifyBatch(ctx context.Context,
	creds []*issuer.Credential, pol Policy,
	concurrency int) ([]Outcome, error) {

	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	outcomes := make([]Outcome, len(creds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, cred := range creds {
		i, cred := i, cred
		g.Go(func() error {
			outcome, err := v.Verify(gctx, cred, pol)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
