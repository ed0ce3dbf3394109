package issuer

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trufnetwork/credit-attestation/internal/claim"
	"github.com/trufnetwork/credit-attestation/internal/tracing"
)

// BatchResult is the outcome of one batch item. On success Value is the
// normalised claim; on failure it echoes the request as received.
type BatchResult struct {
	Success   bool   `json:"success"`
	Value     any    `json:"value"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Failed builds the result for an item that never reached the issuer, such as
// one that could not be decoded.
func Failed(value any, err error) BatchResult {
	return BatchResult{Success: false, Value: value, Error: err.Error(), Err: err}
}

// IssueBatch issues every request independently and concurrently. The result
// slice has the same length and order as reqs; one item's failure never
// affects another.
func (i *Issuer) IssueBatch(ctx context.Context, reqs []claim.Request) []BatchResult {
	results, _ := tracing.Traced(ctx, tracing.OpIssueBatch, func(ctx context.Context) ([]BatchResult, error) {
		results := make([]BatchResult, len(reqs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(i.batchConcurrency)
		for idx, req := range reqs {
			g.Go(func() error {
				// Items never return errors to the group, so one failure
				// cannot cancel its siblings.
				att, err := i.Issue(gctx, req)
				if err != nil {
					results[idx] = Failed(req, err)
					return nil
				}
				results[idx] = BatchResult{
					Success:   true,
					Value:     att.Value,
					Signature: att.Signature,
				}
				return nil
			})
		}
		_ = g.Wait()

		failed := lo.CountBy(results, func(r BatchResult) bool { return !r.Success })
		i.metrics.RecordBatch(ctx, len(reqs), failed)
		i.logger.Info("signed batch", zap.Int("size", len(reqs)), zap.Int("failed", failed))
		return results, nil
	}, attribute.Int("batch.size", len(reqs)))
	return results
}
