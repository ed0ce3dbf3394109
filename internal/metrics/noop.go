package metrics

import (
	"context"
	"time"
)

// NoOpMetrics is a Recorder that discards everything.
type NoOpMetrics struct{}

func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (n *NoOpMetrics) RecordIssued(ctx context.Context, scheme string, duration time.Duration) {}

func (n *NoOpMetrics) RecordRejected(ctx context.Context, reason string) {}

func (n *NoOpMetrics) RecordBatch(ctx context.Context, size, failed int) {}

func (n *NoOpMetrics) RecordVerify(ctx context.Context, valid bool) {}

func (n *NoOpMetrics) RecordUpstreamCall(ctx context.Context, upstream string, duration time.Duration, err error) {
}

func (n *NoOpMetrics) RecordFallback(ctx context.Context, upstream, reason string) {}

func (n *NoOpMetrics) RecordCircuitBreakerStateChange(ctx context.Context, name, from, to string) {}
