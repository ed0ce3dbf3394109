// Package metrics provides observability for attestation issuance and its
// upstream dependencies. It uses a plugin pattern so that a process without an
// OpenTelemetry meter provider pays nothing.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// MeterName scopes every instrument created by this package.
const MeterName = "github.com/trufnetwork/credit-attestation"

// Recorder defines the interface for recording issuer and upstream metrics.
type Recorder interface {
	// Issuance
	RecordIssued(ctx context.Context, scheme string, duration time.Duration)
	RecordRejected(ctx context.Context, reason string)
	RecordBatch(ctx context.Context, size, failed int)
	RecordVerify(ctx context.Context, valid bool)

	// Upstreams (scoring oracle, chain client, signer API)
	RecordUpstreamCall(ctx context.Context, upstream string, duration time.Duration, err error)
	RecordFallback(ctx context.Context, upstream, reason string)
	RecordCircuitBreakerStateChange(ctx context.Context, name, from, to string)
}

// NewRecorder returns an OTEL-backed recorder when a meter provider is usable,
// otherwise a no-op.
func NewRecorder(logger *zap.Logger) Recorder {
	meter := otel.GetMeterProvider().Meter(MeterName)

	if _, err := meter.Int64Counter("credit_attestation.test"); err != nil {
		logger.Debug("OpenTelemetry not available, metrics disabled")
		return NewNoOpMetrics()
	}

	otelMetrics, err := NewOTELMetrics(meter, logger)
	if err != nil {
		logger.Warn("failed to initialize OTEL metrics, falling back to no-op", zap.Error(err))
		return NewNoOpMetrics()
	}

	logger.Debug("OpenTelemetry metrics initialized")
	return otelMetrics
}
