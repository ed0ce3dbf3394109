package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// OTELMetrics implements Recorder using OpenTelemetry.
type OTELMetrics struct {
	issued          metric.Int64Counter
	rejected        metric.Int64Counter
	signDuration    metric.Float64Histogram
	batchSize       metric.Int64Histogram
	batchFailures   metric.Int64Counter
	verifications   metric.Int64Counter
	upstreamLatency metric.Float64Histogram
	upstreamErrors  metric.Int64Counter
	fallbacks       metric.Int64Counter
	breakerChanges  metric.Int64Counter

	logger *zap.Logger
}

// NewOTELMetrics creates every instrument up front.
func NewOTELMetrics(meter metric.Meter, logger *zap.Logger) (*OTELMetrics, error) {
	m := &OTELMetrics{logger: logger}

	var err error

	m.issued, err = meter.Int64Counter("credit_attestation.issued",
		metric.WithDescription("Number of attestations signed"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.rejected, err = meter.Int64Counter("credit_attestation.rejected",
		metric.WithDescription("Number of claims rejected before signing"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.signDuration, err = meter.Float64Histogram("credit_attestation.issue.duration",
		metric.WithDescription("Time taken to validate, encode and sign a claim"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.batchSize, err = meter.Int64Histogram("credit_attestation.batch.size",
		metric.WithDescription("Number of claims per batch request"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.batchFailures, err = meter.Int64Counter("credit_attestation.batch.failures",
		metric.WithDescription("Number of failed items across batch requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.verifications, err = meter.Int64Counter("credit_attestation.verify",
		metric.WithDescription("Number of signature verifications"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.upstreamLatency, err = meter.Float64Histogram("credit_attestation.upstream.duration",
		metric.WithDescription("Latency of calls to upstream services"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.upstreamErrors, err = meter.Int64Counter("credit_attestation.upstream.errors",
		metric.WithDescription("Number of failed upstream calls"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.fallbacks, err = meter.Int64Counter("credit_attestation.upstream.fallbacks",
		metric.WithDescription("Number of times a local fallback replaced an upstream answer"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.breakerChanges, err = meter.Int64Counter("credit_attestation.circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *OTELMetrics) RecordIssued(ctx context.Context, scheme string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("scheme", scheme))
	m.issued.Add(ctx, 1, attrs)
	m.signDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *OTELMetrics) RecordRejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *OTELMetrics) RecordBatch(ctx context.Context, size, failed int) {
	m.batchSize.Record(ctx, int64(size))
	if failed > 0 {
		m.batchFailures.Add(ctx, int64(failed))
	}
}

func (m *OTELMetrics) RecordVerify(ctx context.Context, valid bool) {
	m.verifications.Add(ctx, 1, metric.WithAttributes(attribute.Bool("valid", valid)))
}

func (m *OTELMetrics) RecordUpstreamCall(ctx context.Context, upstream string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("upstream", upstream))
	m.upstreamLatency.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.upstreamErrors.Add(ctx, 1, attrs)
	}
}

func (m *OTELMetrics) RecordFallback(ctx context.Context, upstream, reason string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("upstream", upstream),
		attribute.String("reason", reason)))
}

func (m *OTELMetrics) RecordCircuitBreakerStateChange(ctx context.Context, name, from, to string) {
	m.breakerChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to)))
	m.logger.Info("circuit breaker state changed",
		zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
}
