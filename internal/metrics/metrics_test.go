package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewRecorder(t *testing.T) {
	// The global provider defaults to a no-op implementation that still hands
	// out instruments, so a usable recorder always comes back.
	recorder := NewRecorder(zap.NewNop())
	assert.NotNil(t, recorder)
}

func TestOTELMetricsWithNoopMeter(t *testing.T) {
	m, err := NewOTELMetrics(noop.NewMeterProvider().Meter("test"), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordIssued(ctx, "ed25519", 3*time.Millisecond)
		m.RecordRejected(ctx, "expired_deadline")
		m.RecordBatch(ctx, 4, 1)
		m.RecordVerify(ctx, true)
		m.RecordUpstreamCall(ctx, "oracle", time.Second, errors.New("timeout"))
		m.RecordFallback(ctx, "oracle", "unavailable")
		m.RecordCircuitBreakerStateChange(ctx, "oracle", "closed", "open")
	})
}

func TestNoOpMetrics(t *testing.T) {
	var r Recorder = NewNoOpMetrics()
	ctx := context.Background()
	assert.NotPanics(t, func() {
		r.RecordIssued(ctx, "secp256k1", time.Millisecond)
		r.RecordUpstreamCall(ctx, "chain", time.Millisecond, nil)
	})
}
