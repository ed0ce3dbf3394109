package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"

	"github.com/trufnetwork/credit-attestation/internal/tracing"
)

func TestTraced(t *testing.T) {
	t.Run("successful operation", func(t *testing.T) {
		result, err := tracing.Traced(context.Background(), tracing.OpIssue,
			func(traceCtx context.Context) (string, error) {
				assert.NotNil(t, traceCtx)
				return "signed", nil
			}, attribute.String("recipient", "0x11"))

		assert.NoError(t, err)
		assert.Equal(t, "signed", result)
	})

	t.Run("operation with error", func(t *testing.T) {
		expected := errors.New("signing failed")
		result, err := tracing.Traced(context.Background(), tracing.OpIssue,
			func(context.Context) (int, error) {
				return 0, expected
			})

		assert.ErrorIs(t, err, expected)
		assert.Zero(t, result)
	})

	t.Run("panic propagates", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = tracing.Traced(context.Background(), tracing.OpVerify,
				func(context.Context) (bool, error) {
					panic("boom")
				})
		})
	})
}
