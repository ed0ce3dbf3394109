// Package tracing wraps OpenTelemetry span handling for the issuer and its
// upstream calls.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/trufnetwork/credit-attestation")

// Operation names a traced unit of work.
type Operation string

const (
	OpIssue      Operation = "issuer.issue"
	OpIssueBatch Operation = "issuer.issue_batch"
	OpVerify     Operation = "issuer.verify"

	OpOracleScore   Operation = "scoring.oracle"
	OpChainBalance  Operation = "chain.balance"
	OpChainObjects  Operation = "chain.owned_objects"
	OpChainIdentity Operation = "chain.identifier"
	OpSignerRemote  Operation = "signer.remote_sign"
)

// TraceOp starts a span and returns a function that ends it, recording err.
func TraceOp(ctx context.Context, op Operation, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, string(op), trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Traced runs fn inside a span for op. The span is ended even if fn panics.
func Traced[T any](ctx context.Context, op Operation,
	fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	traceCtx, end := TraceOp(ctx, op, attrs...)
	defer func() {
		if r := recover(); r != nil {
			end(nil)
			panic(r)
		}
	}()

	result, err := fn(traceCtx)
	end(err)
	return result, err
}
