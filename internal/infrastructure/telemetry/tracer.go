package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartAuctionSpan starts a span for an auction operation, keyed by
// the auction ID so traces for one auction correlate.
func StartAuctionSpan(ctx context.Context, tracer trace.Tracer, operation string, auctionID uuid.UUID) (context.Context, trace.Span) {
	return tracer.Start(ctx, fmt.Sprintf("auction.%s", operation),
		trace.WithAttributes(
			attribute.String("auction.id", auctionID.String()),
			attribute.String("auction.operation", operation),
		),
	)
}

// StartDatabaseSpan starts a client span for a database operation
func StartDatabaseSpan(ctx context.Context, tracer trace.Tracer, operation, table string) (context.Context, trace.Span) {
	return tracer.Start(ctx, fmt.Sprintf("db.%s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
			attribute.String("db.system", "postgresql"),
		),
	)
}

// WithSpanError records err on the span and marks it failed. Nil is a
// no-op.
func WithSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
