package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
)

// Registry holds the bidding engine's instruments and implements the
// engine's MetricsCollector interface.
type Registry struct {
	meter metric.Meter

	BidProcessingDuration  metric.Float64Histogram
	BidAcceptedCounter     metric.Int64Counter
	BidRejectedCounter     metric.Int64Counter
	AuctionExtendedCounter metric.Int64Counter
	AuctionClosedCounter   metric.Int64Counter
	LockWaitDuration       metric.Float64Histogram
}

// NewRegistry creates the instruments on the global meter provider
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error

	r.BidProcessingDuration, err = meter.Float64Histogram(
		"ccx.bid.processing_duration",
		metric.WithDescription("Duration of the bid accept cycle in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	r.BidAcceptedCounter, err = meter.Int64Counter(
		"ccx.bid.accepted_total",
		metric.WithDescription("Bids accepted into auction ledgers"),
	)
	if err != nil {
		return nil, err
	}

	r.BidRejectedCounter, err = meter.Int64Counter(
		"ccx.bid.rejected_total",
		metric.WithDescription("Bids rejected, partitioned by reason"),
	)
	if err != nil {
		return nil, err
	}

	r.AuctionExtendedCounter, err = meter.Int64Counter(
		"ccx.auction.extended_total",
		metric.WithDescription("Anti-snipe end time extensions applied"),
	)
	if err != nil {
		return nil, err
	}

	r.AuctionClosedCounter, err = meter.Int64Counter(
		"ccx.auction.closed_total",
		metric.WithDescription("Auctions closed, partitioned by final status"),
	)
	if err != nil {
		return nil, err
	}

	r.LockWaitDuration, err = meter.Float64Histogram(
		"ccx.auction.lock_wait_duration",
		metric.WithDescription("Time spent waiting for an auction's exclusive section in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) RecordBidAccepted(ctx context.Context, a *auction.Auction, duration time.Duration) {
	r.BidAcceptedCounter.Add(ctx, 1)
	r.BidProcessingDuration.Record(ctx, float64(duration.Microseconds())/1000.0)
}

func (r *Registry) RecordBidRejected(ctx context.Context, reason string) {
	r.BidRejectedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Registry) RecordAuctionExtended(ctx context.Context) {
	r.AuctionExtendedCounter.Add(ctx, 1)
}

func (r *Registry) RecordAuctionClosed(ctx context.Context, a *auction.Auction) {
	r.AuctionClosedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", a.Status.String())))
}

func (r *Registry) RecordLockWait(ctx context.Context, duration time.Duration) {
	r.LockWaitDuration.Record(ctx, float64(duration.Microseconds())/1000.0)
}
