package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// EventEmitter records everything emitted, safe for concurrent use
type EventEmitter struct {
	mu     sync.Mutex
	events []bidding.Event
}

func (m *EventEmitter) Emit(e bidding.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *EventEmitter) Events() []bidding.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bidding.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *EventEmitter) EventsOfType(t bidding.EventType) []bidding.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []bidding.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// RateLimiter mock
type RateLimiter struct {
	mock.Mock
}

func (m *RateLimiter) Allow(ctx context.Context, bidderID uuid.UUID) error {
	args := m.Called(ctx, bidderID)
	return args.Error(0)
}

// SnapshotCache mock
type SnapshotCache struct {
	mock.Mock
}

func (m *SnapshotCache) Get(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, bool) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*auction.Auction), args.Bool(1)
}

func (m *SnapshotCache) Set(ctx context.Context, a *auction.Auction) {
	m.Called(ctx, a)
}

func (m *SnapshotCache) Invalidate(ctx context.Context, auctionID uuid.UUID) {
	m.Called(ctx, auctionID)
}

// MetricsCollector counts calls, safe for concurrent use
type MetricsCollector struct {
	mu         sync.Mutex
	Accepted   int
	Rejections map[string]int
	Extended   int
	Closed     int
	LockWaits  int
}

func (m *MetricsCollector) RecordBidAccepted(ctx context.Context, a *auction.Auction, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accepted++
}

func (m *MetricsCollector) RecordBidRejected(ctx context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Rejections == nil {
		m.Rejections = make(map[string]int)
	}
	m.Rejections[reason]++
}

func (m *MetricsCollector) RecordAuctionExtended(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Extended++
}

func (m *MetricsCollector) RecordAuctionClosed(ctx context.Context, a *auction.Auction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed++
}

func (m *MetricsCollector) RecordLockWait(ctx context.Context, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockWaits++
}
