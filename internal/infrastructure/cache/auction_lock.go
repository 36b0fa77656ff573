package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/domain/errors"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

const (
	sweepLockKey      = "lock:auction:sweep"
	auctionLockPrefix = "lock:auction:section:"
)

// SweepLock is a best-effort cross-instance advisory lock so only one
// sweeper closes expired auctions at a time. Close is idempotent, so
// losing the lock race or holding it past expiry is safe, just
// wasteful.
type SweepLock struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
	token  string
}

func NewSweepLock(client *redis.Client, logger *zap.Logger, ttl time.Duration) *SweepLock {
	return &SweepLock{
		client: client,
		logger: logger,
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

// TryAcquire returns true if this instance holds the sweep lock. Redis
// being unavailable fails open.
func (l *SweepLock) TryAcquire(ctx context.Context) bool {
	ok, err := l.client.SetNX(ctx, sweepLockKey, l.token, l.ttl).Result()
	if err != nil {
		l.logger.Warn("sweep lock unavailable, proceeding without it", zap.Error(err))
		return true
	}
	return ok
}

// Release drops the lock if this instance still holds it
func (l *SweepLock) Release(ctx context.Context) {
	if err := l.client.Eval(ctx, compareAndDelScript, []string{sweepLockKey}, l.token).Err(); err != nil {
		l.logger.Warn("sweep lock release failed", zap.Error(err))
	}
}

const compareAndDelScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// AuctionLockManager is the cross-instance half of the per-auction
// exclusive section: a SetNX advisory lock keyed by auction, layered
// over the engine's in-process mutex. Redis being unavailable fails
// open; the optimistic version guard on the snapshot write still
// rejects any interleaved update.
type AuctionLockManager struct {
	client    *redis.Client
	logger    *zap.Logger
	ttl       time.Duration
	retryWait time.Duration
	token     string
}

func NewAuctionLockManager(client *redis.Client, logger *zap.Logger, ttl time.Duration) bidding.AdvisoryLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &AuctionLockManager{
		client:    client,
		logger:    logger,
		ttl:       ttl,
		retryWait: 25 * time.Millisecond,
		token:     uuid.NewString(),
	}
}

// Acquire polls SetNX until the lock is held or ctx expires. The TTL
// bounds how long a crashed holder can block other instances.
func (m *AuctionLockManager) Acquire(ctx context.Context, auctionID uuid.UUID) (func(), error) {
	key := auctionLockPrefix + auctionID.String()

	for {
		ok, err := m.client.SetNX(ctx, key, m.token, m.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.ErrLockTimeout.WithCause(ctx.Err())
			}
			m.logger.Warn("auction advisory lock unavailable, proceeding without it",
				zap.String("auction_id", auctionID.String()),
				zap.Error(err),
			)
			return func() {}, nil
		}
		if ok {
			return func() { m.release(key) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.ErrLockTimeout.WithCause(ctx.Err())
		case <-time.After(m.retryWait):
		}
	}
}

// release is detached from the acquiring context so the lock is freed
// even when the request deadline has already passed
func (m *AuctionLockManager) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.client.Eval(ctx, compareAndDelScript, []string{key}, m.token).Err(); err != nil {
		m.logger.Warn("auction advisory lock release failed", zap.Error(err))
	}
}
