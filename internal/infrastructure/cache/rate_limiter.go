package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/domain/errors"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

const bidRateKeyPrefix = "ratelimit:bids:"

// BidRateLimiter caps bid submissions per bidder over a sliding
// window, backed by a Redis sorted set of submission timestamps.
type BidRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
	limit  int
	window time.Duration
}

func NewBidRateLimiter(client *redis.Client, logger *zap.Logger, limit int, window time.Duration) bidding.RateLimiter {
	return &BidRateLimiter{
		client: client,
		logger: logger,
		limit:  limit,
		window: window,
	}
}

// Allow admits the submission or returns a retryable rate limit error.
// Redis being down fails open: a hot auction should not stop taking
// bids because the limiter store is unavailable.
func (r *BidRateLimiter) Allow(ctx context.Context, bidderID uuid.UUID) error {
	now := time.Now()
	key := bidRateKeyPrefix + bidderID.String()
	windowStart := now.Add(-r.window)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond()%1000)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	pipe.Expire(ctx, key, r.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("bid rate limiter unavailable, failing open",
			zap.String("bidder_id", bidderID.String()),
			zap.Error(err))
		return nil
	}

	if countCmd.Val() >= int64(r.limit) {
		r.client.ZRem(ctx, key, member)
		return errors.NewTimeoutError("BID_RATE_LIMITED",
			fmt.Sprintf("bid rate limit of %d per %s exceeded", r.limit, r.window)).
			WithDetails(map[string]interface{}{
				"limit":  r.limit,
				"window": r.window.String(),
			})
	}

	return nil
}
