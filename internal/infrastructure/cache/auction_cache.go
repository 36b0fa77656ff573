package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

const (
	auctionKeyPrefix = "auction:snapshot:"

	// snapshots go stale quickly while bidding is live; writes
	// invalidate, and the TTL bounds staleness if one is missed
	defaultSnapshotTTL = 5 * time.Second
)

// AuctionCache caches auction snapshots in Redis. Misses and Redis
// failures both read as cache misses so the repository stays the
// source of truth.
type AuctionCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

func NewAuctionCache(client *redis.Client, logger *zap.Logger) bidding.SnapshotCache {
	return &AuctionCache{
		client: client,
		logger: logger,
		ttl:    defaultSnapshotTTL,
	}
}

func (c *AuctionCache) Get(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, bool) {
	raw, err := c.client.Get(ctx, auctionKey(auctionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("auction cache read failed",
				zap.String("auction_id", auctionID.String()),
				zap.Error(err))
		}
		return nil, false
	}

	var a auction.Auction
	if err := json.Unmarshal(raw, &a); err != nil {
		c.logger.Warn("auction cache entry corrupt, dropping",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
		c.client.Del(ctx, auctionKey(auctionID))
		return nil, false
	}

	return &a, true
}

func (c *AuctionCache) Set(ctx context.Context, a *auction.Auction) {
	raw, err := json.Marshal(a)
	if err != nil {
		c.logger.Warn("auction cache marshal failed",
			zap.String("auction_id", a.ID.String()),
			zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, auctionKey(a.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("auction cache write failed",
			zap.String("auction_id", a.ID.String()),
			zap.Error(err))
	}
}

func (c *AuctionCache) Invalidate(ctx context.Context, auctionID uuid.UUID) {
	if err := c.client.Del(ctx, auctionKey(auctionID)).Err(); err != nil {
		c.logger.Warn("auction cache invalidate failed",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
	}
}

func auctionKey(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", auctionKeyPrefix, id)
}
