package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// bidRepository implements BidRepository using PostgreSQL
type bidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates a new bid repository
func NewBidRepository(pool *pgxpool.Pool) bidding.BidRepository {
	return &bidRepository{pool: pool}
}

// ListByAuction returns the auction's full ledger in acceptance order
func (r *bidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, auction_id, bidder_id, max_amount::text, is_winning, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY created_at ASC, id ASC
	`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	return scanBids(rows)
}

// ListByBidder returns a bidder's bids across auctions, newest first
func (r *bidRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID, limit int) ([]*bid.Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, auction_id, bidder_id, max_amount::text, is_winning, created_at
		FROM bids
		WHERE bidder_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, bidderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	return scanBids(rows)
}

func scanBids(rows pgx.Rows) ([]*bid.Bid, error) {
	var bids []*bid.Bid
	for rows.Next() {
		var (
			b         bid.Bid
			maxAmount string
		)
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &maxAmount, &b.IsWinning, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		m, err := values.NewMoneyFromString(maxAmount, values.EUR)
		if err != nil {
			return nil, fmt.Errorf("bad max amount %q: %w", maxAmount, err)
		}
		b.MaxAmount = m
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}
