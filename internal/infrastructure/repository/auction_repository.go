package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// auctionRepository implements AuctionRepository using PostgreSQL
type auctionRepository struct {
	pool *pgxpool.Pool
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(pool *pgxpool.Pool) bidding.AuctionRepository {
	return &auctionRepository{pool: pool}
}

const auctionColumns = `
	id, listing_id, seller_id, status,
	starting_price::text, current_bid::text, bid_count, leader_id,
	end_time, version, created_at, updated_at
`

// Create inserts a new auction
func (r *auctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (
			id, listing_id, seller_id, status,
			starting_price, current_bid, bid_count, leader_id,
			end_time, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ListingID, a.SellerID, a.Status.String(),
		a.StartingPrice.Amount(), a.CurrentBid.Amount(), a.BidCount, nullableUUID(a.LeaderID),
		a.EndTime, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetByID loads an auction snapshot
func (r *auctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := fmt.Sprintf(`SELECT %s FROM auctions WHERE id = $1`, auctionColumns)
	return r.scanAuction(r.pool.QueryRow(ctx, query, id))
}

// GetByListingID loads the auction attached to a listing
func (r *auctionRepository) GetByListingID(ctx context.Context, listingID uuid.UUID) (*auction.Auction, error) {
	query := fmt.Sprintf(`SELECT %s FROM auctions WHERE listing_id = $1`, auctionColumns)
	return r.scanAuction(r.pool.QueryRow(ctx, query, listingID))
}

// ApplyBidOutcome persists a resolved bid and the auction snapshot it
// produced in one transaction. The snapshot write is guarded by the
// auction's version; a concurrent writer surfaces as ErrOptimisticLock.
func (r *auctionRepository) ApplyBidOutcome(ctx context.Context, a *auction.Auction, b *bid.Bid) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE auctions
		SET current_bid = $1, bid_count = $2, leader_id = $3,
		    end_time = $4, version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7
	`, a.CurrentBid.Amount(), a.BidCount, nullableUUID(a.LeaderID), a.EndTime, time.Now().UTC(), a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("failed to update auction snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOptimisticLock
	}

	// idempotent against retries of the same outcome
	_, err = tx.Exec(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, max_amount, is_winning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, b.ID, b.AuctionID, b.BidderID, b.MaxAmount.Amount(), b.IsWinning, b.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return ErrForeignKey
		}
		return fmt.Errorf("failed to insert bid: %w", err)
	}

	if b.IsWinning {
		_, err = tx.Exec(ctx, `
			UPDATE bids SET is_winning = false
			WHERE auction_id = $1 AND is_winning AND id <> $2
		`, a.ID, b.ID)
		if err != nil {
			return fmt.Errorf("failed to clear winning flags: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bid outcome: %w", err)
	}

	a.Version++
	return nil
}

// UpdateState persists a lifecycle transition (close or cancel)
func (r *auctionRepository) UpdateState(ctx context.Context, a *auction.Auction) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auctions
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`, a.Status.String(), time.Now().UTC(), a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("failed to update auction state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOptimisticLock
	}
	a.Version++
	return nil
}

// ListExpiredIDs returns active auctions whose end time has passed,
// oldest first, capped at limit
func (r *auctionRepository) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM auctions
		WHERE status = 'active' AND end_time <= $1
		ORDER BY end_time ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *auctionRepository) scanAuction(row pgx.Row) (*auction.Auction, error) {
	var (
		a             auction.Auction
		status        string
		startingPrice string
		currentBid    string
		leaderID      *uuid.UUID
	)

	err := row.Scan(
		&a.ID, &a.ListingID, &a.SellerID, &status,
		&startingPrice, &currentBid, &a.BidCount, &leaderID,
		&a.EndTime, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan auction: %w", err)
	}

	a.Status = auction.ParseStatus(status)
	if a.StartingPrice, err = values.NewMoneyFromString(startingPrice, values.EUR); err != nil {
		return nil, fmt.Errorf("bad starting price %q: %w", startingPrice, err)
	}
	if a.CurrentBid, err = values.NewMoneyFromString(currentBid, values.EUR); err != nil {
		return nil, fmt.Errorf("bad current bid %q: %w", currentBid, err)
	}
	if leaderID != nil {
		a.LeaderID = *leaderID
	}

	return &a, nil
}

func nullableUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}
