package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardhaus/card-exchange-backend/internal/domain/listing"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// listingRepository implements ListingRepository using PostgreSQL
type listingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository creates a new listing repository
func NewListingRepository(pool *pgxpool.Pool) bidding.ListingRepository {
	return &listingRepository{pool: pool}
}

// GetByID loads a listing
func (r *listingRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	var (
		l             listing.Listing
		typ           string
		startingPrice string
		buyNowPrice   *string
		publishedAt   *time.Time
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, seller_id, title, type, starting_price::text, buy_now_price::text,
		       published_at, created_at, updated_at
		FROM listings
		WHERE id = $1
	`, id).Scan(
		&l.ID, &l.SellerID, &l.Title, &typ, &startingPrice, &buyNowPrice,
		&publishedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}

	l.Type = listing.ParseType(typ)
	if l.StartingPrice, err = values.NewMoneyFromString(startingPrice, values.EUR); err != nil {
		return nil, fmt.Errorf("bad starting price %q: %w", startingPrice, err)
	}
	if buyNowPrice != nil {
		m, err := values.NewMoneyFromString(*buyNowPrice, values.EUR)
		if err != nil {
			return nil, fmt.Errorf("bad buy now price %q: %w", *buyNowPrice, err)
		}
		l.BuyNowPrice = &m
	}
	if publishedAt != nil {
		l.PublishedAt = *publishedAt
	}

	return &l, nil
}
