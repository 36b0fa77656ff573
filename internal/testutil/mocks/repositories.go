package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/listing"
)

// AuctionRepository mock
type AuctionRepository struct {
	mock.Mock
}

func (m *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Auction), args.Error(1)
}

func (m *AuctionRepository) GetByListingID(ctx context.Context, listingID uuid.UUID) (*auction.Auction, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Auction), args.Error(1)
}

func (m *AuctionRepository) ApplyBidOutcome(ctx context.Context, a *auction.Auction, b *bid.Bid) error {
	args := m.Called(ctx, a, b)
	return args.Error(0)
}

func (m *AuctionRepository) UpdateState(ctx context.Context, a *auction.Auction) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *AuctionRepository) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// BidRepository mock
type BidRepository struct {
	mock.Mock
}

func (m *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bid.Bid), args.Error(1)
}

func (m *BidRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID, limit int) ([]*bid.Bid, error) {
	args := m.Called(ctx, bidderID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bid.Bid), args.Error(1)
}

// ListingRepository mock
type ListingRepository struct {
	mock.Mock
}

func (m *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}
