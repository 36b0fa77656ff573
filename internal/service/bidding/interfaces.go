package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/listing"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// Service is the auction bidding engine's public contract. The request
// layer is a thin veneer over these operations.
type Service interface {
	// CreateAuction opens bidding for an auction-bearing listing
	CreateAuction(ctx context.Context, listingID uuid.UUID, endTime time.Time) (*auction.Auction, error)
	// PlaceBid submits a sealed proxy maximum against an auction
	PlaceBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResult, error)
	// CloseAuction finalizes an expired auction; idempotent
	CloseAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)
	// CancelAuction terminates an active auction (administrator only)
	CancelAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)
	// GetAuction returns the current public snapshot
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)
	// GetBids returns the auction's bid history with maxima redacted
	GetBids(ctx context.Context, auctionID uuid.UUID) ([]bid.Public, error)
	// GetBidderBids returns the bidder's own bids, newest first. A
	// bidder always sees their own sealed maxima.
	GetBidderBids(ctx context.Context, bidderID uuid.UUID, limit int) ([]*bid.Bid, error)
	// SweepExpired closes every auction past its end time
	SweepExpired(ctx context.Context) (int, error)
}

// AuctionRepository defines the interface for auction snapshot storage
type AuctionRepository interface {
	// Create stores a new auction
	Create(ctx context.Context, a *auction.Auction) error
	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// GetByListingID retrieves the auction attached to a listing
	GetByListingID(ctx context.Context, listingID uuid.UUID) (*auction.Auction, error)
	// ApplyBidOutcome atomically replaces the auction snapshot,
	// appends the accepted bid, and moves the winning flag. The
	// write is all-or-nothing and guarded by the snapshot version.
	ApplyBidOutcome(ctx context.Context, a *auction.Auction, b *bid.Bid) error
	// UpdateState persists a status transition (close/cancel)
	UpdateState(ctx context.Context, a *auction.Auction) error
	// ListExpiredIDs returns active auctions whose end time has passed
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// BidRepository defines the interface for reading the bid ledger
type BidRepository interface {
	// ListByAuction returns all bids for an auction in acceptance order
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
	// ListByBidder returns a bidder's bids, newest first, capped at
	// limit
	ListByBidder(ctx context.Context, bidderID uuid.UUID, limit int) ([]*bid.Bid, error)
}

// ListingRepository defines the interface for reading listings
type ListingRepository interface {
	// GetByID retrieves a listing by ID
	GetByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
}

// EventEmitter receives engine facts. Delivery is at-least-once and
// fire-and-forget: the engine never blocks on, nor rolls back for,
// emitter failures.
type EventEmitter interface {
	Emit(event Event)
}

// RateLimiter bounds bid submission rates per bidder
type RateLimiter interface {
	// Allow reports whether the bidder may submit another bid now
	Allow(ctx context.Context, bidderID uuid.UUID) error
}

// AdvisoryLocker serializes an auction's exclusive section across
// engine instances, backing the in-process keyed mutex. Acquire blocks
// until the lock is held or ctx expires, returning the release
// function. Implementations fail open when the backing store is
// unreachable; the optimistic version guard on the snapshot write
// remains the correctness backstop.
type AdvisoryLocker interface {
	Acquire(ctx context.Context, auctionID uuid.UUID) (func(), error)
}

// SnapshotCache holds public auction snapshots for read traffic
type SnapshotCache interface {
	Get(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, bool)
	Set(ctx context.Context, a *auction.Auction)
	Invalidate(ctx context.Context, auctionID uuid.UUID)
}

// MetricsCollector defines the engine's metric hooks
type MetricsCollector interface {
	RecordBidAccepted(ctx context.Context, a *auction.Auction, duration time.Duration)
	RecordBidRejected(ctx context.Context, reason string)
	RecordAuctionExtended(ctx context.Context)
	RecordAuctionClosed(ctx context.Context, a *auction.Auction)
	RecordLockWait(ctx context.Context, duration time.Duration)
}

// EventType enumerates the facts the engine emits
type EventType string

const (
	EventBidAccepted      EventType = "bid_accepted"
	EventOutbid           EventType = "outbid"
	EventAuctionWon       EventType = "auction_won"
	EventAuctionClosed    EventType = "auction_closed"
	EventAuctionExtended  EventType = "auction_extended"
	EventAuctionCancelled EventType = "auction_cancelled"
)

// Event is an engine fact handed to the notification/XP collaborators
type Event struct {
	Type      EventType    `json:"event"`
	AuctionID uuid.UUID    `json:"auction_id"`
	BidderID  uuid.UUID    `json:"bidder_id,omitempty"`
	Amount    values.Money `json:"amount"`
	EndTime   time.Time    `json:"end_time,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// PlaceBidRequest is a bid submission
type PlaceBidRequest struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	MaxAmount values.Money
}

// PlaceBidResult tells the caller their standing without exposing any
// sealed maximum, and carries what the UI needs to show the next
// minimum bid.
type PlaceBidResult struct {
	BidID       uuid.UUID    `json:"bid_id"`
	AuctionID   uuid.UUID    `json:"auction_id"`
	CurrentBid  values.Money `json:"current_bid"`
	MinimumNext values.Money `json:"minimum_next"`
	BidCount    int          `json:"bid_count"`
	BidderLeads bool         `json:"you_lead"`
	Extended    bool         `json:"extended"`
	EndTime     time.Time    `json:"end_time"`
}
