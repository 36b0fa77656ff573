package bid

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// Bid is a single proxy-bid submission. MaxAmount is the sealed maximum
// the bidder authorized; it is never exposed to other bidders. A bid is
// immutable once accepted except for IsWinning, which only the engine
// flips while holding the auction's exclusive section.
type Bid struct {
	ID        uuid.UUID    `json:"id"`
	AuctionID uuid.UUID    `json:"auction_id"`
	BidderID  uuid.UUID    `json:"bidder_id"`
	MaxAmount values.Money `json:"-"`
	IsWinning bool         `json:"is_winning"`

	CreatedAt time.Time `json:"created_at"`
}

// New creates a bid submission against an auction
func New(auctionID, bidderID uuid.UUID, maxAmount values.Money) (*Bid, error) {
	if auctionID == uuid.Nil {
		return nil, fmt.Errorf("auction ID cannot be nil")
	}

	if bidderID == uuid.Nil {
		return nil, fmt.Errorf("bidder ID cannot be nil")
	}

	if !maxAmount.IsPositive() {
		return nil, fmt.Errorf("max amount must be positive")
	}

	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxAmount: maxAmount,
		CreatedAt: time.Now(),
	}, nil
}

// Public is the redacted view safe to show other bidders: the sealed
// maximum is withheld, only standing and timing remain.
type Public struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

// Redact strips the sealed maximum from a bid
func (b *Bid) Redact() Public {
	return Public{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		IsWinning: b.IsWinning,
		CreatedAt: b.CreatedAt,
	}
}
