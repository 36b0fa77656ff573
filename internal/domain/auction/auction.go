package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// Auction is the bidding state attached to an auction-bearing listing.
// CurrentBid is the publicly visible price, always the minimum needed
// to lead; the leader's sealed maximum lives only in the bid ledger.
// All mutation happens inside the auction's exclusive section.
type Auction struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Status    Status    `json:"status"`

	StartingPrice values.Money `json:"starting_price"`
	CurrentBid    values.Money `json:"current_bid"`
	BidCount      int          `json:"bid_count"`
	LeaderID      uuid.UUID    `json:"leader_id,omitempty"`

	EndTime time.Time `json:"end_time"`

	// Version guards optimistic snapshot replacement in storage
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusActive Status = iota
	StatusEnded
	StatusSold
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	case StatusSold:
		return "sold"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored string to a Status
func ParseStatus(s string) Status {
	switch s {
	case "active":
		return StatusActive
	case "ended":
		return StatusEnded
	case "sold":
		return StatusSold
	case "cancelled":
		return StatusCancelled
	default:
		return StatusActive
	}
}

// Terminal reports whether the status can never change again
func (s Status) Terminal() bool {
	return s != StatusActive
}

// New creates an active auction for a listing. The starting price is
// immutable after this point.
func New(listingID, sellerID uuid.UUID, startingPrice values.Money, endTime time.Time) (*Auction, error) {
	if listingID == uuid.Nil {
		return nil, fmt.Errorf("listing ID cannot be nil")
	}

	if sellerID == uuid.Nil {
		return nil, fmt.Errorf("seller ID cannot be nil")
	}

	if startingPrice.IsNegative() {
		return nil, fmt.Errorf("starting price cannot be negative")
	}

	if !endTime.After(time.Now()) {
		return nil, fmt.Errorf("end time must be in the future")
	}

	now := time.Now()
	return &Auction{
		ID:            uuid.New(),
		ListingID:     listingID,
		SellerID:      sellerID,
		Status:        StatusActive,
		StartingPrice: startingPrice,
		CurrentBid:    values.Zero(startingPrice.Currency()),
		EndTime:       endTime,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// HasBids reports whether any bid has been accepted
func (a *Auction) HasBids() bool {
	return a.BidCount > 0
}

// Expired reports whether the scheduled end has passed
func (a *Auction) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// Apply replaces the bidding snapshot after a resolved bid. EndTime
// only ever moves forward here; the extender guarantees newEnd is
// never earlier than the current end.
func (a *Auction) Apply(o *Outcome, newEnd time.Time) {
	a.CurrentBid = o.CurrentBid
	a.BidCount = o.BidCount
	a.LeaderID = o.LeaderID
	if newEnd.After(a.EndTime) {
		a.EndTime = newEnd
	}
	a.UpdatedAt = time.Now()
}

// Close transitions an expired auction to its terminal state: sold
// when at least one bid was accepted, ended (unsold) otherwise.
// Closing an already-terminal auction is a no-op, not an error, so a
// scheduler sweep may call it repeatedly.
func (a *Auction) Close(now time.Time) (changed bool, err error) {
	if a.Status.Terminal() {
		return false, nil
	}

	if !a.Expired(now) {
		return false, fmt.Errorf("auction %s does not end until %s", a.ID, a.EndTime.Format(time.RFC3339))
	}

	if a.HasBids() {
		a.Status = StatusSold
	} else {
		a.Status = StatusEnded
	}
	a.UpdatedAt = now
	return true, nil
}

// Cancel terminates an active auction by administrator action.
// Cancelling twice is a no-op; cancelling a sold or ended auction is
// an error.
func (a *Auction) Cancel(now time.Time) (changed bool, err error) {
	switch a.Status {
	case StatusCancelled:
		return false, nil
	case StatusActive:
		a.Status = StatusCancelled
		a.UpdatedAt = now
		return true, nil
	default:
		return false, fmt.Errorf("cannot cancel auction in status %s", a.Status)
	}
}
