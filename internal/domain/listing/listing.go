package listing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// Listing is the slice of a catalog listing the bidding engine needs.
// The catalog service owns the full record (card metadata, images,
// condition grading); the engine trusts what it is handed here.
type Listing struct {
	ID            uuid.UUID     `json:"id"`
	SellerID      uuid.UUID     `json:"seller_id"`
	Title         string        `json:"title"`
	Type          Type          `json:"type"`
	StartingPrice values.Money  `json:"starting_price"`
	BuyNowPrice   *values.Money `json:"buy_now_price,omitempty"`
	PublishedAt   time.Time     `json:"published_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Type int

const (
	TypeAuction Type = iota
	TypeBuyNow
	TypeAuctionWithBuyNow
)

func (t Type) String() string {
	switch t {
	case TypeAuction:
		return "auction"
	case TypeBuyNow:
		return "buy_now"
	case TypeAuctionWithBuyNow:
		return "auction_buy_now"
	default:
		return "unknown"
	}
}

// AuctionBearing reports whether the listing type carries an auction
func (t Type) AuctionBearing() bool {
	return t == TypeAuction || t == TypeAuctionWithBuyNow
}

func NewListing(sellerID uuid.UUID, title string, typ Type, startingPrice values.Money) (*Listing, error) {
	if sellerID == uuid.Nil {
		return nil, fmt.Errorf("seller ID cannot be nil")
	}

	if title == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}

	if startingPrice.IsNegative() {
		return nil, fmt.Errorf("starting price cannot be negative")
	}

	switch typ {
	case TypeAuction, TypeBuyNow, TypeAuctionWithBuyNow:
	default:
		return nil, fmt.Errorf("invalid listing type")
	}

	now := time.Now()
	return &Listing{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Title:         title,
		Type:          typ,
		StartingPrice: startingPrice,
		PublishedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ParseType converts a stored string to a listing Type
func ParseType(s string) Type {
	switch s {
	case "auction":
		return TypeAuction
	case "buy_now":
		return TypeBuyNow
	case "auction_buy_now":
		return TypeAuctionWithBuyNow
	default:
		return TypeAuction
	}
}
