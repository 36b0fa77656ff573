package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/listing"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// ListingBuilder builds test Listing entities
type ListingBuilder struct {
	sellerID      uuid.UUID
	title         string
	typ           listing.Type
	startingPrice values.Money
	buyNowPrice   *values.Money
}

// NewListingBuilder creates a builder with sensible defaults
func NewListingBuilder() *ListingBuilder {
	return &ListingBuilder{
		sellerID:      uuid.New(),
		title:         "1999 Base Set Charizard, PSA 8",
		typ:           listing.TypeAuction,
		startingPrice: values.Euro("10.00"),
	}
}

func (b *ListingBuilder) WithSeller(id uuid.UUID) *ListingBuilder {
	b.sellerID = id
	return b
}

func (b *ListingBuilder) WithTitle(title string) *ListingBuilder {
	b.title = title
	return b
}

func (b *ListingBuilder) WithType(typ listing.Type) *ListingBuilder {
	b.typ = typ
	return b
}

func (b *ListingBuilder) WithStartingPrice(amount string) *ListingBuilder {
	b.startingPrice = values.Euro(amount)
	return b
}

func (b *ListingBuilder) WithBuyNowPrice(amount string) *ListingBuilder {
	m := values.Euro(amount)
	b.buyNowPrice = &m
	return b
}

func (b *ListingBuilder) Build() *listing.Listing {
	l, err := listing.NewListing(b.sellerID, b.title, b.typ, b.startingPrice)
	if err != nil {
		panic(err)
	}
	l.BuyNowPrice = b.buyNowPrice
	l.PublishedAt = time.Now().UTC()
	return l
}

// AuctionBuilder builds test Auction entities
type AuctionBuilder struct {
	listingID     uuid.UUID
	sellerID      uuid.UUID
	startingPrice values.Money
	endTime       time.Time
}

// NewAuctionBuilder creates a builder for an auction ending in an hour
func NewAuctionBuilder() *AuctionBuilder {
	return &AuctionBuilder{
		listingID:     uuid.New(),
		sellerID:      uuid.New(),
		startingPrice: values.Euro("10.00"),
		endTime:       time.Now().Add(time.Hour),
	}
}

func (b *AuctionBuilder) WithListing(l *listing.Listing) *AuctionBuilder {
	b.listingID = l.ID
	b.sellerID = l.SellerID
	b.startingPrice = l.StartingPrice
	return b
}

func (b *AuctionBuilder) WithSeller(id uuid.UUID) *AuctionBuilder {
	b.sellerID = id
	return b
}

func (b *AuctionBuilder) WithStartingPrice(amount string) *AuctionBuilder {
	b.startingPrice = values.Euro(amount)
	return b
}

func (b *AuctionBuilder) WithEndTime(end time.Time) *AuctionBuilder {
	b.endTime = end
	return b
}

func (b *AuctionBuilder) EndingIn(d time.Duration) *AuctionBuilder {
	b.endTime = time.Now().Add(d)
	return b
}

func (b *AuctionBuilder) Build() *auction.Auction {
	a, err := auction.New(b.listingID, b.sellerID, b.startingPrice, b.endTime)
	if err != nil {
		panic(err)
	}
	return a
}
