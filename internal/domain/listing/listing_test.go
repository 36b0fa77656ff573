package listing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

func TestNewListing(t *testing.T) {
	sellerID := uuid.New()

	tests := []struct {
		name     string
		sellerID uuid.UUID
		title    string
		typ      Type
		price    values.Money
		wantErr  string
	}{
		{
			name:     "valid auction listing",
			sellerID: sellerID,
			title:    "Charizard Base Set Holo",
			typ:      TypeAuction,
			price:    values.Euro("10"),
		},
		{
			name:     "nil seller",
			sellerID: uuid.Nil,
			title:    "Pikachu Promo",
			typ:      TypeAuction,
			price:    values.Euro("5"),
			wantErr:  "seller ID cannot be nil",
		},
		{
			name:     "empty title",
			sellerID: sellerID,
			title:    "",
			typ:      TypeAuction,
			price:    values.Euro("5"),
			wantErr:  "title cannot be empty",
		},
		{
			name:     "negative starting price",
			sellerID: sellerID,
			title:    "Blastoise 1st Edition",
			typ:      TypeAuction,
			price:    values.Euro("-1"),
			wantErr:  "starting price cannot be negative",
		},
		{
			name:     "invalid type",
			sellerID: sellerID,
			title:    "Venusaur Shadowless",
			typ:      Type(42),
			price:    values.Euro("5"),
			wantErr:  "invalid listing type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewListing(tt.sellerID, tt.title, tt.typ, tt.price)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, l.ID)
			assert.Equal(t, tt.sellerID, l.SellerID)
			assert.False(t, l.PublishedAt.IsZero())
		})
	}
}

func TestType_AuctionBearing(t *testing.T) {
	assert.True(t, TypeAuction.AuctionBearing())
	assert.True(t, TypeAuctionWithBuyNow.AuctionBearing())
	assert.False(t, TypeBuyNow.AuctionBearing())
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeAuction, ParseType("auction"))
	assert.Equal(t, TypeBuyNow, ParseType("buy_now"))
	assert.Equal(t, TypeAuctionWithBuyNow, ParseType("auction_buy_now"))
	assert.Equal(t, TypeAuction, ParseType("garbage"))
}
