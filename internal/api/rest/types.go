package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// PlaceBidRequest is the body of POST /api/v1/auctions/{id}/bids. The
// max amount is the bidder's sealed ceiling; it never appears in any
// response to other bidders.
type PlaceBidRequest struct {
	MaxAmount string `json:"max_amount" validate:"required"`
}

// CreateAuctionRequest is the body of POST /api/v1/auctions
type CreateAuctionRequest struct {
	ListingID string    `json:"listing_id" validate:"required,uuid"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// PlaceBidResponse reports the outcome of an accepted bid
type PlaceBidResponse struct {
	BidID       uuid.UUID `json:"bid_id"`
	AuctionID   uuid.UUID `json:"auction_id"`
	CurrentBid  string    `json:"current_bid"`
	MinimumNext string    `json:"minimum_next"`
	BidCount    int       `json:"bid_count"`
	YouLead     bool      `json:"you_lead"`
	Extended    bool      `json:"extended"`
	EndTime     time.Time `json:"end_time"`
}

// AuctionResponse is the public auction snapshot
type AuctionResponse struct {
	ID            uuid.UUID  `json:"id"`
	ListingID     uuid.UUID  `json:"listing_id"`
	Status        string     `json:"status"`
	StartingPrice string     `json:"starting_price"`
	CurrentBid    string     `json:"current_bid"`
	MinimumNext   string     `json:"minimum_next,omitempty"`
	BidCount      int        `json:"bid_count"`
	LeaderID      *uuid.UUID `json:"leader_id,omitempty"`
	EndTime       time.Time  `json:"end_time"`
}

// BidHistoryEntry is one redacted ledger entry
type BidHistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

// BidderBidEntry is one entry of a bidder's own history. MaxAmount is
// present here, a bidder's own maxima are never redacted from them.
type BidderBidEntry struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	MaxAmount string    `json:"max_amount"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is the uniform error envelope
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// moneyString renders amounts as bare decimals; currency symbols stay
// out of the wire format
func moneyString(m values.Money) string {
	return m.Amount().StringFixed(2)
}

func newPlaceBidResponse(res *bidding.PlaceBidResult) PlaceBidResponse {
	return PlaceBidResponse{
		BidID:       res.BidID,
		AuctionID:   res.AuctionID,
		CurrentBid:  moneyString(res.CurrentBid),
		MinimumNext: moneyString(res.MinimumNext),
		BidCount:    res.BidCount,
		YouLead:     res.BidderLeads,
		Extended:    res.Extended,
		EndTime:     res.EndTime,
	}
}

func newAuctionResponse(a *auction.Auction, minimumNext string) AuctionResponse {
	resp := AuctionResponse{
		ID:            a.ID,
		ListingID:     a.ListingID,
		Status:        a.Status.String(),
		StartingPrice: moneyString(a.StartingPrice),
		CurrentBid:    moneyString(a.CurrentBid),
		BidCount:      a.BidCount,
		EndTime:       a.EndTime,
	}
	if a.LeaderID != uuid.Nil {
		id := a.LeaderID
		resp.LeaderID = &id
	}
	if a.Status == auction.StatusActive {
		resp.MinimumNext = minimumNext
	}
	return resp
}

func newBidderHistory(entries []*bid.Bid) []BidderBidEntry {
	out := make([]BidderBidEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, BidderBidEntry{
			ID:        e.ID,
			AuctionID: e.AuctionID,
			MaxAmount: moneyString(e.MaxAmount),
			IsWinning: e.IsWinning,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func newBidHistory(entries []bid.Public) []BidHistoryEntry {
	out := make([]BidHistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, BidHistoryEntry{
			ID:        e.ID,
			BidderID:  e.BidderID,
			IsWinning: e.IsWinning,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
