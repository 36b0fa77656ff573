package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	domainErrors "github.com/cardhaus/card-exchange-backend/internal/domain/errors"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/events"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// Handler carries the bidding engine and its collaborators into the
// HTTP layer
type Handler struct {
	bidding    bidding.Service
	hub        *events.Hub
	increments *auction.IncrementTable
	validate   *validator.Validate
}

func NewHandler(svc bidding.Service, hub *events.Hub, increments *auction.IncrementTable) *Handler {
	if increments == nil {
		increments = auction.DefaultIncrementTable()
	}
	return &Handler{
		bidding:    svc,
		hub:        hub,
		increments: increments,
		validate:   validator.New(),
	}
}

// handleCreateAuction opens bidding for a listing
func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req CreateAuctionRequest
	if err := h.decode(r, &req); err != nil {
		writeValidationError(w, "INVALID_REQUEST", err.Error())
		return
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		writeValidationError(w, "INVALID_LISTING_ID", "listing_id must be a UUID")
		return
	}

	a, err := h.bidding.CreateAuction(r.Context(), listingID, req.EndTime)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuctionResponse(a, moneyString(auction.MinimumRequired(a, h.increments))))
}

// handlePlaceBid submits a proxy bid on behalf of the authenticated
// bidder
func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "INVALID_AUCTION_ID", "auction id must be a UUID")
		return
	}

	bidderID, ok := bidderFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authorization required")
		return
	}

	var req PlaceBidRequest
	if err := h.decode(r, &req); err != nil {
		writeValidationError(w, "INVALID_REQUEST", err.Error())
		return
	}

	maxAmount, err := values.NewMoneyFromString(req.MaxAmount, values.EUR)
	if err != nil {
		writeValidationError(w, "INVALID_AMOUNT", "max_amount must be a decimal amount")
		return
	}

	res, err := h.bidding.PlaceBid(r.Context(), &bidding.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxAmount: maxAmount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newPlaceBidResponse(res))
}

// handleGetAuction returns the public snapshot
func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "INVALID_AUCTION_ID", "auction id must be a UUID")
		return
	}

	a, err := h.bidding.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuctionResponse(a, moneyString(auction.MinimumRequired(a, h.increments))))
}

// handleGetBids returns the redacted bid history
func (h *Handler) handleGetBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "INVALID_AUCTION_ID", "auction id must be a UUID")
		return
	}

	entries, err := h.bidding.GetBids(r.Context(), auctionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBidHistory(entries))
}

// handleMyBids returns the caller's own bidding history, newest
// first. Unlike the public ledger this includes the sealed maxima;
// bidders always see their own.
func (h *Handler) handleMyBids(w http.ResponseWriter, r *http.Request) {
	bidderID, ok := bidderFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeValidationError(w, "INVALID_LIMIT", "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.bidding.GetBidderBids(r.Context(), bidderID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBidderHistory(entries))
}

// handleCloseAuction settles an expired auction immediately instead of
// waiting for the sweeper. Admin only.
func (h *Handler) handleCloseAuction(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "INVALID_AUCTION_ID", "auction id must be a UUID")
		return
	}

	a, err := h.bidding.CloseAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuctionResponse(a, ""))
}

// handleCancelAuction withdraws an active auction. Admin only.
func (h *Handler) handleCancelAuction(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "INVALID_AUCTION_ID", "auction id must be a UUID")
		return
	}

	a, err := h.bidding.CancelAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuctionResponse(a, ""))
}

// handleStream upgrades to a websocket that receives the auction's
// event feed
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidationError(w, "INVALID_AUCTION_ID", "auction id must be a UUID")
		return
	}

	// reject streams for auctions that do not exist
	if _, err := h.bidding.GetAuction(r.Context(), auctionID); err != nil {
		writeError(w, r, err)
		return
	}

	h.hub.ServeAuction(w, r, auctionID)
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if roleFromContext(r.Context()) != "admin" {
		writeError(w, r, domainErrors.NewForbiddenError("admin role required"))
		return false
	}
	return true
}

func (h *Handler) decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}
