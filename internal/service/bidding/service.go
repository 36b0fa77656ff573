package bidding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/errors"
)

// Config tunes the engine. Zero values fall back to the defaults the
// spec of the marketplace ships with.
type Config struct {
	SnipeWindow    time.Duration
	SnipeExtension time.Duration
	LockWait       time.Duration
	PersistRetries int
	Increments     *auction.IncrementTable
}

func (c Config) withDefaults() Config {
	if c.SnipeWindow <= 0 {
		c.SnipeWindow = auction.DefaultSnipeWindow
	}
	if c.SnipeExtension <= 0 {
		c.SnipeExtension = auction.DefaultSnipeExtension
	}
	if c.LockWait <= 0 {
		c.LockWait = 5 * time.Second
	}
	if c.PersistRetries <= 0 {
		c.PersistRetries = 3
	}
	if c.Increments == nil {
		c.Increments = auction.DefaultIncrementTable()
	}
	return c
}

// Bidder history page bounds
const (
	defaultBidderHistory = 50
	maxBidderHistory     = 200
)

// service implements the Service interface
type service struct {
	auctionRepo AuctionRepository
	bidRepo     BidRepository
	listingRepo ListingRepository
	emitter     EventEmitter
	limiter     RateLimiter
	advisory    AdvisoryLocker
	cache       SnapshotCache
	metrics     MetricsCollector

	cfg   Config
	locks *lockManager

	// now is swappable in tests
	now func() time.Time
}

// NewService creates the bidding engine. emitter, limiter, advisory,
// cache and metrics may be nil; the engine degrades to doing without
// them.
func NewService(
	auctionRepo AuctionRepository,
	bidRepo BidRepository,
	listingRepo ListingRepository,
	emitter EventEmitter,
	limiter RateLimiter,
	advisory AdvisoryLocker,
	cache SnapshotCache,
	metrics MetricsCollector,
	cfg Config,
) Service {
	return &service{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		listingRepo: listingRepo,
		emitter:     emitter,
		limiter:     limiter,
		advisory:    advisory,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg.withDefaults(),
		locks:       newLockManager(),
		now:         time.Now,
	}
}

// CreateAuction opens bidding for an auction-bearing listing. The
// starting price is taken from the listing as given and is immutable
// afterwards.
func (s *service) CreateAuction(ctx context.Context, listingID uuid.UUID, endTime time.Time) (*auction.Auction, error) {
	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, errors.ErrListingNotFound.WithCause(err)
	}

	if !l.Type.AuctionBearing() {
		return nil, errors.NewConflictError("LISTING_NOT_AUCTION", fmt.Sprintf("listing type %s does not take bids", l.Type))
	}

	if existing, err := s.auctionRepo.GetByListingID(ctx, listingID); err == nil && existing != nil {
		return nil, errors.NewConflictError("AUCTION_EXISTS", "listing already has an auction")
	}

	a, err := auction.New(l.ID, l.SellerID, l.StartingPrice, endTime)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_AUCTION", err.Error()).WithCause(err)
	}

	if err := s.auctionRepo.Create(ctx, a); err != nil {
		return nil, errors.NewPersistenceError("failed to create auction").WithCause(err)
	}

	return a, nil
}

// PlaceBid runs the full accept cycle under the auction's exclusive
// section: state checks, increment minimum, proxy resolution,
// anti-snipe extension, atomic snapshot persist. Events go out after
// the section is released.
func (s *service) PlaceBid(ctx context.Context, req *PlaceBidRequest) (*PlaceBidResult, error) {
	start := s.now()

	if err := s.validatePlaceBid(req); err != nil {
		s.rejected(ctx, "validation")
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, req.BidderID); err != nil {
			s.rejected(ctx, "rate_limited")
			return nil, err
		}
	}

	release, err := s.acquire(ctx, req.AuctionID)
	if err != nil {
		s.rejected(ctx, "lock_timeout")
		return nil, err
	}

	result, events, err := s.placeBidLocked(ctx, req, start)
	release()
	if err != nil {
		return nil, err
	}

	s.emitAll(events)
	return result, nil
}

// placeBidLocked is the body of PlaceBid inside the exclusive section.
// It returns the events to emit after release so no collaborator is
// ever called while the section is held.
func (s *service) placeBidLocked(ctx context.Context, req *PlaceBidRequest, start time.Time) (*PlaceBidResult, []Event, error) {
	a, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		s.rejected(ctx, "not_found")
		return nil, nil, errors.ErrAuctionNotFound.WithCause(err)
	}

	now := s.now()

	if a.Status != auction.StatusActive {
		s.rejected(ctx, "not_active")
		return nil, nil, errors.ErrAuctionNotActive.WithDetails(map[string]interface{}{
			"status": a.Status.String(),
		})
	}

	if a.Expired(now) {
		s.rejected(ctx, "expired")
		return nil, nil, errors.ErrAuctionExpired
	}

	if req.BidderID == a.SellerID {
		s.rejected(ctx, "seller_bid")
		return nil, nil, errors.ErrSellerBid
	}

	entries, err := s.bidRepo.ListByAuction(ctx, req.AuctionID)
	if err != nil {
		return nil, nil, errors.NewPersistenceError("failed to load bid ledger").WithCause(err)
	}

	ledger, err := bid.RestoreLedger(req.AuctionID, entries)
	if err != nil {
		return nil, nil, errors.NewInternalError("ledger restore failed").WithCause(err)
	}

	out, err := auction.ResolveProxyBid(a, ledger, req.BidderID, req.MaxAmount, s.cfg.Increments)
	if err != nil {
		s.rejected(ctx, "resolution")
		return nil, nil, err
	}

	acceptedAt := out.Bid.CreatedAt
	newEnd := auction.MaybeExtend(a.EndTime, acceptedAt, s.cfg.SnipeWindow, s.cfg.SnipeExtension)
	extended := newEnd.After(a.EndTime)

	a.Apply(out, newEnd)

	if err := s.persistOutcome(ctx, a, out.Bid); err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, a.ID)
	}

	if s.metrics != nil {
		s.metrics.RecordBidAccepted(ctx, a, s.now().Sub(start))
		if extended {
			s.metrics.RecordAuctionExtended(ctx)
		}
	}

	events := []Event{{
		Type:      EventBidAccepted,
		AuctionID: a.ID,
		BidderID:  req.BidderID,
		Amount:    a.CurrentBid,
		EndTime:   a.EndTime,
		Timestamp: acceptedAt,
	}}

	if out.LeaderChanged && out.PreviousLeaderID != uuid.Nil && out.PreviousLeaderID != req.BidderID {
		events = append(events, Event{
			Type:      EventOutbid,
			AuctionID: a.ID,
			BidderID:  out.PreviousLeaderID,
			Amount:    a.CurrentBid,
			Timestamp: acceptedAt,
		})
	}

	if extended {
		events = append(events, Event{
			Type:      EventAuctionExtended,
			AuctionID: a.ID,
			Amount:    a.CurrentBid,
			EndTime:   a.EndTime,
			Timestamp: acceptedAt,
		})
	}

	result := &PlaceBidResult{
		BidID:       out.Bid.ID,
		AuctionID:   a.ID,
		CurrentBid:  a.CurrentBid,
		MinimumNext: auction.MinimumRequired(a, s.cfg.Increments),
		BidCount:    a.BidCount,
		BidderLeads: out.BidderLeads,
		Extended:    extended,
		EndTime:     a.EndTime,
	}

	return result, events, nil
}

// persistOutcome writes the snapshot with a bounded retry budget. The
// snapshot is a full replacement, so re-applying it is idempotent; the
// auction stays at its last-known-good state if all attempts fail.
func (s *service) persistOutcome(ctx context.Context, a *auction.Auction, b *bid.Bid) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.PersistRetries; attempt++ {
		lastErr = s.auctionRepo.ApplyBidOutcome(ctx, a, b)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return errors.NewPersistenceError("failed to persist bid outcome").WithCause(lastErr)
}

// CloseAuction drives the active → ended/sold transition. Valid at any
// time past expiry; calling it on an already-terminal auction is a
// no-op returning the terminal snapshot unchanged.
func (s *service) CloseAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	release, err := s.acquire(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	a, events, err := s.closeLocked(ctx, auctionID)
	release()
	if err != nil {
		return nil, err
	}

	s.emitAll(events)
	return a, nil
}

func (s *service) closeLocked(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, []Event, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, nil, errors.ErrAuctionNotFound.WithCause(err)
	}

	now := s.now()

	changed, err := a.Close(now)
	if err != nil {
		return nil, nil, errors.NewConflictError("AUCTION_STILL_OPEN", err.Error())
	}

	if !changed {
		return a, nil, nil
	}

	if err := s.persistState(ctx, a); err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, a.ID)
	}

	if s.metrics != nil {
		s.metrics.RecordAuctionClosed(ctx, a)
	}

	events := []Event{{
		Type:      EventAuctionClosed,
		AuctionID: a.ID,
		Amount:    a.CurrentBid,
		Timestamp: now,
	}}

	if a.Status == auction.StatusSold {
		events = append(events, Event{
			Type:      EventAuctionWon,
			AuctionID: a.ID,
			BidderID:  a.LeaderID,
			Amount:    a.CurrentBid,
			Timestamp: now,
		})
	}

	return a, events, nil
}

// CancelAuction terminates an active auction by administrator action
func (s *service) CancelAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	release, err := s.acquire(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	defer release()

	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, errors.ErrAuctionNotFound.WithCause(err)
	}

	now := s.now()

	changed, err := a.Cancel(now)
	if err != nil {
		return nil, errors.NewConflictError("AUCTION_NOT_CANCELLABLE", err.Error())
	}

	if !changed {
		return a, nil
	}

	if err := s.persistState(ctx, a); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, a.ID)
	}

	s.emitAll([]Event{{
		Type:      EventAuctionCancelled,
		AuctionID: a.ID,
		Amount:    a.CurrentBid,
		Timestamp: now,
	}})

	return a, nil
}

// GetAuction returns the public snapshot, read through the cache
func (s *service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	if s.cache != nil {
		if a, ok := s.cache.Get(ctx, auctionID); ok {
			return a, nil
		}
	}

	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, errors.ErrAuctionNotFound.WithCause(err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, a)
	}

	return a, nil
}

// GetBids returns the bid history with sealed maxima redacted
func (s *service) GetBids(ctx context.Context, auctionID uuid.UUID) ([]bid.Public, error) {
	entries, err := s.bidRepo.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to load bids").WithCause(err)
	}

	public := make([]bid.Public, 0, len(entries))
	for _, b := range entries {
		public = append(public, b.Redact())
	}
	return public, nil
}

// GetBidderBids returns the bidder's own bid history, newest first.
// The sealed maxima stay visible here: a bidder always sees their own
// ceilings.
func (s *service) GetBidderBids(ctx context.Context, bidderID uuid.UUID, limit int) ([]*bid.Bid, error) {
	if bidderID == uuid.Nil {
		return nil, errors.NewValidationError("MISSING_BIDDER_ID", "bidder ID is required")
	}

	if limit <= 0 || limit > maxBidderHistory {
		limit = defaultBidderHistory
	}

	entries, err := s.bidRepo.ListByBidder(ctx, bidderID, limit)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to load bidder history").WithCause(err)
	}
	return entries, nil
}

// SweepExpired closes every auction past its end time. Tolerant of
// arbitrary delay past expiry and of concurrent sweeps: close is
// idempotent per auction. Per-auction failures do not stop the sweep.
func (s *service) SweepExpired(ctx context.Context) (int, error) {
	const batchSize = 100

	ids, err := s.auctionRepo.ListExpiredIDs(ctx, s.now(), batchSize)
	if err != nil {
		return 0, errors.NewPersistenceError("failed to list expired auctions").WithCause(err)
	}

	closed := 0
	var lastErr error
	for _, id := range ids {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		if _, err := s.CloseAuction(ctx, id); err != nil {
			lastErr = err
			continue
		}
		closed++
	}

	if lastErr != nil && closed == 0 {
		return 0, lastErr
	}
	return closed, nil
}

func (s *service) validatePlaceBid(req *PlaceBidRequest) error {
	if req == nil {
		return errors.NewValidationError("MISSING_REQUEST", "bid request is required")
	}

	if req.AuctionID == uuid.Nil {
		return errors.NewValidationError("MISSING_AUCTION_ID", "auction ID is required")
	}

	if req.BidderID == uuid.Nil {
		return errors.NewValidationError("MISSING_BIDDER_ID", "bidder ID is required")
	}

	if !req.MaxAmount.IsPositive() {
		return errors.ErrInvalidAmount
	}

	return nil
}

// acquire takes the in-process mutex first, then the cross-instance
// advisory lock when one is configured. Both are bounded by LockWait;
// neither is held on error return.
func (s *service) acquire(ctx context.Context, auctionID uuid.UUID) (func(), error) {
	waitStart := s.now()
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	defer cancel()

	release, err := s.locks.acquire(lockCtx, auctionID)
	if s.metrics != nil {
		s.metrics.RecordLockWait(ctx, s.now().Sub(waitStart))
	}
	if err != nil {
		return nil, err
	}

	if s.advisory != nil {
		releaseAdvisory, err := s.advisory.Acquire(lockCtx, auctionID)
		if err != nil {
			release()
			return nil, err
		}
		return func() {
			releaseAdvisory()
			release()
		}, nil
	}

	return release, nil
}

func (s *service) persistState(ctx context.Context, a *auction.Auction) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.PersistRetries; attempt++ {
		lastErr = s.auctionRepo.UpdateState(ctx, a)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return errors.NewPersistenceError("failed to persist auction state").WithCause(lastErr)
}

func (s *service) emitAll(events []Event) {
	if s.emitter == nil {
		return
	}
	for _, e := range events {
		s.emitter.Emit(e)
	}
}

func (s *service) rejected(ctx context.Context, reason string) {
	if s.metrics != nil {
		s.metrics.RecordBidRejected(ctx, reason)
	}
}
