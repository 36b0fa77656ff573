package bidding_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/errors"
	"github.com/cardhaus/card-exchange-backend/internal/domain/listing"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
	"github.com/cardhaus/card-exchange-backend/internal/testutil/mocks"
)

func newTestService(t *testing.T, ar bidding.AuctionRepository, br bidding.BidRepository, lr bidding.ListingRepository, emitter bidding.EventEmitter) bidding.Service {
	t.Helper()
	return bidding.NewService(ar, br, lr, emitter, nil, nil, nil, &mocks.MetricsCollector{}, bidding.Config{})
}

func activeAuction(sellerID uuid.UUID, endsIn time.Duration) *auction.Auction {
	a, err := auction.New(uuid.New(), sellerID, values.MustParse("10.00", values.EUR), time.Now().Add(endsIn))
	if err != nil {
		panic(err)
	}
	return a
}

func TestService_PlaceBid(t *testing.T) {
	ctx := context.Background()

	sellerID := uuid.New()
	bidderID := uuid.New()

	tests := []struct {
		name          string
		setupMocks    func(*mocks.AuctionRepository, *mocks.BidRepository) *auction.Auction
		request       func(a *auction.Auction) *bidding.PlaceBidRequest
		expectedError error
		validate      func(*testing.T, *bidding.PlaceBidResult, *mocks.EventEmitter)
	}{
		{
			name: "first bid leads at starting price",
			setupMocks: func(ar *mocks.AuctionRepository, br *mocks.BidRepository) *auction.Auction {
				a := activeAuction(sellerID, time.Hour)
				ar.On("GetByID", ctx, a.ID).Return(a, nil)
				br.On("ListByAuction", ctx, a.ID).Return([]*bid.Bid{}, nil)
				ar.On("ApplyBidOutcome", ctx, a, mock.AnythingOfType("*bid.Bid")).Return(nil)
				return a
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, MaxAmount: values.MustParse("500.00", values.EUR)}
			},
			validate: func(t *testing.T, res *bidding.PlaceBidResult, em *mocks.EventEmitter) {
				assert.True(t, res.BidderLeads)
				assert.Equal(t, values.MustParse("10.00", values.EUR), res.CurrentBid)
				assert.Equal(t, 1, res.BidCount)
				assert.False(t, res.Extended)
				accepted := em.EventsOfType(bidding.EventBidAccepted)
				require.Len(t, accepted, 1)
				assert.Equal(t, bidderID, accepted[0].BidderID)
				assert.Empty(t, em.EventsOfType(bidding.EventOutbid))
			},
		},
		{
			name: "bid below minimum is rejected without persistence",
			setupMocks: func(ar *mocks.AuctionRepository, br *mocks.BidRepository) *auction.Auction {
				a := activeAuction(sellerID, time.Hour)
				ar.On("GetByID", ctx, a.ID).Return(a, nil)
				br.On("ListByAuction", ctx, a.ID).Return([]*bid.Bid{}, nil)
				return a
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, MaxAmount: values.MustParse("9.00", values.EUR)}
			},
			expectedError: errors.ErrBidTooLow,
		},
		{
			name: "seller cannot bid on own auction",
			setupMocks: func(ar *mocks.AuctionRepository, br *mocks.BidRepository) *auction.Auction {
				a := activeAuction(sellerID, time.Hour)
				ar.On("GetByID", ctx, a.ID).Return(a, nil)
				return a
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: sellerID, MaxAmount: values.MustParse("50.00", values.EUR)}
			},
			expectedError: errors.ErrSellerBid,
		},
		{
			name: "bid on expired auction is rejected",
			setupMocks: func(ar *mocks.AuctionRepository, br *mocks.BidRepository) *auction.Auction {
				a := activeAuction(sellerID, time.Hour)
				a.EndTime = time.Now().Add(-time.Minute)
				ar.On("GetByID", ctx, a.ID).Return(a, nil)
				return a
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, MaxAmount: values.MustParse("50.00", values.EUR)}
			},
			expectedError: errors.ErrAuctionExpired,
		},
		{
			name: "bid on terminal auction is rejected",
			setupMocks: func(ar *mocks.AuctionRepository, br *mocks.BidRepository) *auction.Auction {
				a := activeAuction(sellerID, time.Hour)
				a.Status = auction.StatusCancelled
				ar.On("GetByID", ctx, a.ID).Return(a, nil)
				return a
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, MaxAmount: values.MustParse("50.00", values.EUR)}
			},
			expectedError: errors.ErrAuctionNotActive,
		},
		{
			name: "unknown auction",
			setupMocks: func(ar *mocks.AuctionRepository, br *mocks.BidRepository) *auction.Auction {
				a := activeAuction(sellerID, time.Hour)
				ar.On("GetByID", ctx, a.ID).Return(nil, assert.AnError)
				return a
			},
			request: func(a *auction.Auction) *bidding.PlaceBidRequest {
				return &bidding.PlaceBidRequest{AuctionID: a.ID, BidderID: bidderID, MaxAmount: values.MustParse("50.00", values.EUR)}
			},
			expectedError: errors.ErrAuctionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ar := new(mocks.AuctionRepository)
			br := new(mocks.BidRepository)
			em := new(mocks.EventEmitter)

			a := tt.setupMocks(ar, br)
			svc := newTestService(t, ar, br, new(mocks.ListingRepository), em)

			res, err := svc.PlaceBid(ctx, tt.request(a))

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, res)
				ar.AssertNotCalled(t, "ApplyBidOutcome", mock.Anything, mock.Anything, mock.Anything)
				assert.Empty(t, em.Events())
			} else {
				require.NoError(t, err)
				tt.validate(t, res, em)
			}
			ar.AssertExpectations(t)
			br.AssertExpectations(t)
		})
	}
}

func TestService_PlaceBid_OutbidNotifiesPreviousLeader(t *testing.T) {
	ctx := context.Background()

	sellerID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	a := activeAuction(sellerID, time.Hour)

	leading, err := bid.New(a.ID, first, values.MustParse("50.00", values.EUR))
	require.NoError(t, err)
	leading.IsWinning = true
	a.CurrentBid = values.MustParse("10.00", values.EUR)
	a.BidCount = 1
	a.LeaderID = first

	ar := new(mocks.AuctionRepository)
	br := new(mocks.BidRepository)
	em := new(mocks.EventEmitter)
	ar.On("GetByID", ctx, a.ID).Return(a, nil)
	br.On("ListByAuction", ctx, a.ID).Return([]*bid.Bid{leading}, nil)
	ar.On("ApplyBidOutcome", ctx, a, mock.AnythingOfType("*bid.Bid")).Return(nil)

	svc := newTestService(t, ar, br, new(mocks.ListingRepository), em)

	res, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  second,
		MaxAmount: values.MustParse("60.00", values.EUR),
	})
	require.NoError(t, err)

	assert.True(t, res.BidderLeads)
	assert.Equal(t, values.MustParse("60.00", values.EUR), res.CurrentBid)

	outbid := em.EventsOfType(bidding.EventOutbid)
	require.Len(t, outbid, 1)
	assert.Equal(t, first, outbid[0].BidderID)
}

func TestService_PlaceBid_AntiSnipeExtends(t *testing.T) {
	ctx := context.Background()

	sellerID := uuid.New()
	a := activeAuction(sellerID, 30*time.Second)
	originalEnd := a.EndTime

	ar := new(mocks.AuctionRepository)
	br := new(mocks.BidRepository)
	em := new(mocks.EventEmitter)
	ar.On("GetByID", ctx, a.ID).Return(a, nil)
	br.On("ListByAuction", ctx, a.ID).Return([]*bid.Bid{}, nil)
	ar.On("ApplyBidOutcome", ctx, a, mock.AnythingOfType("*bid.Bid")).Return(nil)

	svc := newTestService(t, ar, br, new(mocks.ListingRepository), em)

	res, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  uuid.New(),
		MaxAmount: values.MustParse("20.00", values.EUR),
	})
	require.NoError(t, err)

	assert.True(t, res.Extended)
	assert.True(t, res.EndTime.After(originalEnd))
	assert.Len(t, em.EventsOfType(bidding.EventAuctionExtended), 1)
}

func TestService_PlaceBid_PersistFailureAfterRetries(t *testing.T) {
	ctx := context.Background()

	a := activeAuction(uuid.New(), time.Hour)

	ar := new(mocks.AuctionRepository)
	br := new(mocks.BidRepository)
	em := new(mocks.EventEmitter)
	ar.On("GetByID", ctx, a.ID).Return(a, nil)
	br.On("ListByAuction", ctx, a.ID).Return([]*bid.Bid{}, nil)
	ar.On("ApplyBidOutcome", ctx, a, mock.AnythingOfType("*bid.Bid")).Return(assert.AnError).Times(3)

	svc := newTestService(t, ar, br, new(mocks.ListingRepository), em)

	_, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  uuid.New(),
		MaxAmount: values.MustParse("20.00", values.EUR),
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePersistence))
	assert.Empty(t, em.Events())
	ar.AssertExpectations(t)
}

func TestService_PlaceBid_RateLimited(t *testing.T) {
	ctx := context.Background()

	bidderID := uuid.New()
	limiter := new(mocks.RateLimiter)
	limiter.On("Allow", ctx, bidderID).Return(errors.NewTimeoutError("RATE_LIMITED", "bid rate exceeded"))

	svc := bidding.NewService(new(mocks.AuctionRepository), new(mocks.BidRepository), new(mocks.ListingRepository), nil, limiter, nil, nil, nil, bidding.Config{})

	_, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: uuid.New(),
		BidderID:  bidderID,
		MaxAmount: values.MustParse("20.00", values.EUR),
	})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

// blockedAdvisory stands in for another engine instance already
// holding the auction's cross-instance lock
type blockedAdvisory struct{}

func (blockedAdvisory) Acquire(ctx context.Context, auctionID uuid.UUID) (func(), error) {
	return nil, errors.ErrLockTimeout
}

func TestService_PlaceBid_AdvisoryLockHeldElsewhere(t *testing.T) {
	ctx := context.Background()

	a := activeAuction(uuid.New(), time.Hour)

	ar := new(mocks.AuctionRepository)
	em := new(mocks.EventEmitter)

	svc := bidding.NewService(ar, new(mocks.BidRepository), new(mocks.ListingRepository), em, nil, blockedAdvisory{}, nil, nil, bidding.Config{})

	_, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
		AuctionID: a.ID,
		BidderID:  uuid.New(),
		MaxAmount: values.MustParse("20.00", values.EUR),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLockTimeout)
	assert.True(t, errors.IsRetryable(err))
	ar.AssertNotCalled(t, "ApplyBidOutcome", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, em.Events())
}

func TestService_CreateAuction(t *testing.T) {
	ctx := context.Background()

	sellerID := uuid.New()

	t.Run("creates auction for auction listing", func(t *testing.T) {
		l, err := listing.NewListing(sellerID, "1999 Holo Charizard PSA 9", listing.TypeAuction, values.MustParse("10.00", values.EUR))
		require.NoError(t, err)

		lr := new(mocks.ListingRepository)
		ar := new(mocks.AuctionRepository)
		lr.On("GetByID", ctx, l.ID).Return(l, nil)
		ar.On("GetByListingID", ctx, l.ID).Return(nil, assert.AnError)
		ar.On("Create", ctx, mock.AnythingOfType("*auction.Auction")).Return(nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), lr, nil)

		a, err := svc.CreateAuction(ctx, l.ID, time.Now().Add(72*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, auction.StatusActive, a.Status)
		assert.Equal(t, l.StartingPrice, a.StartingPrice)
		assert.Equal(t, sellerID, a.SellerID)
	})

	t.Run("rejects buy-now-only listing", func(t *testing.T) {
		l, err := listing.NewListing(sellerID, "Booster box, sealed", listing.TypeBuyNow, values.MustParse("120.00", values.EUR))
		require.NoError(t, err)

		lr := new(mocks.ListingRepository)
		lr.On("GetByID", ctx, l.ID).Return(l, nil)

		svc := newTestService(t, new(mocks.AuctionRepository), new(mocks.BidRepository), lr, nil)

		_, err = svc.CreateAuction(ctx, l.ID, time.Now().Add(time.Hour))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
	})

	t.Run("rejects duplicate auction", func(t *testing.T) {
		l, err := listing.NewListing(sellerID, "Alpha dual land, played", listing.TypeAuction, values.MustParse("200.00", values.EUR))
		require.NoError(t, err)
		existing := activeAuction(sellerID, time.Hour)

		lr := new(mocks.ListingRepository)
		ar := new(mocks.AuctionRepository)
		lr.On("GetByID", ctx, l.ID).Return(l, nil)
		ar.On("GetByListingID", ctx, l.ID).Return(existing, nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), lr, nil)

		_, err = svc.CreateAuction(ctx, l.ID, time.Now().Add(time.Hour))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
	})
}

func TestService_CloseAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("expired auction with bids sells to leader", func(t *testing.T) {
		winner := uuid.New()
		a := activeAuction(uuid.New(), time.Hour)
		a.EndTime = time.Now().Add(-time.Minute)
		a.BidCount = 2
		a.LeaderID = winner
		a.CurrentBid = values.MustParse("35.00", values.EUR)

		ar := new(mocks.AuctionRepository)
		em := new(mocks.EventEmitter)
		ar.On("GetByID", ctx, a.ID).Return(a, nil)
		ar.On("UpdateState", ctx, a).Return(nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), new(mocks.ListingRepository), em)

		closed, err := svc.CloseAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, auction.StatusSold, closed.Status)

		won := em.EventsOfType(bidding.EventAuctionWon)
		require.Len(t, won, 1)
		assert.Equal(t, winner, won[0].BidderID)
		assert.Equal(t, values.MustParse("35.00", values.EUR), won[0].Amount)
		assert.Len(t, em.EventsOfType(bidding.EventAuctionClosed), 1)
	})

	t.Run("expired auction without bids ends unsold", func(t *testing.T) {
		a := activeAuction(uuid.New(), time.Hour)
		a.EndTime = time.Now().Add(-time.Minute)

		ar := new(mocks.AuctionRepository)
		em := new(mocks.EventEmitter)
		ar.On("GetByID", ctx, a.ID).Return(a, nil)
		ar.On("UpdateState", ctx, a).Return(nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), new(mocks.ListingRepository), em)

		closed, err := svc.CloseAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, auction.StatusEnded, closed.Status)
		assert.Empty(t, em.EventsOfType(bidding.EventAuctionWon))
	})

	t.Run("closing twice is a no-op", func(t *testing.T) {
		a := activeAuction(uuid.New(), time.Hour)
		a.EndTime = time.Now().Add(-time.Minute)
		a.Status = auction.StatusSold

		ar := new(mocks.AuctionRepository)
		em := new(mocks.EventEmitter)
		ar.On("GetByID", ctx, a.ID).Return(a, nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), new(mocks.ListingRepository), em)

		closed, err := svc.CloseAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, auction.StatusSold, closed.Status)
		assert.Empty(t, em.Events())
		ar.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything)
	})

	t.Run("cannot close before expiry", func(t *testing.T) {
		a := activeAuction(uuid.New(), time.Hour)

		ar := new(mocks.AuctionRepository)
		ar.On("GetByID", ctx, a.ID).Return(a, nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), new(mocks.ListingRepository), nil)

		_, err := svc.CloseAuction(ctx, a.ID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
	})
}

func TestService_CancelAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels active auction", func(t *testing.T) {
		a := activeAuction(uuid.New(), time.Hour)

		ar := new(mocks.AuctionRepository)
		em := new(mocks.EventEmitter)
		ar.On("GetByID", ctx, a.ID).Return(a, nil)
		ar.On("UpdateState", ctx, a).Return(nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), new(mocks.ListingRepository), em)

		cancelled, err := svc.CancelAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, auction.StatusCancelled, cancelled.Status)
		assert.Len(t, em.EventsOfType(bidding.EventAuctionCancelled), 1)
	})

	t.Run("cannot cancel sold auction", func(t *testing.T) {
		a := activeAuction(uuid.New(), time.Hour)
		a.Status = auction.StatusSold

		ar := new(mocks.AuctionRepository)
		ar.On("GetByID", ctx, a.ID).Return(a, nil)

		svc := newTestService(t, ar, new(mocks.BidRepository), new(mocks.ListingRepository), nil)

		_, err := svc.CancelAuction(ctx, a.ID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
	})
}

func TestService_GetBids_RedactsMaxAmounts(t *testing.T) {
	ctx := context.Background()

	auctionID := uuid.New()
	b1, err := bid.New(auctionID, uuid.New(), values.MustParse("500.00", values.EUR))
	require.NoError(t, err)
	b1.IsWinning = true

	br := new(mocks.BidRepository)
	br.On("ListByAuction", ctx, auctionID).Return([]*bid.Bid{b1}, nil)

	svc := newTestService(t, new(mocks.AuctionRepository), br, new(mocks.ListingRepository), nil)

	public, err := svc.GetBids(ctx, auctionID)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, b1.BidderID, public[0].BidderID)
	assert.True(t, public[0].IsWinning)
}

func TestService_GetBidderBids(t *testing.T) {
	ctx := context.Background()

	bidderID := uuid.New()

	t.Run("returns own bids with maxima intact", func(t *testing.T) {
		own, err := bid.New(uuid.New(), bidderID, values.MustParse("500.00", values.EUR))
		require.NoError(t, err)

		br := new(mocks.BidRepository)
		br.On("ListByBidder", ctx, bidderID, 20).Return([]*bid.Bid{own}, nil)

		svc := newTestService(t, new(mocks.AuctionRepository), br, new(mocks.ListingRepository), nil)

		got, err := svc.GetBidderBids(ctx, bidderID, 20)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, values.MustParse("500.00", values.EUR), got[0].MaxAmount)
		br.AssertExpectations(t)
	})

	t.Run("clamps out-of-range limits to the default page", func(t *testing.T) {
		br := new(mocks.BidRepository)
		br.On("ListByBidder", ctx, bidderID, 50).Return([]*bid.Bid{}, nil).Twice()

		svc := newTestService(t, new(mocks.AuctionRepository), br, new(mocks.ListingRepository), nil)

		_, err := svc.GetBidderBids(ctx, bidderID, 0)
		require.NoError(t, err)
		_, err = svc.GetBidderBids(ctx, bidderID, 5000)
		require.NoError(t, err)
		br.AssertExpectations(t)
	})

	t.Run("rejects missing bidder id", func(t *testing.T) {
		svc := newTestService(t, new(mocks.AuctionRepository), new(mocks.BidRepository), new(mocks.ListingRepository), nil)

		_, err := svc.GetBidderBids(ctx, uuid.Nil, 10)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})
}

func TestService_SweepExpired(t *testing.T) {
	ctx := context.Background()

	sold := activeAuction(uuid.New(), time.Hour)
	sold.EndTime = time.Now().Add(-time.Minute)
	sold.BidCount = 1
	sold.LeaderID = uuid.New()

	broken := uuid.New()

	ar := new(mocks.AuctionRepository)
	em := new(mocks.EventEmitter)
	ar.On("ListExpiredIDs", ctx, mock.AnythingOfType("time.Time"), 100).Return([]uuid.UUID{sold.ID, broken}, nil)
	ar.On("GetByID", ctx, sold.ID).Return(sold, nil)
	ar.On("GetByID", ctx, broken).Return(nil, assert.AnError)
	ar.On("UpdateState", ctx, sold).Return(nil)

	svc := newTestService(t, ar, new(mocks.BidRepository), new(mocks.ListingRepository), em)

	closed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Equal(t, auction.StatusSold, sold.Status)
}

// memoryStore backs the concurrency test with a real serializable
// store instead of expectation mocks.
type memoryStore struct {
	mu      sync.Mutex
	auction *auction.Auction
	bids    []*bid.Bid
}

func (s *memoryStore) Create(ctx context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.auction = &cp
	return nil
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auction == nil || s.auction.ID != id {
		return nil, assert.AnError
	}
	cp := *s.auction
	return &cp, nil
}

func (s *memoryStore) GetByListingID(ctx context.Context, listingID uuid.UUID) (*auction.Auction, error) {
	return nil, assert.AnError
}

func (s *memoryStore) ApplyBidOutcome(ctx context.Context, a *auction.Auction, b *bid.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.auction = &cp
	bcp := *b
	if bcp.IsWinning {
		for _, prev := range s.bids {
			prev.IsWinning = false
		}
	}
	s.bids = append(s.bids, &bcp)
	return nil
}

func (s *memoryStore) UpdateState(ctx context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.auction = &cp
	return nil
}

func (s *memoryStore) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auction != nil && s.auction.Status == auction.StatusActive && !now.Before(s.auction.EndTime) {
		return []uuid.UUID{s.auction.ID}, nil
	}
	return nil, nil
}

func (s *memoryStore) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*bid.Bid, 0, len(s.bids))
	for _, b := range s.bids {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) ListByBidder(ctx context.Context, bidderID uuid.UUID, limit int) ([]*bid.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*bid.Bid, 0, limit)
	for i := len(s.bids) - 1; i >= 0 && len(out) < limit; i-- {
		if s.bids[i].BidderID == bidderID {
			cp := *s.bids[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestService_PlaceBid_ConcurrentBiddersSerialize(t *testing.T) {
	ctx := context.Background()

	a := activeAuction(uuid.New(), time.Hour)
	store := &memoryStore{}
	require.NoError(t, store.Create(ctx, a))

	em := new(mocks.EventEmitter)
	svc := bidding.NewService(store, store, new(mocks.ListingRepository), em, nil, nil, nil, &mocks.MetricsCollector{}, bidding.Config{})

	const bidders = 16
	var wg sync.WaitGroup
	accepted := make(chan *bidding.PlaceBidResult, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			max := values.MustParse(fmt.Sprintf("%d.00", 20+n*5), values.EUR)
			res, err := svc.PlaceBid(ctx, &bidding.PlaceBidRequest{
				AuctionID: a.ID,
				BidderID:  uuid.New(),
				MaxAmount: max,
			})
			if err == nil {
				accepted <- res
			}
		}(i)
	}
	wg.Wait()
	close(accepted)

	final, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)

	// bid_count counts every accepted bid, the ledger matches, and
	// exactly one bid carries the winning flag
	bids, err := store.ListByAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, final.BidCount, len(bids))
	assert.GreaterOrEqual(t, final.BidCount, 1)

	winners := 0
	for _, b := range bids {
		if b.IsWinning {
			winners++
			assert.Equal(t, final.LeaderID, b.BidderID)
		}
	}
	assert.Equal(t, 1, winners)

	// the visible price never exceeds the leader's sealed max
	var leaderMax values.Money
	for _, b := range bids {
		if b.BidderID == final.LeaderID && (leaderMax.IsZero() || b.MaxAmount.GreaterThan(leaderMax)) {
			leaderMax = b.MaxAmount
		}
	}
	assert.False(t, final.CurrentBid.GreaterThan(leaderMax))
	assert.False(t, final.CurrentBid.LessThan(final.StartingPrice))
}

func TestService_GetAuction_CacheReadThrough(t *testing.T) {
	ctx := context.Background()

	a := activeAuction(uuid.New(), time.Hour)

	t.Run("cache hit skips repository", func(t *testing.T) {
		cache := new(mocks.SnapshotCache)
		cache.On("Get", ctx, a.ID).Return(a, true)

		ar := new(mocks.AuctionRepository)
		svc := bidding.NewService(ar, new(mocks.BidRepository), new(mocks.ListingRepository), nil, nil, nil, cache, nil, bidding.Config{})

		got, err := svc.GetAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		ar.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("cache miss loads and populates", func(t *testing.T) {
		cache := new(mocks.SnapshotCache)
		cache.On("Get", ctx, a.ID).Return(nil, false)
		cache.On("Set", ctx, a).Return()

		ar := new(mocks.AuctionRepository)
		ar.On("GetByID", ctx, a.ID).Return(a, nil)

		svc := bidding.NewService(ar, new(mocks.BidRepository), new(mocks.ListingRepository), nil, nil, nil, cache, nil, bidding.Config{})

		got, err := svc.GetAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		cache.AssertExpectations(t)
	})
}
