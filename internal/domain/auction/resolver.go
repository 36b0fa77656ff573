package auction

import (
	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/bid"
	"github.com/cardhaus/card-exchange-backend/internal/domain/errors"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// Outcome is the snapshot produced by resolving one accepted bid.
// It is a full replacement of the auction's bidding state, so
// re-applying it after a storage retry is idempotent.
type Outcome struct {
	Bid *bid.Bid

	CurrentBid values.Money
	BidCount   int
	LeaderID   uuid.UUID

	// PreviousLeaderID is who held the lead before this bid,
	// uuid.Nil when there was none. Set even when the lead did not
	// change so callers can tell the two apart via LeaderChanged.
	PreviousLeaderID uuid.UUID
	LeaderChanged    bool

	// BidderLeads tells the submitting bidder their own standing
	// without revealing anyone's sealed maximum
	BidderLeads bool
}

// MinimumRequired returns the smallest maximum a new bid must declare
// to be accepted: the starting price while no bid stands, otherwise
// the visible price plus one increment.
func MinimumRequired(a *Auction, table *IncrementTable) values.Money {
	if !a.HasBids() {
		return a.StartingPrice
	}
	return a.CurrentBid.MustAdd(table.IncrementFor(a.CurrentBid))
}

// ResolveProxyBid applies English-auction proxy semantics to a new
// sealed maximum. The caller must hold the auction's exclusive
// section. The ledger is updated in place (append + winning flag); the
// auction itself is untouched; the caller applies the returned
// Outcome once persistence succeeds.
//
// Rules, with L the standing leader (if any) and m the new maximum:
//   - m below the minimum required is rejected, no state change
//   - the leader re-submitting m at or below their standing maximum is
//     rejected as a no-op (their ceiling never silently lowers)
//   - the leader may raise their own ceiling: the winning flag moves to
//     the new record, the visible price does not
//   - a first bid sets the visible price to the starting price, never
//     to m
//   - m above L's maximum takes the lead at L.max + increment(L.max),
//     capped at m
//   - m at or below L's maximum leaves L leading but pushes the visible
//     price to m + increment(m), capped at L's maximum
func ResolveProxyBid(a *Auction, ledger *bid.Ledger, bidderID uuid.UUID, maxAmount values.Money, table *IncrementTable) (*Outcome, error) {
	if maxAmount.Currency() != a.StartingPrice.Currency() {
		return nil, errors.NewValidationError("CURRENCY_MISMATCH", "bid currency does not match the auction")
	}

	if !maxAmount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	minRequired := MinimumRequired(a, table)
	if maxAmount.LessThan(minRequired) {
		return nil, errors.ErrBidTooLow.WithDetails(map[string]interface{}{
			"minimum_required": minRequired.StringWithCode(),
		})
	}

	leader := ledger.CurrentLeader()

	if leader != nil && leader.BidderID == bidderID && !maxAmount.GreaterThan(leader.MaxAmount) {
		// Re-submitting at or below the standing ceiling while
		// leading: rejected without corrupting state
		return nil, errors.ErrSelfLeaderNoop
	}

	newBid, err := bid.New(a.ID, bidderID, maxAmount)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_BID", err.Error()).WithCause(err)
	}

	if err := ledger.Append(newBid); err != nil {
		return nil, errors.NewInternalError("ledger append failed").WithCause(err)
	}

	out := &Outcome{
		Bid:      newBid,
		BidCount: a.BidCount + 1,
	}

	switch {
	case leader == nil:
		// First accepted bid: the opening price becomes visible,
		// the sealed maximum stays sealed
		out.CurrentBid = a.StartingPrice
		out.LeaderID = bidderID
		out.LeaderChanged = true
		out.BidderLeads = true
		if err := ledger.SetWinning(newBid); err != nil {
			return nil, errors.NewInternalError("winning flag update failed").WithCause(err)
		}

	case leader.BidderID == bidderID:
		// Leader raising their own ceiling: no competitor pressure,
		// so the visible price holds; the flag moves to the newest
		// record of the leader
		out.CurrentBid = a.CurrentBid
		out.LeaderID = bidderID
		out.PreviousLeaderID = bidderID
		out.BidderLeads = true
		if err := ledger.SetWinning(newBid); err != nil {
			return nil, errors.NewInternalError("winning flag update failed").WithCause(err)
		}

	case maxAmount.GreaterThan(leader.MaxAmount):
		// Lead changes hands: price rises one increment past the
		// displaced leader's ceiling, capped at the new maximum
		displaced := leader.MaxAmount.MustAdd(table.IncrementFor(leader.MaxAmount))
		out.CurrentBid = displaced.Min(maxAmount)
		out.LeaderID = bidderID
		out.PreviousLeaderID = leader.BidderID
		out.LeaderChanged = true
		out.BidderLeads = true
		if err := ledger.SetWinning(newBid); err != nil {
			return nil, errors.NewInternalError("winning flag update failed").WithCause(err)
		}

	default:
		// Under-bid: the leader holds, but the challenger pushes the
		// visible price up against the leader's sealed ceiling
		pushed := maxAmount.MustAdd(table.IncrementFor(maxAmount))
		out.CurrentBid = pushed.Min(leader.MaxAmount)
		out.LeaderID = leader.BidderID
		out.PreviousLeaderID = leader.BidderID
		out.BidderLeads = false
	}

	// The visible price is monotone: a resolved bid never lowers it
	if out.CurrentBid.LessThan(a.CurrentBid) {
		out.CurrentBid = a.CurrentBid
	}

	return out, nil
}
