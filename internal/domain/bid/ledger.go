package bid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// Ledger is the append-only record of accepted bids for one auction,
// held in acceptance order. Appends happen only inside the auction's
// exclusive section, so slice order doubles as the tiebreak for bids
// landing on the same wall-clock instant. Entries are never deleted;
// corrections are new entries.
type Ledger struct {
	auctionID uuid.UUID
	entries   []*Bid
}

// NewLedger creates an empty ledger for an auction
func NewLedger(auctionID uuid.UUID) *Ledger {
	return &Ledger{auctionID: auctionID}
}

// RestoreLedger rebuilds a ledger from persisted bids already in
// acceptance order
func RestoreLedger(auctionID uuid.UUID, entries []*Bid) (*Ledger, error) {
	l := NewLedger(auctionID)
	for _, b := range entries {
		if err := l.Append(b); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AuctionID returns the auction this ledger belongs to
func (l *Ledger) AuctionID() uuid.UUID {
	return l.auctionID
}

// Append adds an accepted bid to the end of the ledger
func (l *Ledger) Append(b *Bid) error {
	if b == nil {
		return fmt.Errorf("bid cannot be nil")
	}

	if b.AuctionID != l.auctionID {
		return fmt.Errorf("bid belongs to auction %s, ledger is for %s", b.AuctionID, l.auctionID)
	}

	l.entries = append(l.entries, b)
	return nil
}

// Len returns the number of accepted bids
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns the bids in acceptance order. The slice is a copy;
// the bids themselves are shared.
func (l *Ledger) Entries() []*Bid {
	out := make([]*Bid, len(l.entries))
	copy(out, l.entries)
	return out
}

// CurrentLeader returns the bid currently flagged as winning, or nil
// when the ledger is empty or resolution has not run yet
func (l *Ledger) CurrentLeader() *Bid {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].IsWinning {
			return l.entries[i]
		}
	}
	return nil
}

// StandingMax returns the highest sealed maximum a bidder has on file,
// or false if they have no bids here
func (l *Ledger) StandingMax(bidderID uuid.UUID) (values.Money, bool) {
	var best values.Money
	found := false
	for _, b := range l.entries {
		if b.BidderID != bidderID {
			continue
		}
		if !found || b.MaxAmount.GreaterThan(best) {
			best = b.MaxAmount
			found = true
		}
	}
	return best, found
}

// SecondHighestMax returns the highest sealed maximum held by anyone
// other than the current leader, or false when no such bid exists
func (l *Ledger) SecondHighestMax() (values.Money, bool) {
	leader := l.CurrentLeader()

	var best values.Money
	found := false
	for _, b := range l.entries {
		if leader != nil && b.BidderID == leader.BidderID {
			continue
		}
		if !found || b.MaxAmount.GreaterThan(best) {
			best = b.MaxAmount
			found = true
		}
	}
	return best, found
}

// SetWinning flags the given bid as the single winner, clearing the
// flag everywhere else. Exactly one entry holds the flag afterwards.
func (l *Ledger) SetWinning(winner *Bid) error {
	present := false
	for _, b := range l.entries {
		if b == winner {
			present = true
			break
		}
	}
	if !present {
		return fmt.Errorf("winning bid is not in the ledger")
	}

	for _, b := range l.entries {
		b.IsWinning = b == winner
	}
	return nil
}
