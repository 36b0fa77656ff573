package auction

import (
	"fmt"

	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

// IncrementTier maps prices up to MaxPrice (inclusive) to the minimum
// bid increment at that level. The final tier of a table is unbounded.
type IncrementTier struct {
	MaxPrice  values.Money
	Increment values.Money
	Unbounded bool
}

// IncrementTable is the ordered tier table. Immutable once built;
// IncrementFor is a total function over non-negative prices.
type IncrementTable struct {
	tiers []IncrementTier
}

// NewIncrementTable validates and builds a tier table. Tiers must be
// strictly increasing in MaxPrice, increments monotone non-decreasing,
// and exactly the last tier unbounded.
func NewIncrementTable(tiers []IncrementTier) (*IncrementTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("increment table cannot be empty")
	}

	for i, tier := range tiers {
		last := i == len(tiers)-1

		if tier.Unbounded != last {
			return nil, fmt.Errorf("tier %d: only the final tier may be unbounded", i)
		}

		if !tier.Increment.IsPositive() {
			return nil, fmt.Errorf("tier %d: increment must be positive", i)
		}

		if i == 0 {
			continue
		}

		prev := tiers[i-1]
		if !last && !tier.MaxPrice.GreaterThan(prev.MaxPrice) {
			return nil, fmt.Errorf("tier %d: max price must exceed previous tier", i)
		}

		if tier.Increment.LessThan(prev.Increment) {
			return nil, fmt.Errorf("tier %d: increment must not decrease", i)
		}
	}

	out := make([]IncrementTier, len(tiers))
	copy(out, tiers)
	return &IncrementTable{tiers: out}, nil
}

// DefaultIncrementTable is the shipped tier table for euro-denominated
// card auctions
func DefaultIncrementTable() *IncrementTable {
	t, err := NewIncrementTable([]IncrementTier{
		{MaxPrice: values.Euro("0.99"), Increment: values.Euro("0.05")},
		{MaxPrice: values.Euro("4.99"), Increment: values.Euro("0.25")},
		{MaxPrice: values.Euro("24.99"), Increment: values.Euro("1.00")},
		{MaxPrice: values.Euro("49.99"), Increment: values.Euro("5.00")},
		{MaxPrice: values.Euro("199.99"), Increment: values.Euro("10.00")},
		{Increment: values.Euro("25.00"), Unbounded: true},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// IncrementFor returns the minimum allowed increment above the given
// price: the increment of the smallest tier whose MaxPrice covers it.
// Negative prices are a precondition violation rejected upstream.
func (t *IncrementTable) IncrementFor(price values.Money) values.Money {
	for _, tier := range t.tiers {
		if tier.Unbounded || !price.GreaterThan(tier.MaxPrice) {
			return tier.Increment
		}
	}
	// Unreachable: the last tier is always unbounded
	return t.tiers[len(t.tiers)-1].Increment
}

// Tiers returns a copy of the tier table
func (t *IncrementTable) Tiers() []IncrementTier {
	out := make([]IncrementTier, len(t.tiers))
	copy(out, t.tiers)
	return out
}
