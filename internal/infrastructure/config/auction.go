package config

import (
	"fmt"

	"github.com/cardhaus/card-exchange-backend/internal/domain/auction"
	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// EngineConfig converts the auction section into the bidding engine's
// config, parsing any increment tier overrides.
func (c *Config) EngineConfig() (bidding.Config, error) {
	cfg := bidding.Config{
		SnipeWindow:    c.Auction.SnipeWindow,
		SnipeExtension: c.Auction.SnipeExtension,
		LockWait:       c.Auction.LockWait,
		PersistRetries: c.Auction.PersistRetries,
	}

	if len(c.Auction.IncrementTiers) == 0 {
		return cfg, nil
	}

	tiers := make([]auction.IncrementTier, 0, len(c.Auction.IncrementTiers))
	for i, t := range c.Auction.IncrementTiers {
		inc, err := values.NewMoneyFromString(t.Increment, values.EUR)
		if err != nil {
			return cfg, fmt.Errorf("increment tier %d: bad increment %q: %w", i, t.Increment, err)
		}
		tier := auction.IncrementTier{Increment: inc, Unbounded: t.Unbounded}
		if !t.Unbounded {
			max, err := values.NewMoneyFromString(t.MaxPrice, values.EUR)
			if err != nil {
				return cfg, fmt.Errorf("increment tier %d: bad max_price %q: %w", i, t.MaxPrice, err)
			}
			tier.MaxPrice = max
		}
		tiers = append(tiers, tier)
	}

	table, err := auction.NewIncrementTable(tiers)
	if err != nil {
		return cfg, fmt.Errorf("increment tiers: %w", err)
	}
	cfg.Increments = table
	return cfg, nil
}
