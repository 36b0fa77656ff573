package bidding

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cardhaus/card-exchange-backend/internal/domain/errors"
)

// lockManager hands out per-auction exclusive sections. Each auction
// gets its own semaphore so distinct auctions never contend; entries
// are refcounted and removed once the last holder or waiter is gone.
type lockManager struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newLockManager() *lockManager {
	return &lockManager{
		locks: make(map[uuid.UUID]*lockEntry),
	}
}

// acquire blocks until the auction's section is held or ctx expires.
// On timeout nothing was applied and the caller may safely retry. The
// returned release function must be called exactly once.
func (m *lockManager) acquire(ctx context.Context, auctionID uuid.UUID) (func(), error) {
	m.mu.Lock()
	entry, ok := m.locks[auctionID]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		m.locks[auctionID] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			m.unref(auctionID, entry)
		}, nil
	case <-ctx.Done():
		m.unref(auctionID, entry)
		return nil, errors.ErrLockTimeout.WithCause(ctx.Err())
	}
}

func (m *lockManager) unref(auctionID uuid.UUID, entry *lockEntry) {
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, auctionID)
	}
	m.mu.Unlock()
}
