package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cardhaus/card-exchange-backend/internal/testutil/containers"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id UUID PRIMARY KEY,
	seller_id UUID NOT NULL,
	title TEXT NOT NULL,
	type TEXT NOT NULL,
	starting_price NUMERIC(12,2) NOT NULL,
	buy_now_price NUMERIC(12,2),
	published_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auctions (
	id UUID PRIMARY KEY,
	listing_id UUID NOT NULL UNIQUE REFERENCES listings(id),
	seller_id UUID NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	starting_price NUMERIC(12,2) NOT NULL,
	current_bid NUMERIC(12,2) NOT NULL,
	bid_count INTEGER NOT NULL DEFAULT 0,
	leader_id UUID,
	end_time TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_auctions_active_expiry
	ON auctions (end_time) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS bids (
	id UUID PRIMARY KEY,
	auction_id UUID NOT NULL REFERENCES auctions(id),
	bidder_id UUID NOT NULL,
	max_amount NUMERIC(12,2) NOT NULL,
	is_winning BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bids_auction_order
	ON bids (auction_id, created_at, id);
`

// TestDB provisions a PostgreSQL instance with the auction schema for
// integration tests. CCX_TEST_DATABASE_URL points at an existing
// database; otherwise a throwaway container is started.
type TestDB struct {
	t    *testing.T
	pool *pgxpool.Pool
}

func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := TestContext(t)

	url := os.Getenv("CCX_TEST_DATABASE_URL")
	if url == "" {
		pg, err := containers.NewPostgresContainer(ctx)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = pg.Terminate(context.Background())
		})
		url = pg.ConnectionString
	}

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)

	return &TestDB{t: t, pool: pool}
}

// Pool returns the connection pool
func (tdb *TestDB) Pool() *pgxpool.Pool {
	return tdb.pool
}

// TruncateTables resets all auction data between tests
func (tdb *TestDB) TruncateTables() {
	tdb.t.Helper()
	_, err := tdb.pool.Exec(context.Background(), `TRUNCATE bids, auctions, listings CASCADE`)
	require.NoError(tdb.t, err)
}
