package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/cache"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/config"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/database"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/events"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/repository"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/telemetry"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// The sweeper is the settlement authority: it closes every auction
// past its end time, at most one instance at a time via a Redis lock.
// Auctions stay bid-closed the moment they expire regardless; the
// sweeper only makes the terminal state durable and visible.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "sweeper: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init zap: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewConnectionPool(ctx, &cfg.Database, zapLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(&cfg.Redis, zapLogger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck

	hub := events.NewHub(zapLogger, events.DefaultHubConfig())
	emitter := events.NewAsyncEmitter(zapLogger, events.DefaultEmitterConfig(), hub)
	defer emitter.Close()

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	svc := bidding.NewService(
		repository.NewAuctionRepository(pool.Pool()),
		repository.NewBidRepository(pool.Pool()),
		repository.NewListingRepository(pool.Pool()),
		emitter,
		nil,
		cache.NewAuctionLockManager(redisClient, zapLogger, 2*engineCfg.LockWait),
		nil,
		nil,
		engineCfg,
	)

	interval := cfg.Auction.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	lock := cache.NewSweepLock(redisClient, zapLogger, interval)

	if once {
		sweep(ctx, logger.With("mode", "once"), svc, lock)
		return nil
	}

	logger.Info("sweeper started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper stopping")
			return nil
		case <-ticker.C:
			sweep(ctx, logger, svc, lock)
		}
	}
}

func sweep(ctx context.Context, logger *slog.Logger, svc bidding.Service, lock *cache.SweepLock) {
	if !lock.TryAcquire(ctx) {
		return
	}
	defer lock.Release(ctx)

	closed, err := svc.SweepExpired(ctx)
	if err != nil {
		logger.Error("sweep failed", "error", err)
		return
	}
	if closed > 0 {
		logger.Info("auctions settled", "count", closed)
	}
}
