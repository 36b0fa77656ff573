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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/api/rest"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/cache"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/config"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/database"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/events"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/repository"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/telemetry"
	"github.com/cardhaus/card-exchange-backend/internal/metrics"
	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		return fmt.Errorf("init zap: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.Initialize(ctx, &telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.OTLPEndpoint != "",
		SamplingRate:   cfg.Telemetry.SampleRate,
		ExportTimeout:  30 * time.Second,
		BatchTimeout:   5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

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

	registry, err := metrics.NewRegistry("bidding-engine")
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	svc := bidding.NewService(
		repository.NewAuctionRepository(pool.Pool()),
		repository.NewBidRepository(pool.Pool()),
		repository.NewListingRepository(pool.Pool()),
		emitter,
		cache.NewBidRateLimiter(redisClient, zapLogger, cfg.Security.BidRate.PerMinute, cfg.Security.BidRate.Window),
		cache.NewAuctionLockManager(redisClient, zapLogger, 2*cfg.Auction.LockWait),
		cache.NewAuctionCache(redisClient, zapLogger),
		registry,
		engineCfg,
	)

	server := rest.NewServer(cfg, logger, svc, hub, engineCfg.Increments, pool, redisChecker{redisClient})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// redisChecker adapts the redis client to the readiness probe
type redisChecker struct {
	client *redis.Client
}

func (r redisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
