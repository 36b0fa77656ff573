package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/config"
	"github.com/cardhaus/card-exchange-backend/internal/infrastructure/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	dir := flag.String("dir", "migrations", "migrations directory")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	if err := run(*configPath, *dir, command); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dir, command string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init zap: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	pool, err := database.NewConnectionPool(context.Background(), &cfg.Database, zapLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrator, err := database.NewMigrator(pool.StdDB(), dir, zapLogger)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	switch command {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down()
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, down or version)", command)
	}
}
