package main

import (
	"context"
	"fmt"
	"os"

	"github.com/safar/go-supply-chain/internal/config"
	"github.com/safar/go-supply-chain/internal/database"
	"github.com/safar/go-supply-chain/internal/logger"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: go run scripts/run_migrations.go [up|down]")
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	n, err := database.Migrate(context.Background(), db, "migrations", direction, log)
	if err != nil {
		return err
	}

	log.Info("migrations complete", zap.Int("count", n), zap.String("direction", direction))
	return nil
}
