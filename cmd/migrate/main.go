// Package main applies the embedded SQL migrations to DATABASE_URL.
package main

import (
	"context"
	"os"
	"time"

	"legitify/internal/platform/config"
	"legitify/internal/platform/database"
	"legitify/internal/platform/logger"
	"legitify/migrations"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment, cfg.LogLevel)

	if cfg.Database.URL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close() //nolint:errcheck // best-effort on exit

	applied, err := migrations.Apply(ctx, pool.DB())
	if err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "files", applied)
}
