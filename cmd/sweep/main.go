// Command sweep runs one pass over the soft-delete ledger and purges
// rows whose recovery window has closed. It is intended to be invoked by
// an external cron job as a backstop for the in-process sweeper.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/velmark/taskrail-backend/internal/adapter/postgres"
	trashrepo "github.com/velmark/taskrail-backend/internal/adapter/postgres/trash"
	"github.com/velmark/taskrail-backend/internal/app"
	"github.com/velmark/taskrail-backend/internal/config"
	"github.com/velmark/taskrail-backend/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	sw := sweeper.New(logger, trashrepo.New(pool), cfg.Sweep.Interval, cfg.Sweep.PageSize)

	stats, err := sw.Sweep(ctx)
	if err != nil {
		logger.Error("sweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("sweep completed",
		slog.Int("scanned", stats.Scanned),
		slog.Int("purged", stats.Purged),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
}
