// Package sweeper purges ledger rows whose recovery window has closed.
//
// The sweep is a background loop, not a hook on reads: listings stay
// cheap and expired rows disappear within one interval of their deadline
// rather than exactly at it. Every row removal goes through the same
// conditional delete as manual recovery, so a sweep racing a recovery on
// one row settles on exactly one winner.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
)

type ledgerRepo interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Stats summarizes one sweep pass.
type Stats struct {
	Scanned int
	Purged  int
	Skipped int // rows a concurrent recovery or purge won first
	Failed  int
}

// Sweeper periodically removes expired rows from the soft-delete ledger.
type Sweeper struct {
	ledger   ledgerRepo
	log      *slog.Logger
	interval time.Duration
	pageSize int
	now      func() time.Time
}

// New creates a sweeper.
func New(log *slog.Logger, ledger ledgerRepo, interval time.Duration, pageSize int) *Sweeper {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Sweeper{
		ledger:   ledger,
		log:      log.With("service", "sweeper"),
		interval: interval,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// Sweep runs one full pass over the expired rows. A row that fails to
// delete is logged and skipped; the pass keeps going so one bad row
// cannot stall cleanup. The pass itself only errors when a page cannot
// be listed at all.
func (s *Sweeper) Sweep(ctx context.Context) (Stats, error) {
	var stats Stats
	cutoff := s.now()

	for {
		recs, err := s.ledger.ListExpired(ctx, cutoff, s.pageSize)
		if err != nil {
			return stats, err
		}
		if len(recs) == 0 {
			break
		}

		pageRemoved := 0
		for _, rec := range recs {
			stats.Scanned++

			won, err := s.ledger.Delete(ctx, rec.ID)
			if err != nil {
				stats.Failed++
				s.log.ErrorContext(ctx, "failed to purge expired row",
					slog.String("ledger_id", rec.ID.String()),
					slog.String("entity_type", rec.EntityType.String()),
					slog.String("entity_id", rec.EntityID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if !won {
				// Lost the row to a concurrent recovery or purge; it is
				// gone from the table either way.
				stats.Skipped++
				pageRemoved++
				continue
			}
			stats.Purged++
			pageRemoved++
		}

		if len(recs) < s.pageSize {
			break
		}
		if pageRemoved == 0 {
			// Every row in a full page failed; the next listing would
			// return the same rows.
			break
		}
		// Removed rows drop out of the next listing, so the same cutoff
		// pages through the remainder.
	}

	if stats.Scanned > 0 {
		s.log.InfoContext(ctx, "sweep finished",
			slog.Int("scanned", stats.Scanned),
			slog.Int("purged", stats.Purged),
			slog.Int("skipped", stats.Skipped),
			slog.Int("failed", stats.Failed),
		)
	}
	return stats, nil
}

// Run sweeps immediately and then on every interval tick until the
// context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.log.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
