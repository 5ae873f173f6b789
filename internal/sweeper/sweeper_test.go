package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
)

type ledgerMock struct {
	ListExpiredFunc func(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error)
	DeleteFunc      func(ctx context.Context, id uuid.UUID) (bool, error)

	mu          sync.Mutex
	deleteCalls []uuid.UUID
}

func (m *ledgerMock) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error) {
	return m.ListExpiredFunc(ctx, now, limit)
}

func (m *ledgerMock) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	m.deleteCalls = append(m.deleteCalls, id)
	m.mu.Unlock()
	if m.DeleteFunc == nil {
		return true, nil
	}
	return m.DeleteFunc(ctx, id)
}

func (m *ledgerMock) DeleteCalls() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.deleteCalls...)
}

func expiredRecs(n int) []*domain.DeletedEntity {
	recs := make([]*domain.DeletedEntity, n)
	for i := range recs {
		recs[i] = &domain.DeletedEntity{
			ID:         uuid.New(),
			EntityType: domain.EntityTypeTask,
			EntityID:   "t-" + uuid.NewString(),
		}
	}
	return recs
}

func newSweeper(ledger ledgerRepo, pageSize int) *Sweeper {
	return New(slog.Default(), ledger, time.Hour, pageSize)
}

func TestSweep_PurgesAllPages(t *testing.T) {
	t.Parallel()

	remaining := expiredRecs(5)
	ledger := &ledgerMock{}
	ledger.ListExpiredFunc = func(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error) {
		if limit < len(remaining) {
			return remaining[:limit], nil
		}
		return remaining, nil
	}
	ledger.DeleteFunc = func(ctx context.Context, id uuid.UUID) (bool, error) {
		for i, rec := range remaining {
			if rec.ID == id {
				remaining = append(remaining[:i], remaining[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	}

	stats, err := newSweeper(ledger, 2).Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Purged != 5 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Errorf("stats: %+v, want 5 purged", stats)
	}
	if len(remaining) != 0 {
		t.Errorf("rows left behind: %d", len(remaining))
	}
}

func TestSweep_SkipsRowsLostToRecovery(t *testing.T) {
	t.Parallel()

	recs := expiredRecs(3)
	recovered := recs[1].ID

	var listed bool
	ledger := &ledgerMock{
		ListExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error) {
			if listed {
				return nil, nil
			}
			listed = true
			return recs, nil
		},
		DeleteFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
			// One row was recovered between the listing and the delete.
			if id == recovered {
				return false, nil
			}
			return true, nil
		},
	}

	stats, err := newSweeper(ledger, 10).Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Purged != 2 || stats.Skipped != 1 {
		t.Errorf("stats: %+v, want 2 purged, 1 skipped", stats)
	}
}

func TestSweep_FailedRowDoesNotStallThePass(t *testing.T) {
	t.Parallel()

	recs := expiredRecs(4)
	bad := recs[0].ID

	var listed bool
	ledger := &ledgerMock{
		ListExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error) {
			if listed {
				return nil, nil
			}
			listed = true
			return recs, nil
		},
		DeleteFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
			if id == bad {
				return false, errors.New("deadlock detected")
			}
			return true, nil
		},
	}

	sw := newSweeper(ledger, 10)
	stats, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("a bad row must not fail the pass: %v", err)
	}
	if stats.Purged != 3 || stats.Failed != 1 {
		t.Errorf("stats: %+v, want 3 purged, 1 failed", stats)
	}
	if got := len(ledger.DeleteCalls()); got != 4 {
		t.Errorf("delete attempts: got %d, want 4", got)
	}
}

func TestSweep_ListFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	ledger := &ledgerMock{
		ListExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error) {
			return nil, boom
		},
	}

	if _, err := newSweeper(ledger, 10).Sweep(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ledger := &ledgerMock{
		ListExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error) {
			return nil, nil
		},
	}
	sw := New(slog.Default(), ledger, 10*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
