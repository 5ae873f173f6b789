package trash

import (
	"context"
	"time"

	"github.com/velmark/taskrail-backend/internal/domain"
)

// ListItem pairs a ledger record with its clock-derived status.
type ListItem struct {
	Record *domain.DeletedEntity
	Status domain.TrashStatus
}

// List returns ledger records matching the filter, newest deletions
// first. Expired records still pending cleanup are included and marked.
func (s *Service) List(ctx context.Context, filter domain.TrashFilter) ([]ListItem, error) {
	recs, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]ListItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, ListItem{Record: rec, Status: rec.Status(now)})
	}
	return items, nil
}

// Summarize computes the aggregate trash view by partitioning matching
// records against the clock.
func (s *Service) Summarize(ctx context.Context, filter domain.TrashFilter) (*domain.TrashSummary, error) {
	recs, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sum := &domain.TrashSummary{ByType: make(map[domain.EntityType]int)}
	for _, rec := range recs {
		sum.Total++
		sum.ByType[rec.EntityType]++
		switch {
		case rec.Expired(now):
			sum.ExpiredPendingCleanup++
		case rec.RecoveryDeadline.Sub(now) <= 24*time.Hour:
			sum.ExpiringWithin24h++
		}
	}
	return sum, nil
}
