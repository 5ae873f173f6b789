package trash

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
)

// BatchRecover recovers each ledger record independently and reports the
// per-item outcomes. Individual failures never abort the batch; an
// oversized batch is rejected before any work starts.
func (s *Service) BatchRecover(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error) {
	if err := checkCeiling(domain.BulkActionRecover, len(ids)); err != nil {
		return nil, err
	}

	sum := &domain.BulkSummary{}
	for _, id := range ids {
		_, err := s.Recover(ctx, id)
		sum.Add(id.String(), err)
	}
	return sum, nil
}

// BatchPermanentlyDelete purges each ledger record independently and
// reports the per-item outcomes.
func (s *Service) BatchPermanentlyDelete(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error) {
	if err := checkCeiling(domain.BulkActionDelete, len(ids)); err != nil {
		return nil, err
	}

	sum := &domain.BulkSummary{}
	for _, id := range ids {
		sum.Add(id.String(), s.PermanentlyDelete(ctx, id))
	}
	return sum, nil
}

func checkCeiling(action domain.BulkActionType, n int) error {
	if max := action.MaxBatchSize(); n > max {
		return fmt.Errorf("%s batch of %d exceeds ceiling %d: %w",
			action, n, max, domain.ErrTooManyItems)
	}
	return nil
}
