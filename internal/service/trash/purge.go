package trash

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
)

// PermanentlyDelete removes a ledger record ahead of its deadline. The
// entity becomes unrecoverable. Returns domain.ErrNotFound when the row
// was already recovered or purged.
func (s *Service) PermanentlyDelete(ctx context.Context, ledgerID uuid.UUID) error {
	won, err := s.ledger.Delete(ctx, ledgerID)
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("deleted entity %s: %w", ledgerID, domain.ErrNotFound)
	}

	s.log.InfoContext(ctx, "ledger record purged",
		slog.String("ledger_id", ledgerID.String()),
	)
	return nil
}
