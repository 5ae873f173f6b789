package trash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
	"github.com/velmark/taskrail-backend/pkg/ctxutil"
)

// Recover restores a soft-deleted entity into its origin backend and
// clears the ledger row. Returns domain.ErrExpired when the recovery
// window has closed; the deadline instant itself still recovers.
//
// Restore order is origin first, ledger second: a crash between the two
// leaves a restored entity plus a stale ledger row, and a retry finishes
// the job because the duplicate insert is tolerated below.
func (s *Service) Recover(ctx context.Context, ledgerID uuid.UUID) (*domain.DeletedEntity, error) {
	rec, err := s.ledger.GetByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	if rec.Expired(s.now()) {
		return nil, fmt.Errorf("recover %s %s: window closed at %s: %w",
			rec.EntityType, rec.EntityID, rec.RecoveryDeadline.Format(time.RFC3339), domain.ErrExpired)
	}

	h, err := s.resolver.Resolve(ctx, s.restoreRef(ctx, rec))
	if err != nil {
		return nil, err
	}

	if err := h.Store().Insert(ctx, rec.Snapshot()); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		s.resolver.ReportFailure(ctx, h, err)
		return nil, fmt.Errorf("restore %s %s: %w", rec.EntityType, rec.EntityID, err)
	}

	won, err := s.ledger.Delete(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("clear ledger row %s: %w", rec.ID, err)
	}
	if !won {
		// A concurrent recovery cleared the row after the restore; the
		// entity is back either way.
		s.log.WarnContext(ctx, "ledger row already cleared",
			slog.String("ledger_id", rec.ID.String()),
		)
	}

	s.log.InfoContext(ctx, "entity recovered",
		slog.String("entity_type", rec.EntityType.String()),
		slog.String("entity_id", rec.EntityID),
		slog.String("ledger_id", rec.ID.String()),
	)
	return rec, nil
}

// restoreRef builds the resolver input for a restore. A deleted entity is
// absent from every backend, so resolution follows its container when the
// snapshot recorded one, and the entity's own id otherwise.
func (s *Service) restoreRef(ctx context.Context, rec *domain.DeletedEntity) domain.EntityRef {
	ref := domain.EntityRef{EntityID: rec.EntityID, EntityType: rec.EntityType}
	if rec.ParentID != nil && rec.ParentType != nil {
		ref = domain.EntityRef{EntityID: *rec.ParentID, EntityType: *rec.ParentType}
	}
	if actorID, _, ok := ctxutil.ActorFromCtx(ctx); ok {
		ref.UserID = &actorID
	}
	return ref
}
