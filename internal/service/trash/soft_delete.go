package trash

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
	"github.com/velmark/taskrail-backend/pkg/ctxutil"
)

// SoftDelete snapshots the referenced entity into the ledger and removes
// it from its origin backend. The recovery deadline is fixed at the
// moment of deletion and never extended.
//
// Write order is ledger first, origin second. If the ledger insert fails
// the origin document is left untouched. If the origin removal fails the
// ledger row is compensated away so the trash never lists an entity that
// still exists.
func (s *Service) SoftDelete(ctx context.Context, ref domain.EntityRef) (*domain.DeletedEntity, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	h, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	doc, err := s.resolver.LookupDocument(ctx, h, ref)
	if err != nil {
		s.resolver.ReportFailure(ctx, h, err)
		return nil, err
	}

	now := s.now().UTC()
	actorID, actorEmail, _ := ctxutil.ActorFromCtx(ctx)

	rec := &domain.DeletedEntity{
		ID:               uuid.New(),
		EntityType:       ref.EntityType,
		EntityID:         doc.ID,
		ParentID:         doc.ParentID,
		ParentType:       doc.ParentType,
		Data:             doc.Data,
		DeletedAt:        now,
		DeletedBy:        actorID,
		DeletedByEmail:   actorEmail,
		RecoveryDeadline: now.Add(domain.RecoveryWindow),
	}

	if err := s.ledger.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("ledger insert for %s %s: %w", ref.EntityType, doc.ID, err)
	}

	if err := h.Store().Delete(ctx, doc.Collection, doc.ID); err != nil {
		s.resolver.ReportFailure(ctx, h, err)
		s.compensate(ctx, rec.ID)
		return nil, fmt.Errorf("remove %s %s from origin: %w", ref.EntityType, doc.ID, err)
	}

	s.log.InfoContext(ctx, "entity soft deleted",
		slog.String("entity_type", rec.EntityType.String()),
		slog.String("entity_id", rec.EntityID),
		slog.String("ledger_id", rec.ID.String()),
		slog.Time("recovery_deadline", rec.RecoveryDeadline),
	)
	return rec, nil
}
