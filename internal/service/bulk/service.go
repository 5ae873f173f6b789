// Package bulk applies one action independently across many entities.
//
// A bulk action is a loop, not a transaction: each target id succeeds or
// fails on its own and the caller gets a per-item summary. Partial
// success is the normal shape of the result. The only upfront rejections
// are an invalid action and a batch over the per-action ceiling.
package bulk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

type trashService interface {
	SoftDelete(ctx context.Context, ref domain.EntityRef) (*domain.DeletedEntity, error)
	Recover(ctx context.Context, ledgerID uuid.UUID) (*domain.DeletedEntity, error)
}

type backendResolver interface {
	Resolve(ctx context.Context, ref domain.EntityRef) (backend.Handle, error)
	LookupDocument(ctx context.Context, h backend.Handle, ref domain.EntityRef) (*domain.Document, error)
	ReportFailure(ctx context.Context, h backend.Handle, err error) bool
}

// Service executes bulk actions.
type Service struct {
	resolver backendResolver
	trash    trashService
	log      *slog.Logger
}

// New creates a bulk action executor.
func New(log *slog.Logger, resolver backendResolver, trash trashService) *Service {
	return &Service{
		resolver: resolver,
		trash:    trash,
		log:      log.With("service", "bulk"),
	}
}

// Execute runs the action against every target id and reports per-item
// outcomes. Item failures never abort the loop.
func (s *Service) Execute(ctx context.Context, action domain.BulkAction) (*domain.BulkSummary, error) {
	if err := validate(action); err != nil {
		return nil, err
	}

	sum := &domain.BulkSummary{}
	for _, id := range action.TargetIDs {
		sum.Add(id, s.applyOne(ctx, action, id))
	}

	s.log.InfoContext(ctx, "bulk action finished",
		slog.String("action", action.Type.String()),
		slog.String("entity_type", action.EntityType.String()),
		slog.Int("total", sum.Total),
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (s *Service) applyOne(ctx context.Context, action domain.BulkAction, id string) error {
	switch action.Type {
	case domain.BulkActionDelete:
		_, err := s.trash.SoftDelete(ctx, s.ref(action, id))
		return err

	case domain.BulkActionRecover:
		// Recover targets address ledger rows, not live entities.
		ledgerID, err := uuid.Parse(id)
		if err != nil {
			return domain.NewValidationError("id", fmt.Sprintf("%q is not a ledger id", id))
		}
		_, err = s.trash.Recover(ctx, ledgerID)
		return err

	default:
		return s.mutateOne(ctx, action, id)
	}
}

func (s *Service) mutateOne(ctx context.Context, action domain.BulkAction, id string) error {
	ref := s.ref(action, id)

	h, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	doc, err := s.resolver.LookupDocument(ctx, h, ref)
	if err != nil {
		s.resolver.ReportFailure(ctx, h, err)
		return err
	}

	switch action.Type {
	case domain.BulkActionMove:
		err = h.Store().SetParent(ctx, doc.Collection, doc.ID,
			*action.Params.TargetParentID, moveParentType(action.EntityType))
	case domain.BulkActionAssign:
		err = h.Store().SetFields(ctx, doc.Collection, doc.ID,
			map[string]any{"assignee_id": action.Params.AssigneeID.String()})
	case domain.BulkActionChangeRole:
		err = h.Store().SetFields(ctx, doc.Collection, doc.ID,
			map[string]any{"role": *action.Params.Role})
	}
	if err != nil {
		s.resolver.ReportFailure(ctx, h, err)
	}
	return err
}

func (s *Service) ref(action domain.BulkAction, id string) domain.EntityRef {
	return domain.EntityRef{
		EntityID:   id,
		EntityType: action.EntityType,
		OrgID:      action.OrgID,
		UserID:     action.UserID,
	}
}

// moveParentType is the container kind a moved entity is re-scoped under.
func moveParentType(e domain.EntityType) domain.EntityType {
	switch e {
	case domain.EntityTypeTask, domain.EntityTypeColumn:
		return domain.EntityTypeProject
	default:
		return domain.EntityTypeOrganization
	}
}

func validate(action domain.BulkAction) error {
	if !action.Type.IsValid() {
		return domain.NewValidationError("type", fmt.Sprintf("unknown action %q", string(action.Type)))
	}
	if !action.EntityType.IsValid() {
		return domain.NewValidationError("entity_type", fmt.Sprintf("unknown type %q", string(action.EntityType)))
	}
	if len(action.TargetIDs) == 0 {
		return domain.NewValidationError("target_ids", "required")
	}
	if max := action.Type.MaxBatchSize(); len(action.TargetIDs) > max {
		return fmt.Errorf("%s batch of %d exceeds ceiling %d: %w",
			action.Type, len(action.TargetIDs), max, domain.ErrTooManyItems)
	}

	switch action.Type {
	case domain.BulkActionMove:
		if action.Params.TargetParentID == nil {
			return domain.NewValidationError("params.target_parent_id", "required for MOVE")
		}
		if action.EntityType == domain.EntityTypeOrganization {
			return domain.NewValidationError("entity_type", "organizations cannot be moved")
		}
	case domain.BulkActionAssign:
		if action.Params.AssigneeID == nil {
			return domain.NewValidationError("params.assignee_id", "required for ASSIGN")
		}
		if action.EntityType != domain.EntityTypeTask {
			return domain.NewValidationError("entity_type", "only tasks can be assigned")
		}
	case domain.BulkActionChangeRole:
		if action.Params.Role == nil {
			return domain.NewValidationError("params.role", "required for CHANGE_ROLE")
		}
		if action.EntityType != domain.EntityTypeTeamMember {
			return domain.NewValidationError("entity_type", "only team members carry a role")
		}
	}
	return nil
}
