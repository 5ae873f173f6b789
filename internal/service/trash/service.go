// Package trash implements the soft-delete and recovery workflow.
//
// A soft delete moves an entity out of its origin backend into a central
// ledger; a recovery moves it back. The ledger row is always written
// before the origin document is touched, so a crash between the two
// writes leaves a recoverable duplicate rather than a lost entity.
package trash

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

type backendResolver interface {
	Resolve(ctx context.Context, ref domain.EntityRef) (backend.Handle, error)
	LookupDocument(ctx context.Context, h backend.Handle, ref domain.EntityRef) (*domain.Document, error)
	ReportFailure(ctx context.Context, h backend.Handle, err error) bool
}

type ledgerRepo interface {
	Insert(ctx context.Context, rec *domain.DeletedEntity) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter domain.TrashFilter) ([]*domain.DeletedEntity, error)
}

// Service orchestrates soft deletes, recoveries and ledger queries.
type Service struct {
	resolver backendResolver
	ledger   ledgerRepo
	log      *slog.Logger
	now      func() time.Time
}

// New creates a trash service.
func New(log *slog.Logger, resolver backendResolver, ledger ledgerRepo) *Service {
	return &Service{
		resolver: resolver,
		ledger:   ledger,
		log:      log.With("service", "trash"),
		now:      time.Now,
	}
}

// compensate removes a ledger row written by a soft delete whose origin
// removal failed. A failed compensation leaves a duplicate: the entity
// stays in its origin backend and in the trash, which an operator can
// purge by hand.
func (s *Service) compensate(ctx context.Context, id uuid.UUID) {
	if _, err := s.ledger.Delete(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "ledger compensation failed, duplicate row remains",
			slog.String("ledger_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}
