package resolver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

// LookupDocument fetches the referenced entity's document from an already
// resolved backend.
//
// Entities migrated into org-hosted stores carry two ids: the legacy
// short-form id the product still passes around, and the long-form id the
// document store assigned. The registry keeps the mapping; lookups try the
// mapped id first and retry with the original id when the mapped id yields
// nothing. The order is fixed and the two reads are never issued in
// parallel, so a record matching both ids always resolves the same way.
func (r *Resolver) LookupDocument(ctx context.Context, h backend.Handle, ref domain.EntityRef) (*domain.Document, error) {
	collection := ref.EntityType.Collection()

	mapped, err := r.registry.HostedDocID(ctx, ref.EntityID)
	if err != nil {
		// Mapping lookup trouble degrades to a direct read, same as having
		// no mapping at all.
		r.log.WarnContext(ctx, "hosted id mapping unavailable",
			slog.String("entity_id", ref.EntityID),
			slog.String("error", err.Error()),
		)
		mapped = nil
	}

	if mapped != nil && *mapped != ref.EntityID {
		doc, gerr := h.Store().Get(ctx, collection, *mapped)
		if gerr == nil {
			return doc, nil
		}
		if !errors.Is(gerr, domain.ErrNotFound) {
			return nil, gerr
		}
		// Mapped id drifted out from under the registry; fall back to the
		// original id.
	}

	return h.Store().Get(ctx, collection, ref.EntityID)
}
