// Package backend defines the physical storage handle resolved per tenant.
//
// A Handle has exactly two variants: *Postgres for managed SQL backends
// (the shared administrative database and per-user databases) and
// *Document for self-hosted, org-local document stores. The variant is
// selected by the TenantBinding's stored BackendKind when the handle is
// opened — callers switch on the concrete type and never probe a handle
// for capabilities.
package backend

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/velmark/taskrail-backend/internal/domain"
)

// Store is the document API shared by both backend variants.
type Store interface {
	// Get returns a document or domain.ErrNotFound.
	Get(ctx context.Context, collection, id string) (*domain.Document, error)
	// Insert adds a document; domain.ErrAlreadyExists if the id is taken.
	Insert(ctx context.Context, doc *domain.Document) error
	// Delete removes a document; domain.ErrNotFound if absent.
	Delete(ctx context.Context, collection, id string) error
	// SetFields merges fields into the document body.
	SetFields(ctx context.Context, collection, id string, fields map[string]any) error
	// SetParent re-scopes a document under a new parent.
	SetParent(ctx context.Context, collection, id, parentID string, parentType domain.EntityType) error
	// FindByField returns documents whose body field equals value.
	FindByField(ctx context.Context, collection, field, value string) ([]*domain.Document, error)
}

// Handle is the resolved physical backend owning a tenant's data.
type Handle interface {
	Kind() domain.BackendKind
	Tenant() domain.TenantKey
	Store() Store
	Ping(ctx context.Context) error
	// Close releases the underlying connection. Only the connection cache
	// calls this, and only at process shutdown — a cached handle may be
	// referenced by in-flight requests at any other time.
	Close() error

	sealed()
}

// IsConnFailure reports whether err is a connectivity or authentication
// failure rather than a data-level error. The resolver invalidates cached
// handles on these so a broken connection is recreated instead of reused.
func IsConnFailure(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 — connection exception, class 28 — invalid authorization.
		code := pgErr.Code
		if len(code) >= 2 && (code[:2] == "08" || code[:2] == "28") {
			return true
		}
	}

	return pgconn.Timeout(err)
}
