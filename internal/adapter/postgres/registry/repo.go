// Package registry implements the entity→organization registry using
// PostgreSQL. The registry is the system of record consulted by the
// resolver when a request carries no organization hint, and it holds the
// hosted-document id mapping for entities with two id schemes.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/velmark/taskrail-backend/internal/adapter/postgres"
	"github.com/velmark/taskrail-backend/internal/domain"
)

// Repo provides registry persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new registry repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const getSQL = `
SELECT entity_id, entity_type, org_id, hosted_doc_id, created_at, updated_at
FROM entity_registry
WHERE entity_id = $1`

// Get returns the registry entry for an entity.
// Returns domain.ErrNotFound if the entity was never registered.
func (r *Repo) Get(ctx context.Context, entityID string) (*domain.RegistryEntry, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	e, err := scanEntry(q.QueryRow(ctx, getSQL, entityID))
	if err != nil {
		return nil, postgres.MapError(err, "registry entry", entityID)
	}
	return e, nil
}

// OwnerOrg returns the id of the organization owning an entity, or nil if
// the entity is registered without an organization (personal scope).
// Returns domain.ErrNotFound when the entity is not registered at all.
func (r *Repo) OwnerOrg(ctx context.Context, entityID string) (*uuid.UUID, error) {
	e, err := r.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return e.OrgID, nil
}

// HostedDocID returns the entity's long-form id in its org-hosted document
// store, or nil when no mapping exists. Absence is a normal answer, not an
// error — only genuine query failures are returned.
func (r *Repo) HostedDocID(ctx context.Context, entityID string) (*string, error) {
	e, err := r.Get(ctx, entityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e.HostedDocID, nil
}

const upsertSQL = `
INSERT INTO entity_registry (entity_id, entity_type, org_id, hosted_doc_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (entity_id) DO UPDATE
SET entity_type = EXCLUDED.entity_type,
    org_id = EXCLUDED.org_id,
    hosted_doc_id = EXCLUDED.hosted_doc_id,
    updated_at = EXCLUDED.updated_at`

// Upsert registers an entity or refreshes its ownership record.
func (r *Repo) Upsert(ctx context.Context, e domain.RegistryEntry) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx, upsertSQL,
		e.EntityID, string(e.EntityType), e.OrgID, e.HostedDocID, time.Now().UTC())
	if err != nil {
		return postgres.MapError(err, "registry entry", e.EntityID)
	}
	return nil
}

// Delete removes an entity's registry row. Missing rows are not an error:
// deletion is called from cleanup paths that must be idempotent.
func (r *Repo) Delete(ctx context.Context, entityID string) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, `DELETE FROM entity_registry WHERE entity_id = $1`, entityID); err != nil {
		return postgres.MapError(err, "registry entry", entityID)
	}
	return nil
}

func scanEntry(row pgx.Row) (*domain.RegistryEntry, error) {
	var (
		e   domain.RegistryEntry
		typ string
	)
	err := row.Scan(&e.EntityID, &typ, &e.OrgID, &e.HostedDocID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.EntityType = domain.EntityType(typ)
	return &e, nil
}
