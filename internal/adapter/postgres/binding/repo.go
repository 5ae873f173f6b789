// Package binding implements the TenantBinding repository using PostgreSQL.
// Bindings live in the administrative database and are read on every
// resolution, so the queries stay primary-key simple.
package binding

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/velmark/taskrail-backend/internal/adapter/postgres"
	"github.com/velmark/taskrail-backend/internal/domain"
)

// Repo provides tenant binding persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new binding repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const getByKeySQL = `
SELECT id, tenant_key, kind, dsn, database_name, document_path, created_at, updated_at
FROM tenant_bindings
WHERE tenant_key = $1`

// GetByKey returns the binding for a tenant key.
// Returns domain.ErrNotFound if the tenant has no binding yet.
func (r *Repo) GetByKey(ctx context.Context, key domain.TenantKey) (*domain.TenantBinding, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	b, err := scanBinding(q.QueryRow(ctx, getByKeySQL, string(key)))
	if err != nil {
		return nil, postgres.MapError(err, "tenant binding", string(key))
	}
	return b, nil
}

const createSQL = `
INSERT INTO tenant_bindings (id, tenant_key, kind, dsn, database_name, document_path, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING id, tenant_key, kind, dsn, database_name, document_path, created_at, updated_at`

// Create inserts a new binding. Returns domain.ErrAlreadyExists if the
// tenant key is already bound — concurrent lazy creation races resolve by
// re-reading the winner's row.
func (r *Repo) Create(ctx context.Context, b domain.TenantBinding) (*domain.TenantBinding, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC()
	created, err := scanBinding(q.QueryRow(ctx, createSQL,
		b.ID, string(b.TenantKey), string(b.Kind), b.DSN, b.DatabaseName, b.DocumentPath, now))
	if err != nil {
		return nil, postgres.MapError(err, "tenant binding", string(b.TenantKey))
	}
	return created, nil
}

const reconfigureSQL = `
UPDATE tenant_bindings
SET kind = $2, dsn = $3, database_name = $4, document_path = $5, updated_at = $6
WHERE tenant_key = $1
RETURNING id, tenant_key, kind, dsn, database_name, document_path, created_at, updated_at`

// Reconfigure replaces a binding's backend parameters. This is the only
// mutation allowed on an established binding.
func (r *Repo) Reconfigure(ctx context.Context, b domain.TenantBinding) (*domain.TenantBinding, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	updated, err := scanBinding(q.QueryRow(ctx, reconfigureSQL,
		string(b.TenantKey), string(b.Kind), b.DSN, b.DatabaseName, b.DocumentPath, time.Now().UTC()))
	if err != nil {
		return nil, postgres.MapError(err, "tenant binding", string(b.TenantKey))
	}
	return updated, nil
}

func scanBinding(row pgx.Row) (*domain.TenantBinding, error) {
	var (
		b    domain.TenantBinding
		key  string
		kind string
	)
	err := row.Scan(&b.ID, &key, &kind, &b.DSN, &b.DatabaseName, &b.DocumentPath, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.TenantKey = domain.TenantKey(key)
	b.Kind = domain.BackendKind(kind)
	if !b.Kind.IsValid() {
		return nil, fmt.Errorf("tenant binding %s: stored kind %q is unknown", key, kind)
	}
	return &b, nil
}
