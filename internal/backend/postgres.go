package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velmark/taskrail-backend/internal/domain"
)

// Postgres is the managed SQL backend variant. It serves both the shared
// administrative database and lazily provisioned per-user databases; the
// two are distinguished only by Kind.
type Postgres struct {
	kind   domain.BackendKind
	tenant domain.TenantKey
	pool   *pgxpool.Pool
	store  *pgStore
}

// NewPostgres wraps a connection pool as a backend handle.
func NewPostgres(kind domain.BackendKind, tenant domain.TenantKey, pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		kind:   kind,
		tenant: tenant,
		pool:   pool,
		store:  &pgStore{pool: pool},
	}
}

func (p *Postgres) Kind() domain.BackendKind  { return p.kind }
func (p *Postgres) Tenant() domain.TenantKey  { return p.tenant }
func (p *Postgres) Store() Store              { return p.store }
func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }
func (p *Postgres) Close() error              { p.pool.Close(); return nil }
func (p *Postgres) sealed()                   {}

// Pool exposes the underlying pool for components that need SQL access
// beyond the document API (ledger and registry repositories on the shared
// administrative backend).
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

const ensureDocumentsSQL = `
CREATE TABLE IF NOT EXISTS documents (
    collection  TEXT        NOT NULL,
    id          TEXT        NOT NULL,
    parent_id   TEXT,
    parent_type TEXT,
    data        JSONB       NOT NULL DEFAULT '{}'::jsonb,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents (collection, parent_id);`

// EnsureSchema creates the documents table if it does not exist yet.
// Per-user databases are provisioned lazily on first resolution, so the
// schema cannot be assumed to be migrated out-of-band.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, ensureDocumentsSQL); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

// pgStore implements Store on a documents table.
type pgStore struct {
	pool *pgxpool.Pool
}

const getDocumentSQL = `
SELECT id, collection, parent_id, parent_type, data
FROM documents
WHERE collection = $1 AND id = $2`

func (s *pgStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	row := s.pool.QueryRow(ctx, getDocumentSQL, collection, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

const insertDocumentSQL = `
INSERT INTO documents (collection, id, parent_id, parent_type, data)
VALUES ($1, $2, $3, $4, $5)`

func (s *pgStore) Insert(ctx context.Context, doc *domain.Document) error {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("marshal document %s/%s: %w", doc.Collection, doc.ID, err)
	}

	var parentType *string
	if doc.ParentType != nil {
		t := string(*doc.ParentType)
		parentType = &t
	}

	_, err = s.pool.Exec(ctx, insertDocumentSQL, doc.Collection, doc.ID, doc.ParentID, parentType, data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("document %s/%s: %w", doc.Collection, doc.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert document %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

func (s *pgStore) SetFields(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal patch %s/%s: %w", collection, id, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2`,
		collection, id, patch)
	if err != nil {
		return fmt.Errorf("set fields %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

func (s *pgStore) SetParent(ctx context.Context, collection, id, parentID string, parentType domain.EntityType) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET parent_id = $3, parent_type = $4, updated_at = now() WHERE collection = $1 AND id = $2`,
		collection, id, parentID, string(parentType))
	if err != nil {
		return fmt.Errorf("set parent %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

const findByFieldSQL = `
SELECT id, collection, parent_id, parent_type, data
FROM documents
WHERE collection = $1 AND data->>$2 = $3
ORDER BY id`

func (s *pgStore) FindByField(ctx context.Context, collection, field, value string) ([]*domain.Document, error) {
	rows, err := s.pool.Query(ctx, findByFieldSQL, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("find documents %s by %s: %w", collection, field, err)
	}
	defer rows.Close()

	docs := make([]*domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("find documents %s by %s: %w", collection, field, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find documents %s by %s: %w", collection, field, err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		doc        domain.Document
		parentType *string
		data       []byte
	)
	if err := row.Scan(&doc.ID, &doc.Collection, &doc.ParentID, &parentType, &data); err != nil {
		return nil, err
	}
	if parentType != nil {
		t := domain.EntityType(*parentType)
		doc.ParentType = &t
	}
	if err := json.Unmarshal(data, &doc.Data); err != nil {
		return nil, fmt.Errorf("unmarshal document data: %w", err)
	}
	return &doc, nil
}
