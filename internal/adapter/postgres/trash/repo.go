// Package trash implements the soft-delete ledger repository using
// PostgreSQL. Ledger rows are immutable; they leave the table through a
// conditional delete only, so a sweep and a manual recovery racing on the
// same row settle on exactly one winner.
package trash

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/velmark/taskrail-backend/internal/adapter/postgres"
	"github.com/velmark/taskrail-backend/internal/domain"
)

// Repo provides soft-delete ledger persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new trash repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const ledgerColumns = `id, entity_type, entity_id, parent_id, parent_type, data,
deleted_at, deleted_by, deleted_by_email, recovery_deadline`

const insertSQL = `
INSERT INTO deleted_entities (id, entity_type, entity_id, parent_id, parent_type, data,
                              deleted_at, deleted_by, deleted_by_email, recovery_deadline)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Insert appends a ledger record. The write is never retried here: a
// failed insert must abort the surrounding soft delete so the origin
// document survives.
func (r *Repo) Insert(ctx context.Context, rec *domain.DeletedEntity) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", rec.EntityID, err)
	}

	var parentType *string
	if rec.ParentType != nil {
		t := string(*rec.ParentType)
		parentType = &t
	}

	_, err = q.Exec(ctx, insertSQL,
		rec.ID, string(rec.EntityType), rec.EntityID, rec.ParentID, parentType, data,
		rec.DeletedAt, rec.DeletedBy, rec.DeletedByEmail, rec.RecoveryDeadline)
	if err != nil {
		return postgres.MapError(err, "deleted entity", rec.ID.String())
	}
	return nil
}

// GetByID returns a ledger record.
// Returns domain.ErrNotFound if it was already recovered or purged.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rec, err := scanRecord(q.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM deleted_entities WHERE id = $1`, ledgerColumns), id))
	if err != nil {
		return nil, postgres.MapError(err, "deleted entity", id.String())
	}
	return rec, nil
}

// Delete removes a ledger record if it is still present. The boolean
// reports whether this caller won the row; false means a concurrent
// recovery or sweep got there first.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM deleted_entities WHERE id = $1`, id)
	if err != nil {
		return false, postgres.MapError(err, "deleted entity", id.String())
	}
	return tag.RowsAffected() > 0, nil
}

// List returns ledger records matching the filter, newest deletions first.
// Returns an empty slice (not nil) when nothing matches.
func (r *Repo) List(ctx context.Context, filter domain.TrashFilter) ([]*domain.DeletedEntity, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	builder := psql.
		Select("id", "entity_type", "entity_id", "parent_id", "parent_type", "data",
			"deleted_at", "deleted_by", "deleted_by_email", "recovery_deadline").
		From("deleted_entities").
		OrderBy("deleted_at DESC")

	if filter.Type != nil {
		builder = builder.Where(sq.Eq{"entity_type": string(*filter.Type)})
	}
	if filter.ParentID != nil {
		builder = builder.Where(sq.Eq{"parent_id": *filter.ParentID})
	}
	if filter.ParentType != nil {
		builder = builder.Where(sq.Eq{"parent_type": string(*filter.ParentType)})
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build trash list query: %w", err)
	}

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list deleted entities: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListExpired returns up to limit records whose recovery deadline has
// passed, oldest first, for the sweeper to purge.
func (r *Repo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.DeletedEntity, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM deleted_entities WHERE recovery_deadline < $1 ORDER BY recovery_deadline LIMIT $2`, ledgerColumns),
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired entities: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*domain.DeletedEntity, error) {
	recs := make([]*domain.DeletedEntity, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deleted entity: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted entities: %w", err)
	}
	return recs, nil
}

func scanRecord(row pgx.Row) (*domain.DeletedEntity, error) {
	var (
		rec        domain.DeletedEntity
		entityType string
		parentType *string
		data       []byte
	)
	err := row.Scan(&rec.ID, &entityType, &rec.EntityID, &rec.ParentID, &parentType, &data,
		&rec.DeletedAt, &rec.DeletedBy, &rec.DeletedByEmail, &rec.RecoveryDeadline)
	if err != nil {
		return nil, err
	}

	rec.EntityType = domain.EntityType(entityType)
	if parentType != nil {
		t := domain.EntityType(*parentType)
		rec.ParentType = &t
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &rec, nil
}
