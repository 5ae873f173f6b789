// Package resolver locates the physical backend that owns an entity.
//
// Resolution walks a fixed fallback chain: the caller's organization hint,
// the canonical ownership registry, the caller's personal scope, and
// finally the shared administrative backend. "Not found" at any step is a
// normal answer that advances the chain; only connectivity failures are
// logged, and only a fully exhausted chain is an error.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/adapter/postgres"
	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

type bindingRepo interface {
	GetByKey(ctx context.Context, key domain.TenantKey) (*domain.TenantBinding, error)
	Create(ctx context.Context, b domain.TenantBinding) (*domain.TenantBinding, error)
}

type registryRepo interface {
	OwnerOrg(ctx context.Context, entityID string) (*uuid.UUID, error)
	HostedDocID(ctx context.Context, entityID string) (*string, error)
}

// Config holds resolver tuning derived from config.TenancyConfig.
type Config struct {
	UserDSNTemplate string
	StepTimeout     time.Duration
	TenantMaxConns  int32
}

// Resolver resolves entity references to backend handles and owns the
// connection cache.
type Resolver struct {
	cache    *Cache
	bindings bindingRepo
	registry registryRepo
	shared   backend.Handle
	cfg      Config
	log      *slog.Logger
}

// New creates a Resolver. The shared administrative handle is opened by
// the caller at startup and seeded into the cache.
func New(log *slog.Logger, cache *Cache, bindings bindingRepo, registry registryRepo, shared backend.Handle, cfg Config) *Resolver {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 5 * time.Second
	}
	cache.Put(domain.SharedAdminKey, shared)

	return &Resolver{
		cache:    cache,
		bindings: bindings,
		registry: registry,
		shared:   shared,
		cfg:      cfg,
		log:      log.With("service", "resolver"),
	}
}

// Resolve returns the backend handle owning the referenced entity.
// The only error conditions are an invalid reference and a fully
// exhausted chain (domain.ErrResolutionFailed); the final step's failure
// becomes the caller-visible cause.
func (r *Resolver) Resolve(ctx context.Context, ref domain.EntityRef) (backend.Handle, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	// Step 1: explicit organization hint.
	if ref.OrgID != nil {
		if h, err := r.forOrg(ctx, *ref.OrgID); err == nil {
			return h, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			r.warnStep(ctx, ref, "candidate_org", err)
		}
	}

	// Step 2: canonical ownership registry.
	if orgID, err := r.ownerOrg(ctx, ref.EntityID); err == nil && orgID != nil {
		if h, oerr := r.forOrg(ctx, *orgID); oerr == nil {
			return h, nil
		} else if !errors.Is(oerr, domain.ErrNotFound) {
			r.warnStep(ctx, ref, "registry_org", oerr)
		}
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.warnStep(ctx, ref, "registry_lookup", err)
	}

	// Step 3: personal scope, binding created lazily on first use.
	if ref.UserID != nil {
		if h, err := r.forUser(ctx, *ref.UserID); err == nil {
			return h, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			r.warnStep(ctx, ref, "candidate_user", err)
		}
	}

	// Step 4: shared administrative backend. Its failure is the chain's.
	stepCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
	defer cancel()

	if err := r.shared.Ping(stepCtx); err != nil {
		return nil, fmt.Errorf("resolve %s %s: shared backend: %v: %w",
			ref.EntityType, ref.EntityID, err, domain.ErrResolutionFailed)
	}
	return r.shared, nil
}

// ReportFailure invalidates the cached handle for the tenant when err is a
// connectivity or authentication failure, so the next resolution opens a
// fresh connection instead of reusing a broken one. Returns true when the
// handle was invalidated.
func (r *Resolver) ReportFailure(ctx context.Context, h backend.Handle, err error) bool {
	if h == nil || !backend.IsConnFailure(err) {
		return false
	}
	if h.Tenant() == domain.SharedAdminKey {
		// The shared handle is pool-backed and self-healing; never dropped.
		return false
	}

	r.cache.Invalidate(h.Tenant())
	r.log.WarnContext(ctx, "backend handle invalidated",
		slog.String("tenant", string(h.Tenant())),
		slog.String("kind", h.Kind().String()),
		slog.String("error", err.Error()),
	)
	return true
}

func (r *Resolver) forOrg(ctx context.Context, orgID uuid.UUID) (backend.Handle, error) {
	key := domain.OrgKey(orgID)

	return r.cache.Get(ctx, key, func(ctx context.Context) (backend.Handle, error) {
		stepCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
		defer cancel()

		b, err := r.bindings.GetByKey(stepCtx, key)
		if err != nil {
			return nil, err
		}
		return r.open(stepCtx, b)
	})
}

func (r *Resolver) forUser(ctx context.Context, userID uuid.UUID) (backend.Handle, error) {
	key := domain.UserKey(userID)

	return r.cache.Get(ctx, key, func(ctx context.Context) (backend.Handle, error) {
		stepCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
		defer cancel()

		b, err := r.bindings.GetByKey(stepCtx, key)
		if errors.Is(err, domain.ErrNotFound) {
			b, err = r.createUserBinding(stepCtx, key, userID)
		}
		if err != nil {
			return nil, err
		}

		h, err := r.open(stepCtx, b)
		if err != nil {
			return nil, err
		}

		// Personal databases are provisioned lazily, so the document schema
		// may not exist yet.
		if pg, ok := h.(*backend.Postgres); ok {
			if err := pg.EnsureSchema(stepCtx); err != nil {
				return nil, err
			}
		}
		return h, nil
	})
}

// createUserBinding establishes a personal-scope binding on first use.
// A concurrent creator winning the unique constraint is not an error —
// the winner's row is re-read and used.
func (r *Resolver) createUserBinding(ctx context.Context, key domain.TenantKey, userID uuid.UUID) (*domain.TenantBinding, error) {
	if r.cfg.UserDSNTemplate == "" {
		return nil, fmt.Errorf("personal backend for %s: no user DSN template configured: %w", key, domain.ErrNotFound)
	}

	b, err := r.bindings.Create(ctx, domain.TenantBinding{
		ID:        uuid.New(),
		TenantKey: key,
		Kind:      domain.BackendPerUser,
		DSN:       fmt.Sprintf(r.cfg.UserDSNTemplate, userID),
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return r.bindings.GetByKey(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	r.log.InfoContext(ctx, "personal tenant binding created",
		slog.String("tenant", string(key)),
	)
	return b, nil
}

// open constructs the handle variant selected by the binding's stored
// backend kind.
func (r *Resolver) open(ctx context.Context, b *domain.TenantBinding) (backend.Handle, error) {
	switch b.Kind {
	case domain.BackendOrgHosted:
		return backend.OpenDocument(b.TenantKey, b.DocumentPath)
	case domain.BackendSharedAdmin:
		return r.shared, nil
	default:
		pool, err := postgres.NewTenantPool(ctx, b.DSN, r.cfg.TenantMaxConns)
		if err != nil {
			return nil, err
		}
		return backend.NewPostgres(b.Kind, b.TenantKey, pool), nil
	}
}

func (r *Resolver) ownerOrg(ctx context.Context, entityID string) (*uuid.UUID, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
	defer cancel()

	return r.registry.OwnerOrg(stepCtx, entityID)
}

func (r *Resolver) warnStep(ctx context.Context, ref domain.EntityRef, step string, err error) {
	r.log.WarnContext(ctx, "resolution step failed, falling through",
		slog.String("entity_id", ref.EntityID),
		slog.String("entity_type", ref.EntityType.String()),
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}
