// Package tenancy manages where each tenant's data lives.
//
// Organizations start on the shared administrative backend and may move
// to a self-hosted document store. The move is a binding change plus a
// registry claim over the org's entities; both run inside one
// transaction on the administrative database so the resolver never sees
// a half-switched tenant.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

type bindingRepo interface {
	GetByKey(ctx context.Context, key domain.TenantKey) (*domain.TenantBinding, error)
	Create(ctx context.Context, b domain.TenantBinding) (*domain.TenantBinding, error)
	Reconfigure(ctx context.Context, b domain.TenantBinding) (*domain.TenantBinding, error)
}

type registryRepo interface {
	Upsert(ctx context.Context, e domain.RegistryEntry) error
	Delete(ctx context.Context, entityID string) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type handleCache interface {
	Invalidate(key domain.TenantKey)
}

// Service manages tenant bindings and the ownership registry.
type Service struct {
	bindings bindingRepo
	registry registryRepo
	tx       txManager
	cache    handleCache
	log      *slog.Logger
}

// New creates a tenancy service.
func New(log *slog.Logger, bindings bindingRepo, registry registryRepo, tx txManager, cache handleCache) *Service {
	return &Service{
		bindings: bindings,
		registry: registry,
		tx:       tx,
		cache:    cache,
		log:      log.With("service", "tenancy"),
	}
}

// EntityClaim registers one entity under an organization during a
// self-hosting switch.
type EntityClaim struct {
	EntityID    string
	EntityType  domain.EntityType
	HostedDocID *string
}

// EnableSelfHosting points an organization's binding at a self-hosted
// document store and claims the given entities in the registry, all in
// one transaction. The store is probed before anything is written.
func (s *Service) EnableSelfHosting(ctx context.Context, orgID uuid.UUID, documentPath string, claims []EntityClaim) (*domain.TenantBinding, error) {
	if documentPath == "" {
		return nil, domain.NewValidationError("document_path", "required")
	}
	for _, c := range claims {
		if c.EntityID == "" || !c.EntityType.IsValid() {
			return nil, domain.NewValidationError("claims", fmt.Sprintf("invalid claim for %q", c.EntityID))
		}
	}

	if err := probeDocumentStore(ctx, orgID, documentPath); err != nil {
		return nil, fmt.Errorf("probe document store at %s: %w", documentPath, err)
	}

	key := domain.OrgKey(orgID)
	want := domain.TenantBinding{
		ID:           uuid.New(),
		TenantKey:    key,
		Kind:         domain.BackendOrgHosted,
		DocumentPath: documentPath,
	}

	var bound *domain.TenantBinding
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.bindings.GetByKey(ctx, key)
		switch {
		case err == nil:
			want.ID = existing.ID
			bound, err = s.bindings.Reconfigure(ctx, want)
		case errors.Is(err, domain.ErrNotFound):
			bound, err = s.bindings.Create(ctx, want)
		}
		if err != nil {
			return err
		}

		for _, c := range claims {
			entry := domain.RegistryEntry{
				EntityID:    c.EntityID,
				EntityType:  c.EntityType,
				OrgID:       &orgID,
				HostedDocID: c.HostedDocID,
			}
			if err := s.registry.Upsert(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(key)
	s.log.InfoContext(ctx, "organization switched to self-hosted backend",
		slog.String("org_id", orgID.String()),
		slog.Int("claims", len(claims)),
	)
	return bound, nil
}

// DisableSelfHosting points an organization back at the shared backend.
// Registry rows keep their org ownership; only the binding changes.
func (s *Service) DisableSelfHosting(ctx context.Context, orgID uuid.UUID) (*domain.TenantBinding, error) {
	key := domain.OrgKey(orgID)

	var bound *domain.TenantBinding
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.bindings.GetByKey(ctx, key)
		if err != nil {
			return err
		}
		bound, err = s.bindings.Reconfigure(ctx, domain.TenantBinding{
			ID:        existing.ID,
			TenantKey: key,
			Kind:      domain.BackendSharedAdmin,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(key)
	s.log.InfoContext(ctx, "organization switched back to shared backend",
		slog.String("org_id", orgID.String()),
	)
	return bound, nil
}

// RegisterEntity records or refreshes an entity's ownership.
func (s *Service) RegisterEntity(ctx context.Context, e domain.RegistryEntry) error {
	if e.EntityID == "" {
		return domain.NewValidationError("entity_id", "required")
	}
	if !e.EntityType.IsValid() {
		return domain.NewValidationError("entity_type", fmt.Sprintf("unknown type %q", string(e.EntityType)))
	}
	return s.registry.Upsert(ctx, e)
}

// DeregisterEntity drops an entity's ownership row. Idempotent.
func (s *Service) DeregisterEntity(ctx context.Context, entityID string) error {
	return s.registry.Delete(ctx, entityID)
}

// probeDocumentStore verifies the path holds an openable store before any
// binding is written. The probe handle is closed immediately; the
// resolver opens its own on first use.
func probeDocumentStore(ctx context.Context, orgID uuid.UUID, path string) error {
	h, err := backend.OpenDocument(domain.OrgKey(orgID), path)
	if err != nil {
		return err
	}
	defer h.Close()
	return h.Ping(ctx)
}
