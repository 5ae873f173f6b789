package resolver

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
)

var _ bindingRepo = &bindingRepoMock{}

type bindingRepoMock struct {
	GetByKeyFunc func(ctx context.Context, key domain.TenantKey) (*domain.TenantBinding, error)
	CreateFunc   func(ctx context.Context, b domain.TenantBinding) (*domain.TenantBinding, error)

	mu          sync.Mutex
	getCalls    []domain.TenantKey
	createCalls []domain.TenantBinding
}

func (m *bindingRepoMock) GetByKey(ctx context.Context, key domain.TenantKey) (*domain.TenantBinding, error) {
	m.mu.Lock()
	m.getCalls = append(m.getCalls, key)
	m.mu.Unlock()
	return m.GetByKeyFunc(ctx, key)
}

func (m *bindingRepoMock) Create(ctx context.Context, b domain.TenantBinding) (*domain.TenantBinding, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, b)
	m.mu.Unlock()
	return m.CreateFunc(ctx, b)
}

func (m *bindingRepoMock) GetByKeyCalls() []domain.TenantKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TenantKey(nil), m.getCalls...)
}

func (m *bindingRepoMock) CreateCalls() []domain.TenantBinding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TenantBinding(nil), m.createCalls...)
}

var _ registryRepo = &registryRepoMock{}

type registryRepoMock struct {
	OwnerOrgFunc    func(ctx context.Context, entityID string) (*uuid.UUID, error)
	HostedDocIDFunc func(ctx context.Context, entityID string) (*string, error)

	mu         sync.Mutex
	ownerCalls []string
}

func (m *registryRepoMock) OwnerOrg(ctx context.Context, entityID string) (*uuid.UUID, error) {
	m.mu.Lock()
	m.ownerCalls = append(m.ownerCalls, entityID)
	m.mu.Unlock()
	if m.OwnerOrgFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.OwnerOrgFunc(ctx, entityID)
}

func (m *registryRepoMock) HostedDocID(ctx context.Context, entityID string) (*string, error) {
	if m.HostedDocIDFunc == nil {
		return nil, nil
	}
	return m.HostedDocIDFunc(ctx, entityID)
}
