package trash

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

var _ backendResolver = &resolverMock{}

type resolverMock struct {
	ResolveFunc        func(ctx context.Context, ref domain.EntityRef) (backend.Handle, error)
	LookupDocumentFunc func(ctx context.Context, h backend.Handle, ref domain.EntityRef) (*domain.Document, error)
	ReportFailureFunc  func(ctx context.Context, h backend.Handle, err error) bool

	mu          sync.Mutex
	reportCalls []error
}

func (m *resolverMock) Resolve(ctx context.Context, ref domain.EntityRef) (backend.Handle, error) {
	return m.ResolveFunc(ctx, ref)
}

func (m *resolverMock) LookupDocument(ctx context.Context, h backend.Handle, ref domain.EntityRef) (*domain.Document, error) {
	if m.LookupDocumentFunc == nil {
		return h.Store().Get(ctx, ref.EntityType.Collection(), ref.EntityID)
	}
	return m.LookupDocumentFunc(ctx, h, ref)
}

func (m *resolverMock) ReportFailure(ctx context.Context, h backend.Handle, err error) bool {
	m.mu.Lock()
	m.reportCalls = append(m.reportCalls, err)
	m.mu.Unlock()
	if m.ReportFailureFunc == nil {
		return false
	}
	return m.ReportFailureFunc(ctx, h, err)
}

func (m *resolverMock) ReportFailureCalls() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.reportCalls...)
}

var _ ledgerRepo = &ledgerMock{}

type ledgerMock struct {
	InsertFunc  func(ctx context.Context, rec *domain.DeletedEntity) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error)
	DeleteFunc  func(ctx context.Context, id uuid.UUID) (bool, error)
	ListFunc    func(ctx context.Context, filter domain.TrashFilter) ([]*domain.DeletedEntity, error)

	mu          sync.Mutex
	insertCalls []*domain.DeletedEntity
	deleteCalls []uuid.UUID
}

func (m *ledgerMock) Insert(ctx context.Context, rec *domain.DeletedEntity) error {
	m.mu.Lock()
	m.insertCalls = append(m.insertCalls, rec)
	m.mu.Unlock()
	if m.InsertFunc == nil {
		return nil
	}
	return m.InsertFunc(ctx, rec)
}

func (m *ledgerMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error) {
	if m.GetByIDFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *ledgerMock) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	m.deleteCalls = append(m.deleteCalls, id)
	m.mu.Unlock()
	if m.DeleteFunc == nil {
		return true, nil
	}
	return m.DeleteFunc(ctx, id)
}

func (m *ledgerMock) List(ctx context.Context, filter domain.TrashFilter) ([]*domain.DeletedEntity, error) {
	if m.ListFunc == nil {
		return []*domain.DeletedEntity{}, nil
	}
	return m.ListFunc(ctx, filter)
}

func (m *ledgerMock) InsertCalls() []*domain.DeletedEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.DeletedEntity(nil), m.insertCalls...)
}

func (m *ledgerMock) DeleteCalls() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.deleteCalls...)
}

// memLedger is an in-memory ledgerRepo for round-trip tests.
type memLedger struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*domain.DeletedEntity
}

var _ ledgerRepo = &memLedger{}

func newMemLedger() *memLedger {
	return &memLedger{recs: make(map[uuid.UUID]*domain.DeletedEntity)}
}

func (l *memLedger) Insert(ctx context.Context, rec *domain.DeletedEntity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.recs[rec.ID]; ok {
		return fmt.Errorf("deleted entity %s: %w", rec.ID, domain.ErrAlreadyExists)
	}
	l.recs[rec.ID] = rec
	return nil
}

func (l *memLedger) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.recs[id]
	if !ok {
		return nil, fmt.Errorf("deleted entity %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

func (l *memLedger) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.recs[id]; !ok {
		return false, nil
	}
	delete(l.recs, id)
	return true, nil
}

func (l *memLedger) List(ctx context.Context, filter domain.TrashFilter) ([]*domain.DeletedEntity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs := make([]*domain.DeletedEntity, 0, len(l.recs))
	for _, rec := range l.recs {
		if filter.Type != nil && rec.EntityType != *filter.Type {
			continue
		}
		if filter.ParentID != nil && (rec.ParentID == nil || *rec.ParentID != *filter.ParentID) {
			continue
		}
		if filter.ParentType != nil && (rec.ParentType == nil || *rec.ParentType != *filter.ParentType) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].DeletedAt.After(recs[j].DeletedAt)
	})
	return recs, nil
}

func (l *memLedger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recs)
}
