package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/domain"
)

func seedProject(t *testing.T, h backend.Handle, id string) {
	t.Helper()
	err := h.Store().Insert(context.Background(), &domain.Document{
		ID:         id,
		Collection: "projects",
		Data:       map[string]any{"name": "roadmap"},
	})
	if err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
}

func projectRef(id string) domain.EntityRef {
	return domain.EntityRef{EntityID: id, EntityType: domain.EntityTypeProject}
}

func TestLookupDocument_MappedIDFirst(t *testing.T) {
	t.Parallel()

	h := openDocHandle(t, domain.TenantKey("org:a"))
	seedProject(t, h, "doc-long-form-1")
	seedProject(t, h, "P100")

	mapped := "doc-long-form-1"
	registry := &registryRepoMock{
		HostedDocIDFunc: func(ctx context.Context, entityID string) (*string, error) {
			return &mapped, nil
		},
	}
	r, _ := newTestResolver(t, &bindingRepoMock{}, registry)

	// Both ids match a document; the mapped id wins deterministically.
	doc, err := r.LookupDocument(context.Background(), h, projectRef("P100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "doc-long-form-1" {
		t.Errorf("doc id: got %s, want doc-long-form-1", doc.ID)
	}
}

func TestLookupDocument_FallsBackToOriginalID(t *testing.T) {
	t.Parallel()

	h := openDocHandle(t, domain.TenantKey("org:a"))
	seedProject(t, h, "P100")

	mapped := "doc-gone"
	registry := &registryRepoMock{
		HostedDocIDFunc: func(ctx context.Context, entityID string) (*string, error) {
			return &mapped, nil
		},
	}
	r, _ := newTestResolver(t, &bindingRepoMock{}, registry)

	// The mapped id drifted; the original id still resolves.
	doc, err := r.LookupDocument(context.Background(), h, projectRef("P100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "P100" {
		t.Errorf("doc id: got %s, want P100", doc.ID)
	}
}

func TestLookupDocument_NoMapping(t *testing.T) {
	t.Parallel()

	h := openDocHandle(t, domain.TenantKey("org:a"))
	seedProject(t, h, "P100")

	r, _ := newTestResolver(t, &bindingRepoMock{}, &registryRepoMock{})

	doc, err := r.LookupDocument(context.Background(), h, projectRef("P100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "P100" {
		t.Errorf("doc id: got %s, want P100", doc.ID)
	}
}

func TestLookupDocument_MappingLookupFailureDegrades(t *testing.T) {
	t.Parallel()

	h := openDocHandle(t, domain.TenantKey("org:a"))
	seedProject(t, h, "P100")

	registry := &registryRepoMock{
		HostedDocIDFunc: func(ctx context.Context, entityID string) (*string, error) {
			return nil, errors.New("registry unavailable")
		},
	}
	r, _ := newTestResolver(t, &bindingRepoMock{}, registry)

	doc, err := r.LookupDocument(context.Background(), h, projectRef("P100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "P100" {
		t.Errorf("doc id: got %s, want P100", doc.ID)
	}
}

func TestLookupDocument_NotFound(t *testing.T) {
	t.Parallel()

	h := openDocHandle(t, domain.TenantKey("org:a"))
	r, _ := newTestResolver(t, &bindingRepoMock{}, &registryRepoMock{})

	_, err := r.LookupDocument(context.Background(), h, projectRef("P404"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
