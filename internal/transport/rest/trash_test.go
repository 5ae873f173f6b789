package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
	trashsvc "github.com/velmark/taskrail-backend/internal/service/trash"
)

type trashServiceMock struct {
	SoftDeleteFunc             func(ctx context.Context, ref domain.EntityRef) (*domain.DeletedEntity, error)
	RecoverFunc                func(ctx context.Context, ledgerID uuid.UUID) (*domain.DeletedEntity, error)
	PermanentlyDeleteFunc      func(ctx context.Context, ledgerID uuid.UUID) error
	BatchRecoverFunc           func(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error)
	BatchPermanentlyDeleteFunc func(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error)
	ListFunc                   func(ctx context.Context, filter domain.TrashFilter) ([]trashsvc.ListItem, error)
	SummarizeFunc              func(ctx context.Context, filter domain.TrashFilter) (*domain.TrashSummary, error)
}

func (m *trashServiceMock) SoftDelete(ctx context.Context, ref domain.EntityRef) (*domain.DeletedEntity, error) {
	return m.SoftDeleteFunc(ctx, ref)
}

func (m *trashServiceMock) Recover(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error) {
	return m.RecoverFunc(ctx, id)
}

func (m *trashServiceMock) PermanentlyDelete(ctx context.Context, id uuid.UUID) error {
	return m.PermanentlyDeleteFunc(ctx, id)
}

func (m *trashServiceMock) BatchRecover(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error) {
	return m.BatchRecoverFunc(ctx, ids)
}

func (m *trashServiceMock) BatchPermanentlyDelete(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error) {
	return m.BatchPermanentlyDeleteFunc(ctx, ids)
}

func (m *trashServiceMock) List(ctx context.Context, filter domain.TrashFilter) ([]trashsvc.ListItem, error) {
	return m.ListFunc(ctx, filter)
}

func (m *trashServiceMock) Summarize(ctx context.Context, filter domain.TrashFilter) (*domain.TrashSummary, error) {
	return m.SummarizeFunc(ctx, filter)
}

func testRecord() *domain.DeletedEntity {
	return &domain.DeletedEntity{
		ID:               uuid.New(),
		EntityType:       domain.EntityTypeTask,
		EntityID:         "t-1",
		Data:             map[string]any{"title": "x"},
		DeletedAt:        time.Now().UTC(),
		DeletedBy:        uuid.New(),
		RecoveryDeadline: time.Now().UTC().Add(domain.RecoveryWindow),
	}
}

func serveTrash(t *testing.T, svc trashService, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := NewTrashHandler(svc, slog.Default())
	mux := NewRouter(Handlers{
		Health:  NewHealthHandler(&dbPingerMock{}, "test"),
		Trash:   h,
		Bulk:    NewBulkHandler(&bulkServiceMock{}, slog.Default()),
		Tenancy: NewTenancyHandler(&tenancyServiceMock{}, slog.Default()),
	})

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSoftDelete_Endpoint(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	rec := testRecord()
	svc := &trashServiceMock{
		SoftDeleteFunc: func(ctx context.Context, ref domain.EntityRef) (*domain.DeletedEntity, error) {
			if ref.EntityID != "t-1" || ref.EntityType != domain.EntityTypeTask {
				t.Errorf("ref: got %s %s", ref.EntityType, ref.EntityID)
			}
			if ref.OrgID == nil || *ref.OrgID != orgID {
				t.Error("expected org hint parsed from query")
			}
			return rec, nil
		},
	}

	res := serveTrash(t, svc, http.MethodDelete,
		fmt.Sprintf("/api/v1/entities/TASK/t-1?org_id=%s", orgID), "")

	if res.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body %s", res.Code, res.Body.String())
	}

	var resp trashItemResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EntityID != "t-1" || resp.Status != string(domain.TrashStatusRecoverable) {
		t.Errorf("response: %+v", resp)
	}
}

func TestRecover_Endpoint_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing row", fmt.Errorf("deleted entity: %w", domain.ErrNotFound), http.StatusNotFound},
		{"window closed", fmt.Errorf("recover: %w", domain.ErrExpired), http.StatusGone},
		{"chain exhausted", fmt.Errorf("resolve: %w", domain.ErrResolutionFailed), http.StatusServiceUnavailable},
		{"backend broke", errors.New("write failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &trashServiceMock{
				RecoverFunc: func(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error) {
					return nil, tc.err
				},
			}

			res := serveTrash(t, svc, http.MethodPost,
				"/api/v1/trash/"+uuid.NewString()+"/recover", "")
			if res.Code != tc.want {
				t.Fatalf("status: got %d, want %d", res.Code, tc.want)
			}

			var resp errorResponse
			if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error == "" {
				t.Error("expected an error message in the body")
			}
		})
	}
}

func TestRecover_Endpoint_BadID(t *testing.T) {
	t.Parallel()

	svc := &trashServiceMock{
		RecoverFunc: func(ctx context.Context, id uuid.UUID) (*domain.DeletedEntity, error) {
			t.Error("service must not be called for a malformed id")
			return nil, nil
		},
	}

	res := serveTrash(t, svc, http.MethodPost, "/api/v1/trash/not-a-uuid/recover", "")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", res.Code)
	}
}

func TestPurge_Endpoint(t *testing.T) {
	t.Parallel()

	svc := &trashServiceMock{
		PermanentlyDeleteFunc: func(ctx context.Context, id uuid.UUID) error {
			return nil
		},
	}

	res := serveTrash(t, svc, http.MethodDelete, "/api/v1/trash/"+uuid.NewString(), "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", res.Code)
	}
}

func TestList_Endpoint_Filter(t *testing.T) {
	t.Parallel()

	svc := &trashServiceMock{
		ListFunc: func(ctx context.Context, filter domain.TrashFilter) ([]trashsvc.ListItem, error) {
			if filter.Type == nil || *filter.Type != domain.EntityTypeTask {
				t.Error("expected type filter parsed")
			}
			if filter.ParentID == nil || *filter.ParentID != "P1" {
				t.Error("expected parent_id filter parsed")
			}
			return []trashsvc.ListItem{
				{Record: testRecord(), Status: domain.TrashStatusRecoverable},
			}, nil
		},
	}

	res := serveTrash(t, svc, http.MethodGet, "/api/v1/trash?type=TASK&parent_id=P1", "")
	if res.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.Code)
	}

	var resp struct {
		Items []trashItemResponse `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Status != "RECOVERABLE" {
		t.Errorf("items: %+v", resp.Items)
	}
}

func TestList_Endpoint_BadFilter(t *testing.T) {
	t.Parallel()

	svc := &trashServiceMock{
		ListFunc: func(ctx context.Context, filter domain.TrashFilter) ([]trashsvc.ListItem, error) {
			t.Error("service must not be called for a bad filter")
			return nil, nil
		},
	}

	res := serveTrash(t, svc, http.MethodGet, "/api/v1/trash?type=GADGET", "")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", res.Code)
	}
}

func TestBatchRecover_Endpoint(t *testing.T) {
	t.Parallel()

	ids := []string{uuid.NewString(), uuid.NewString()}
	svc := &trashServiceMock{
		BatchRecoverFunc: func(ctx context.Context, got []uuid.UUID) (*domain.BulkSummary, error) {
			if len(got) != 2 {
				t.Errorf("ids: got %d, want 2", len(got))
			}
			sum := &domain.BulkSummary{}
			sum.Add(got[0].String(), nil)
			sum.Add(got[1].String(), domain.ErrNotFound)
			return sum, nil
		},
	}

	body := fmt.Sprintf(`{"ids":[%q,%q]}`, ids[0], ids[1])
	res := serveTrash(t, svc, http.MethodPost, "/api/v1/trash/batch-recover", body)
	if res.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.Code)
	}

	var sum domain.BulkSummary
	if err := json.NewDecoder(res.Body).Decode(&sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Total != 2 || sum.Succeeded != 1 || sum.Failed != 1 {
		t.Errorf("summary: %+v", sum)
	}
}

func TestBatchRecover_Endpoint_Oversized(t *testing.T) {
	t.Parallel()

	svc := &trashServiceMock{
		BatchRecoverFunc: func(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error) {
			return nil, fmt.Errorf("batch too large: %w", domain.ErrTooManyItems)
		},
	}

	body := fmt.Sprintf(`{"ids":[%q]}`, uuid.NewString())
	res := serveTrash(t, svc, http.MethodPost, "/api/v1/trash/batch-recover", body)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want 413", res.Code)
	}
}

func TestSummary_Endpoint(t *testing.T) {
	t.Parallel()

	svc := &trashServiceMock{
		SummarizeFunc: func(ctx context.Context, filter domain.TrashFilter) (*domain.TrashSummary, error) {
			return &domain.TrashSummary{
				Total:                 3,
				ExpiringWithin24h:     2,
				ExpiredPendingCleanup: 1,
				ByType: map[domain.EntityType]int{
					domain.EntityTypeTask:    2,
					domain.EntityTypeProject: 1,
				},
			}, nil
		},
	}

	res := serveTrash(t, svc, http.MethodGet, "/api/v1/trash/summary", "")
	if res.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.Code)
	}

	var resp struct {
		Total   int            `json:"total"`
		Expired int            `json:"expired_pending_cleanup"`
		ByType  map[string]int `json:"by_type"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || resp.Expired != 1 || resp.ByType["TASK"] != 2 {
		t.Errorf("response: %+v", resp)
	}
}
