package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
	trashsvc "github.com/velmark/taskrail-backend/internal/service/trash"
)

type trashService interface {
	SoftDelete(ctx context.Context, ref domain.EntityRef) (*domain.DeletedEntity, error)
	Recover(ctx context.Context, ledgerID uuid.UUID) (*domain.DeletedEntity, error)
	PermanentlyDelete(ctx context.Context, ledgerID uuid.UUID) error
	BatchRecover(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error)
	BatchPermanentlyDelete(ctx context.Context, ids []uuid.UUID) (*domain.BulkSummary, error)
	List(ctx context.Context, filter domain.TrashFilter) ([]trashsvc.ListItem, error)
	Summarize(ctx context.Context, filter domain.TrashFilter) (*domain.TrashSummary, error)
}

// TrashHandler serves the soft-delete and recovery endpoints.
type TrashHandler struct {
	trash trashService
	log   *slog.Logger
}

// NewTrashHandler creates a TrashHandler.
func NewTrashHandler(trash trashService, logger *slog.Logger) *TrashHandler {
	return &TrashHandler{
		trash: trash,
		log:   logger.With("handler", "trash"),
	}
}

// trashItemResponse is the JSON shape of one ledger record.
type trashItemResponse struct {
	ID               string         `json:"id"`
	EntityType       string         `json:"entity_type"`
	EntityID         string         `json:"entity_id"`
	ParentID         *string        `json:"parent_id,omitempty"`
	ParentType       *string        `json:"parent_type,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
	DeletedAt        time.Time      `json:"deleted_at"`
	DeletedBy        string         `json:"deleted_by"`
	DeletedByEmail   string         `json:"deleted_by_email,omitempty"`
	RecoveryDeadline time.Time      `json:"recovery_deadline"`
	Status           string         `json:"status,omitempty"`
}

func toTrashItem(rec *domain.DeletedEntity, status domain.TrashStatus) trashItemResponse {
	resp := trashItemResponse{
		ID:               rec.ID.String(),
		EntityType:       rec.EntityType.String(),
		EntityID:         rec.EntityID,
		ParentID:         rec.ParentID,
		Data:             rec.Data,
		DeletedAt:        rec.DeletedAt,
		DeletedBy:        rec.DeletedBy.String(),
		DeletedByEmail:   rec.DeletedByEmail,
		RecoveryDeadline: rec.RecoveryDeadline,
		Status:           string(status),
	}
	if rec.ParentType != nil {
		pt := rec.ParentType.String()
		resp.ParentType = &pt
	}
	return resp
}

// SoftDelete moves an entity to the trash.
// DELETE /api/v1/entities/{type}/{id}?org_id=&user_id=
func (h *TrashHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	ref := domain.EntityRef{
		EntityID:   r.PathValue("id"),
		EntityType: domain.EntityType(r.PathValue("type")),
	}
	var err error
	if ref.OrgID, err = optionalUUID(r, "org_id"); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	if ref.UserID, err = optionalUUID(r, "user_id"); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	rec, err := h.trash.SoftDelete(r.Context(), ref)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrashItem(rec, domain.TrashStatusRecoverable))
}

// List returns trash contents, newest deletions first.
// GET /api/v1/trash?type=&parent_id=&parent_type=
func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTrashFilter(r)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	items, err := h.trash.List(r.Context(), filter)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	resp := make([]trashItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toTrashItem(item.Record, item.Status))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp})
}

// Summary returns aggregate trash statistics.
// GET /api/v1/trash/summary?type=&parent_id=&parent_type=
func (h *TrashHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTrashFilter(r)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	sum, err := h.trash.Summarize(r.Context(), filter)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	byType := make(map[string]int, len(sum.ByType))
	for t, n := range sum.ByType {
		byType[t.String()] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":                   sum.Total,
		"expiring_within_24h":     sum.ExpiringWithin24h,
		"expired_pending_cleanup": sum.ExpiredPendingCleanup,
		"by_type":                 byType,
	})
}

// Recover restores a soft-deleted entity.
// POST /api/v1/trash/{id}/recover
func (h *TrashHandler) Recover(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	rec, err := h.trash.Recover(r.Context(), id)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrashItem(rec, domain.TrashStatusRecoverable))
}

// Purge permanently removes a trash entry.
// DELETE /api/v1/trash/{id}
func (h *TrashHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	if err := h.trash.PermanentlyDelete(r.Context(), id); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

// BatchRecover restores many trash entries in one call.
// POST /api/v1/trash/batch-recover
func (h *TrashHandler) BatchRecover(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.trash.BatchRecover)
}

// BatchPurge permanently removes many trash entries in one call.
// POST /api/v1/trash/batch-delete
func (h *TrashHandler) BatchPurge(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.trash.BatchPermanentlyDelete)
}

func (h *TrashHandler) batch(w http.ResponseWriter, r *http.Request, run func(context.Context, []uuid.UUID) (*domain.BulkSummary, error)) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		respondError(r.Context(), h.log, w, domain.NewValidationError("ids", "required"))
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(r.Context(), h.log, w,
				domain.NewValidationError("ids", fmt.Sprintf("%q is not a valid id", raw)))
			return
		}
		ids = append(ids, id)
	}

	sum, err := run(r.Context(), ids)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func parseTrashFilter(r *http.Request) (domain.TrashFilter, error) {
	var filter domain.TrashFilter

	if v := r.URL.Query().Get("type"); v != "" {
		t := domain.EntityType(v)
		if !t.IsValid() {
			return filter, domain.NewValidationError("type", fmt.Sprintf("unknown type %q", v))
		}
		filter.Type = &t
	}
	if v := r.URL.Query().Get("parent_id"); v != "" {
		filter.ParentID = &v
	}
	if v := r.URL.Query().Get("parent_type"); v != "" {
		t := domain.EntityType(v)
		if !t.IsValid() {
			return filter, domain.NewValidationError("parent_type", fmt.Sprintf("unknown type %q", v))
		}
		filter.ParentType = &t
	}
	return filter, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "not a valid id")
	}
	return id, nil
}

func optionalUUID(r *http.Request, name string) (*uuid.UUID, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, domain.NewValidationError(name, "not a valid id")
	}
	return &id, nil
}
