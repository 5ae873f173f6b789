package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
)

type bulkService interface {
	Execute(ctx context.Context, action domain.BulkAction) (*domain.BulkSummary, error)
}

// BulkHandler serves the bulk action endpoint.
type BulkHandler struct {
	bulk bulkService
	log  *slog.Logger
}

// NewBulkHandler creates a BulkHandler.
func NewBulkHandler(bulk bulkService, logger *slog.Logger) *BulkHandler {
	return &BulkHandler{
		bulk: bulk,
		log:  logger.With("handler", "bulk"),
	}
}

type bulkRequest struct {
	Type       string   `json:"type"`
	EntityType string   `json:"entity_type"`
	TargetIDs  []string `json:"target_ids"`
	OrgID      *string  `json:"org_id,omitempty"`
	UserID     *string  `json:"user_id,omitempty"`
	Params     struct {
		TargetParentID *string `json:"target_parent_id,omitempty"`
		AssigneeID     *string `json:"assignee_id,omitempty"`
		Role           *string `json:"role,omitempty"`
	} `json:"params"`
}

// Execute runs one action across many entities.
// POST /api/v1/bulk
func (h *BulkHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	action := domain.BulkAction{
		Type:       domain.BulkActionType(req.Type),
		EntityType: domain.EntityType(req.EntityType),
		TargetIDs:  req.TargetIDs,
		Params: domain.BulkParams{
			TargetParentID: req.Params.TargetParentID,
			Role:           req.Params.Role,
		},
	}

	var err error
	if action.OrgID, err = parseOptionalID(req.OrgID, "org_id"); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	if action.UserID, err = parseOptionalID(req.UserID, "user_id"); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	if action.Params.AssigneeID, err = parseOptionalID(req.Params.AssigneeID, "params.assignee_id"); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	sum, err := h.bulk.Execute(r.Context(), action)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func parseOptionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, domain.NewValidationError(field, "not a valid id")
	}
	return &id, nil
}
