package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/velmark/taskrail-backend/internal/domain"
	"github.com/velmark/taskrail-backend/internal/service/tenancy"
)

type tenancyService interface {
	EnableSelfHosting(ctx context.Context, orgID uuid.UUID, documentPath string, claims []tenancy.EntityClaim) (*domain.TenantBinding, error)
	DisableSelfHosting(ctx context.Context, orgID uuid.UUID) (*domain.TenantBinding, error)
	RegisterEntity(ctx context.Context, e domain.RegistryEntry) error
	DeregisterEntity(ctx context.Context, entityID string) error
}

// TenancyHandler serves the tenant backend administration endpoints.
type TenancyHandler struct {
	tenancy tenancyService
	log     *slog.Logger
}

// NewTenancyHandler creates a TenancyHandler.
func NewTenancyHandler(svc tenancyService, logger *slog.Logger) *TenancyHandler {
	return &TenancyHandler{
		tenancy: svc,
		log:     logger.With("handler", "tenancy"),
	}
}

type bindingResponse struct {
	TenantKey    string `json:"tenant_key"`
	Kind         string `json:"kind"`
	DocumentPath string `json:"document_path,omitempty"`
}

type selfHostingRequest struct {
	DocumentPath string `json:"document_path"`
	Claims       []struct {
		EntityID    string  `json:"entity_id"`
		EntityType  string  `json:"entity_type"`
		HostedDocID *string `json:"hosted_doc_id,omitempty"`
	} `json:"claims,omitempty"`
}

// EnableSelfHosting switches an organization to a self-hosted backend.
// POST /api/v1/orgs/{id}/self-hosting
func (h *TenancyHandler) EnableSelfHosting(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	var req selfHostingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	claims := make([]tenancy.EntityClaim, 0, len(req.Claims))
	for _, c := range req.Claims {
		claims = append(claims, tenancy.EntityClaim{
			EntityID:    c.EntityID,
			EntityType:  domain.EntityType(c.EntityType),
			HostedDocID: c.HostedDocID,
		})
	}

	b, err := h.tenancy.EnableSelfHosting(r.Context(), orgID, req.DocumentPath, claims)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindingResponse{
		TenantKey:    string(b.TenantKey),
		Kind:         b.Kind.String(),
		DocumentPath: b.DocumentPath,
	})
}

// DisableSelfHosting switches an organization back to the shared backend.
// DELETE /api/v1/orgs/{id}/self-hosting
func (h *TenancyHandler) DisableSelfHosting(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	b, err := h.tenancy.DisableSelfHosting(r.Context(), orgID)
	if err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindingResponse{
		TenantKey: string(b.TenantKey),
		Kind:      b.Kind.String(),
	})
}

type registerEntityRequest struct {
	EntityType  string  `json:"entity_type"`
	OrgID       *string `json:"org_id,omitempty"`
	HostedDocID *string `json:"hosted_doc_id,omitempty"`
}

// RegisterEntity records an entity's ownership in the registry.
// PUT /api/v1/registry/{id}
func (h *TenancyHandler) RegisterEntity(w http.ResponseWriter, r *http.Request) {
	var req registerEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry := domain.RegistryEntry{
		EntityID:    r.PathValue("id"),
		EntityType:  domain.EntityType(req.EntityType),
		HostedDocID: req.HostedDocID,
	}
	var err error
	if entry.OrgID, err = parseOptionalID(req.OrgID, "org_id"); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}

	if err := h.tenancy.RegisterEntity(r.Context(), entry); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeregisterEntity drops an entity's ownership row.
// DELETE /api/v1/registry/{id}
func (h *TenancyHandler) DeregisterEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.tenancy.DeregisterEntity(r.Context(), r.PathValue("id")); err != nil {
		respondError(r.Context(), h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
