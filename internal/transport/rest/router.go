package rest

import (
	"net/http"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health  *HealthHandler
	Trash   *TrashHandler
	Bulk    *BulkHandler
	Tenancy *TenancyHandler
}

// NewRouter mounts all REST routes on a fresh mux. Middleware is applied
// by the caller around the returned handler.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	mux.HandleFunc("DELETE /api/v1/entities/{type}/{id}", h.Trash.SoftDelete)
	mux.HandleFunc("GET /api/v1/trash", h.Trash.List)
	mux.HandleFunc("GET /api/v1/trash/summary", h.Trash.Summary)
	mux.HandleFunc("POST /api/v1/trash/{id}/recover", h.Trash.Recover)
	mux.HandleFunc("DELETE /api/v1/trash/{id}", h.Trash.Purge)
	mux.HandleFunc("POST /api/v1/trash/batch-recover", h.Trash.BatchRecover)
	mux.HandleFunc("POST /api/v1/trash/batch-delete", h.Trash.BatchPurge)

	mux.HandleFunc("POST /api/v1/bulk", h.Bulk.Execute)

	mux.HandleFunc("POST /api/v1/orgs/{id}/self-hosting", h.Tenancy.EnableSelfHosting)
	mux.HandleFunc("DELETE /api/v1/orgs/{id}/self-hosting", h.Tenancy.DisableSelfHosting)
	mux.HandleFunc("PUT /api/v1/registry/{id}", h.Tenancy.RegisterEntity)
	mux.HandleFunc("DELETE /api/v1/registry/{id}", h.Tenancy.DeregisterEntity)

	return mux
}
