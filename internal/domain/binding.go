package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantBinding maps a tenant to the physical backend that owns its data.
// A binding is created at tenant onboarding (or lazily for personal scope)
// and is immutable afterwards except through an explicit re-configuration.
//
// Exactly one of the connection fields is meaningful per kind:
// DSN/DatabaseName for SQL backends, DocumentPath for org-hosted
// document stores.
type TenantBinding struct {
	ID           uuid.UUID
	TenantKey    TenantKey
	Kind         BackendKind
	DSN          string
	DatabaseName string
	DocumentPath string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the binding's connection fields match its kind.
func (b TenantBinding) Validate() error {
	if !b.Kind.IsValid() {
		return NewValidationError("kind", "unknown backend kind")
	}
	switch b.Kind {
	case BackendOrgHosted:
		if b.DocumentPath == "" {
			return NewValidationError("document_path", "required for org-hosted backends")
		}
	default:
		if b.DSN == "" {
			return NewValidationError("dsn", "required for SQL backends")
		}
	}
	return nil
}
