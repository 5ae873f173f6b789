package domain

import (
	"time"

	"github.com/google/uuid"
)

// RegistryEntry is the canonical record of which organization owns an
// entity, kept in the administrative database. It is the system of record
// the resolver consults when a request carries no tenant hint.
//
// HostedDocID carries the entity's long-form id inside an org-hosted
// document store when the two id schemes differ; lookups try it first and
// fall back to EntityID on zero results.
type RegistryEntry struct {
	EntityID    string
	EntityType  EntityType
	OrgID       *uuid.UUID
	HostedDocID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
