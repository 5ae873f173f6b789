package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityType identifies the kind of product entity tracked by the core.
type EntityType string

const (
	EntityTypeTask         EntityType = "TASK"
	EntityTypeProject      EntityType = "PROJECT"
	EntityTypeOrganization EntityType = "ORGANIZATION"
	EntityTypeColumn       EntityType = "COLUMN"
	EntityTypeTeamMember   EntityType = "TEAM_MEMBER"
)

func (e EntityType) String() string { return string(e) }

func (e EntityType) IsValid() bool {
	switch e {
	case EntityTypeTask, EntityTypeProject, EntityTypeOrganization,
		EntityTypeColumn, EntityTypeTeamMember:
		return true
	}
	return false
}

// Collection returns the document collection an entity type lives in.
func (e EntityType) Collection() string {
	switch e {
	case EntityTypeTask:
		return "tasks"
	case EntityTypeProject:
		return "projects"
	case EntityTypeOrganization:
		return "organizations"
	case EntityTypeColumn:
		return "columns"
	case EntityTypeTeamMember:
		return "team_members"
	}
	return ""
}

// BackendKind discriminates the physical backend flavor of a tenant.
// It is stored on the TenantBinding at creation time and never re-derived
// from the handle at runtime.
type BackendKind string

const (
	BackendSharedAdmin BackendKind = "SHARED_ADMIN"
	BackendPerUser     BackendKind = "PER_USER"
	BackendOrgHosted   BackendKind = "ORG_HOSTED"
)

func (k BackendKind) String() string { return string(k) }

func (k BackendKind) IsValid() bool {
	switch k {
	case BackendSharedAdmin, BackendPerUser, BackendOrgHosted:
		return true
	}
	return false
}

// TenantKey identifies a tenant in the connection cache and the binding
// table. A tenant is either an organization or a user (personal scope).
type TenantKey string

// SharedAdminKey is the cache key of the shared administrative backend.
const SharedAdminKey TenantKey = "shared"

// OrgKey builds the tenant key for an organization.
func OrgKey(orgID uuid.UUID) TenantKey {
	return TenantKey(fmt.Sprintf("org:%s", orgID))
}

// UserKey builds the tenant key for a user's personal scope.
func UserKey(userID uuid.UUID) TenantKey {
	return TenantKey(fmt.Sprintf("user:%s", userID))
}

// EntityRef is the resolver input: an entity id plus the candidate tenant
// hints the caller already knows. Constructed per request, never persisted.
type EntityRef struct {
	EntityID   string
	EntityType EntityType
	OrgID      *uuid.UUID // candidate organization, if the caller knows it
	UserID     *uuid.UUID // candidate user for personal scope
}

// Validate checks the reference is usable as resolver input.
func (r EntityRef) Validate() error {
	if r.EntityID == "" {
		return NewValidationError("entity_id", "required")
	}
	if !r.EntityType.IsValid() {
		return NewValidationError("entity_type", fmt.Sprintf("unknown type %q", string(r.EntityType)))
	}
	return nil
}

// Document is a schemaless entity snapshot as stored in a tenant backend.
// Parent fields scope the document to its container (a task's project,
// a column's project, a team member's organization).
type Document struct {
	ID         string
	Collection string
	ParentID   *string
	ParentType *EntityType
	Data       map[string]any
}
