package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecoveryWindow is the time a soft-deleted entity stays recoverable.
// The window is a deliberate, non-configurable product policy and is
// applied uniformly across all entity types.
const RecoveryWindow = 24 * time.Hour

// TrashStatus is the lifecycle state of a soft-deleted entity, derived
// from the clock — it is never stored, to avoid drift between a stored
// flag and the deadline.
type TrashStatus string

const (
	TrashStatusRecoverable TrashStatus = "RECOVERABLE"
	TrashStatusExpired     TrashStatus = "EXPIRED"
)

// DeletedEntity is a ledger record for a soft-deleted entity. The record
// is immutable; it leaves the ledger either through recovery or through a
// permanent purge. Data always holds a snapshot sufficient to reconstruct
// the original document.
type DeletedEntity struct {
	ID               uuid.UUID // ledger-assigned, distinct from EntityID
	EntityType       EntityType
	EntityID         string
	ParentID         *string
	ParentType       *EntityType
	Data             map[string]any
	DeletedAt        time.Time
	DeletedBy        uuid.UUID
	DeletedByEmail   string
	RecoveryDeadline time.Time // DeletedAt + RecoveryWindow, fixed
}

// Expired reports whether the record is past its recovery deadline.
func (d *DeletedEntity) Expired(now time.Time) bool {
	return now.After(d.RecoveryDeadline)
}

// Status derives the record's lifecycle state from the given clock.
func (d *DeletedEntity) Status(now time.Time) TrashStatus {
	if d.Expired(now) {
		return TrashStatusExpired
	}
	return TrashStatusRecoverable
}

// Snapshot converts the ledger record back into the document it was taken
// from, for re-insertion into the origin collection.
func (d *DeletedEntity) Snapshot() *Document {
	return &Document{
		ID:         d.EntityID,
		Collection: d.EntityType.Collection(),
		ParentID:   d.ParentID,
		ParentType: d.ParentType,
		Data:       d.Data,
	}
}

// TrashFilter narrows trash listings. Nil fields match everything.
type TrashFilter struct {
	Type       *EntityType
	ParentID   *string
	ParentType *EntityType
}

// TrashSummary is the aggregate view of the ledger for a scope, computed
// by partitioning the listed records against the clock.
type TrashSummary struct {
	Total                 int
	ExpiringWithin24h     int
	ExpiredPendingCleanup int
	ByType                map[EntityType]int
}
