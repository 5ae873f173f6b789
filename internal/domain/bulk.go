package domain

import "github.com/google/uuid"

// BulkActionType is the kind of mutation a bulk action applies.
type BulkActionType string

const (
	BulkActionDelete     BulkActionType = "DELETE"
	BulkActionRecover    BulkActionType = "RECOVER"
	BulkActionMove       BulkActionType = "MOVE"
	BulkActionAssign     BulkActionType = "ASSIGN"
	BulkActionChangeRole BulkActionType = "CHANGE_ROLE"
)

func (t BulkActionType) String() string { return string(t) }

func (t BulkActionType) IsValid() bool {
	switch t {
	case BulkActionDelete, BulkActionRecover, BulkActionMove,
		BulkActionAssign, BulkActionChangeRole:
		return true
	}
	return false
}

// MaxBatchSize is the per-action ceiling on targets. Delete and recover
// carry a full resolve+ledger round trip per item, so their ceiling is
// lower than the plain field mutations.
func (t BulkActionType) MaxBatchSize() int {
	switch t {
	case BulkActionDelete, BulkActionRecover:
		return 50
	default:
		return 100
	}
}

// BulkParams carries action-specific parameters. Only the fields relevant
// to the action type are read.
type BulkParams struct {
	TargetParentID *string    // MOVE: destination parent
	AssigneeID     *uuid.UUID // ASSIGN
	Role           *string    // CHANGE_ROLE
}

// BulkAction is a single logical operation applied independently across
// many entity ids.
type BulkAction struct {
	Type       BulkActionType
	EntityType EntityType
	TargetIDs  []string
	OrgID      *uuid.UUID // candidate tenant hints forwarded to the resolver
	UserID     *uuid.UUID
	Params     BulkParams
}

// BulkItemResult is the outcome for one target id.
type BulkItemResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkSummary aggregates per-item outcomes. A summary with Failed > 0 is
// the normal shape of partial success, not an error.
type BulkSummary struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}

// Add records the outcome for one id.
func (s *BulkSummary) Add(id string, err error) {
	s.Total++
	if err != nil {
		s.Failed++
		s.Results = append(s.Results, BulkItemResult{ID: id, Error: err.Error()})
		return
	}
	s.Succeeded++
	s.Results = append(s.Results, BulkItemResult{ID: id, Success: true})
}
