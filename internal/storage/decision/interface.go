// Package decision persists consensus decisions.
package decision

import (
	"context"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// Store defines the interface for decision persistence.
type Store interface {
	// Save persists a decision. Decisions carry their own ID.
	Save(ctx context.Context, d core.ConsensusDecision) error

	// GetByID retrieves a decision by its ID.
	GetByID(ctx context.Context, id string) (*core.ConsensusDecision, error)

	// List retrieves decisions matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]core.ConsensusDecision, error)

	// Count returns the number of decisions matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing decisions.
type ListFilter struct {
	Symbol string
	Action core.Action
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// ErrNotFound is returned by GetByID for unknown IDs.
var ErrNotFound = &core.Error{Code: "DECISION_NOT_FOUND", Message: "decision not found"}
