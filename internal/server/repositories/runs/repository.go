// Package runs declares the repository contract for the backup run registry.
package runs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/liveon/internal/server/models"
)

// Repository records the lifecycle of backup runs.
type Repository interface {
	// Create inserts a new run.
	Create(ctx context.Context, run *models.Run) error

	// SetState moves a non-terminal run to state.
	SetState(ctx context.Context, runID string, state models.RunState) error

	// Finish moves a non-terminal run to a terminal state with its totals.
	// A terminal run is left untouched, except that an abandoned run may
	// still finish complete or failed: housekeeping only sees the age of
	// the row, and the run that still holds the lease knows better.
	Finish(ctx context.Context, runID string, state models.RunState, totalPhotos, totalPosts int, errMsg string) error

	// Get returns a run or common.ErrorNotFound.
	Get(ctx context.Context, runID string) (*models.Run, error)

	// ListByUser returns the newest runs of userID first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Run, error)

	// LatestComplete returns the newest complete run of userID or common.ErrorNotFound.
	LatestComplete(ctx context.Context, userID string) (*models.Run, error)

	// MarkAbandoned flags queued or running runs not updated since before
	// as abandoned and reports how many were changed.
	MarkAbandoned(ctx context.Context, before time.Time) (int64, error)
}
