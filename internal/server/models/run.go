package models

import "time"

// RunState is the lifecycle state recorded for a run in PostgreSQL.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunComplete  RunState = "complete"
	RunFailed    RunState = "failed"
	RunAbandoned RunState = "abandoned"
)

// Run is one execution of the backup pipeline for one user.
type Run struct {
	ID          string     `json:"run_id"`
	UserID      string     `json:"user_id"`
	State       RunState   `json:"state"`
	TotalPhotos int        `json:"total_photos"`
	TotalPosts  int        `json:"total_posts"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the run will not change state again.
func (r *Run) Terminal() bool {
	switch r.State {
	case RunComplete, RunFailed, RunAbandoned:
		return true
	}
	return false
}
