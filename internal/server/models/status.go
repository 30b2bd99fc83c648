// Package models defines the server-side data shapes: the per-user status
// document, run artifacts, provider items and the rows kept in PostgreSQL.
package models

import "time"

// Step labels written into the status document as a run advances.
const (
	StepInitializing = "Initializing"
	StepFetching     = "Fetching photos..."
	StepProcessing   = "Processing photos as posts..."
	StepFinalizing   = "Finalizing..."
	StepComplete     = "Complete"
)

// Status is the per-user singleton document at {userId}/status.json.
type Status struct {
	Running     bool     `json:"running"`
	Progress    int      `json:"progress"`
	Step        string   `json:"step,omitempty"`
	LastUpdated int64    `json:"last_updated"`
	RunID       string   `json:"run_id,omitempty"`
	Result      *Summary `json:"result,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// IsFresh reports whether a running status still holds the per-user lease
// at now, i.e. it was updated less than staleAfter ago.
func (s *Status) IsFresh(now time.Time, staleAfter time.Duration) bool {
	if s == nil || !s.Running {
		return false
	}
	return now.UnixMilli()-s.LastUpdated < staleAfter.Milliseconds()
}

// IdleStatus is what status polling returns when no document exists yet.
func IdleStatus() *Status {
	return &Status{Running: false, Progress: 0}
}

// Summary is written as summary.json and embedded in the final status.
type Summary struct {
	Timestamp   string `json:"timestamp"`
	TotalPhotos int    `json:"total_photos"`
	TotalPosts  int    `json:"total_posts"`
	RunID       string `json:"run_id"`
}
