// pkg/schema/events.go
package schema

import "time"

// JobStatus is the lifecycle state of an analysis job as reported by the backend.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusRetrying  JobStatus = "retrying"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted from s.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusRetrying, StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// JobUpdated is the canonical job update, delivered on the push stream and
// reconstructed from poll responses. UpdatedAt is the ordering key; it may be
// absent when the backend reports no granular timing.
type JobUpdated struct {
	ScopeID     string     `json:"scope_id"`
	JobID       string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	ProgressPct *int       `json:"progress_pct,omitempty"`
	Message     string     `json:"message,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// StartJobRequest is the body of POST /jobs.
type StartJobRequest struct {
	ScopeID string `json:"scope_id"`
}

// StartJobResponse is the body returned by POST /jobs.
type StartJobResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// JobStatusResponse is the body returned by GET /jobs/{job_id}.
type JobStatusResponse struct {
	Status      JobStatus  `json:"status"`
	ProgressPct *int       `json:"progress_pct,omitempty"`
	Message     string     `json:"message,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// DealJobsSubject returns the push-channel subject carrying job updates for a deal.
func DealJobsSubject(scopeID string) string {
	return "deals." + scopeID + ".jobs"
}
