// internal/sim/store.go
package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/jobsync/pkg/schema"
)

var ErrJobNotFound = errors.New("job not found")

// Store holds the simulator's jobs in memory. It stamps updated_at
// server-side and hands out copies only.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*schema.JobUpdated
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*schema.JobUpdated)}
}

// CreateJob registers a fresh queued job for the deal and returns its id.
func (s *Store) CreateJob(scopeID string) string {
	id := uuid.NewString()
	now := time.Now().UTC()
	s.mu.Lock()
	s.jobs[id] = &schema.JobUpdated{
		ScopeID:   scopeID,
		JobID:     id,
		Status:    schema.StatusQueued,
		UpdatedAt: &now,
	}
	s.mu.Unlock()
	return id
}

// Apply advances a job to the scripted step and returns the updated copy.
func (s *Store) Apply(jobID string, step Step) (schema.JobUpdated, error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return schema.JobUpdated{}, ErrJobNotFound
	}
	job.Status = step.Status
	job.Message = step.Message
	if step.ProgressPct != nil {
		pct := *step.ProgressPct
		job.ProgressPct = &pct
	}
	job.UpdatedAt = &now
	return copyJob(job), nil
}

// Get returns a copy of the job's current state.
func (s *Store) Get(jobID string) (schema.JobUpdated, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return schema.JobUpdated{}, ErrJobNotFound
	}
	return copyJob(job), nil
}

func copyJob(job *schema.JobUpdated) schema.JobUpdated {
	c := *job
	if job.ProgressPct != nil {
		pct := *job.ProgressPct
		c.ProgressPct = &pct
	}
	if job.UpdatedAt != nil {
		ts := *job.UpdatedAt
		c.UpdatedAt = &ts
	}
	return c
}
