// internal/track/record.go
package track

import (
	"time"

	"github.com/dealdesk/jobsync/pkg/schema"
)

// Record is the canonical in-memory state of the tracked job. It is mutated
// only through merge on the tracker's event loop; everything else sees copies.
type Record struct {
	JobID       string
	ScopeID     string
	Status      schema.JobStatus
	ProgressPct *int
	Message     string
	UpdatedAt   *time.Time
	Stalled     bool

	notified bool
}

// merge folds an update into the record. Foreign job ids, stale timestamps,
// and anything after a terminal status are discarded. An update without a
// timestamp is accepted only while the record holds none. notify is true on
// the first transition into a terminal status.
func (r *Record) merge(u schema.JobUpdated) (applied, notify bool) {
	if r == nil || u.JobID != r.JobID {
		return false, false
	}
	if r.Status.Terminal() {
		return false, false
	}
	if u.UpdatedAt == nil {
		if r.UpdatedAt != nil {
			return false, false
		}
	} else if r.UpdatedAt != nil && !u.UpdatedAt.After(*r.UpdatedAt) {
		return false, false
	}
	r.Status = u.Status
	r.ProgressPct = cloneInt(u.ProgressPct)
	r.Message = u.Message
	r.UpdatedAt = cloneTime(u.UpdatedAt)
	if u.Status.Terminal() && !r.notified {
		r.notified = true
		return true, true
	}
	return true, false
}

func (r *Record) clone() Record {
	c := *r
	c.ProgressPct = cloneInt(r.ProgressPct)
	c.UpdatedAt = cloneTime(r.UpdatedAt)
	return c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
