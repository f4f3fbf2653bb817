package track

import (
	"testing"
	"time"

	"github.com/dealdesk/jobsync/pkg/schema"
)

func tsAt(t *testing.T, ms int) *time.Time {
	t.Helper()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	v := base.Add(time.Duration(ms) * time.Millisecond)
	return &v
}

func TestMergeAppliesNewerUpdate(t *testing.T) {
	r := &Record{JobID: "job-1", ScopeID: "deal-1", Status: schema.StatusQueued}

	applied, notify := r.merge(schema.JobUpdated{
		JobID:     "job-1",
		Status:    schema.StatusRunning,
		Message:   "working",
		UpdatedAt: tsAt(t, 100),
	})
	if !applied || notify {
		t.Fatalf("unexpected merge outcome: applied=%v notify=%v", applied, notify)
	}
	if r.Status != schema.StatusRunning || r.Message != "working" {
		t.Fatalf("record not updated: %+v", r)
	}
}

func TestMergeRejectsForeignJob(t *testing.T) {
	r := &Record{JobID: "job-1", Status: schema.StatusQueued}

	applied, _ := r.merge(schema.JobUpdated{JobID: "job-2", Status: schema.StatusRunning, UpdatedAt: tsAt(t, 100)})
	if applied {
		t.Fatal("foreign job update must be rejected")
	}
	if r.Status != schema.StatusQueued {
		t.Fatalf("record mutated by foreign update: %+v", r)
	}
}

func TestMergeDiscardsStaleTimestamp(t *testing.T) {
	// Scenario: queued@t1 arrives after running@t2 (t2 > t1) was applied.
	r := &Record{JobID: "job-1", Status: schema.StatusQueued}
	if applied, _ := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusRunning, UpdatedAt: tsAt(t, 200)}); !applied {
		t.Fatal("setup merge failed")
	}

	applied, _ := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusQueued, UpdatedAt: tsAt(t, 100)})
	if applied {
		t.Fatal("stale update must be discarded")
	}
	if r.Status != schema.StatusRunning {
		t.Fatalf("state regressed: %v", r.Status)
	}
}

func TestMergeDiscardsEqualTimestamp(t *testing.T) {
	r := &Record{JobID: "job-1", Status: schema.StatusQueued}
	if applied, _ := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusRunning, UpdatedAt: tsAt(t, 100)}); !applied {
		t.Fatal("setup merge failed")
	}

	// same instant from the other channel, even with a "later" status
	applied, _ := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusSucceeded, UpdatedAt: tsAt(t, 100)})
	if applied {
		t.Fatal("equal timestamp must not be strictly newer")
	}
}

func TestMergeAbsentTimestampOnlyWhenNoPrior(t *testing.T) {
	r := &Record{JobID: "job-1", Status: schema.StatusQueued}

	if applied, _ := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusRunning}); !applied {
		t.Fatal("timestampless update must be accepted while record has no timestamp")
	}

	if applied, _ := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusRunning, UpdatedAt: tsAt(t, 100)}); !applied {
		t.Fatal("timestamped update after timestampless must be accepted")
	}

	if applied, _ := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusSucceeded}); applied {
		t.Fatal("timestampless update must be rejected once a timestamp exists")
	}
}

func TestMergeFreezesAfterTerminal(t *testing.T) {
	r := &Record{JobID: "job-1", Status: schema.StatusRunning}
	applied, notify := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusFailed, UpdatedAt: tsAt(t, 100)})
	if !applied || !notify {
		t.Fatalf("terminal merge: applied=%v notify=%v", applied, notify)
	}

	applied, notify = r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusSucceeded, UpdatedAt: tsAt(t, 200)})
	if applied || notify {
		t.Fatal("terminal record must not change")
	}
	if r.Status != schema.StatusFailed {
		t.Fatalf("terminal status overwritten: %v", r.Status)
	}
}

func TestMergeNotifiesOncePerJob(t *testing.T) {
	r := &Record{JobID: "job-1", Status: schema.StatusRunning}
	notifications := 0
	for i := 1; i <= 3; i++ {
		_, notify := r.merge(schema.JobUpdated{JobID: "job-1", Status: schema.StatusSucceeded, UpdatedAt: tsAt(t, i*100)})
		if notify {
			notifications++
		}
	}
	if notifications != 1 {
		t.Fatalf("expected exactly one notification, got %d", notifications)
	}
}

func TestLastWriterWinsAcrossInterleavings(t *testing.T) {
	// every permutation of three distinct timestamps must converge on the
	// update carrying the maximum one
	updates := []schema.JobUpdated{
		{JobID: "job-1", Status: schema.StatusQueued, UpdatedAt: tsAt(t, 100)},
		{JobID: "job-1", Status: schema.StatusRunning, UpdatedAt: tsAt(t, 200)},
		{JobID: "job-1", Status: schema.StatusRetrying, UpdatedAt: tsAt(t, 300)},
	}
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		r := &Record{JobID: "job-1", Status: schema.StatusQueued}
		for _, i := range p {
			r.merge(updates[i])
		}
		if r.Status != schema.StatusRetrying {
			t.Fatalf("order %v: final status %v, want retrying", p, r.Status)
		}
		if r.UpdatedAt == nil || !r.UpdatedAt.Equal(*updates[2].UpdatedAt) {
			t.Fatalf("order %v: final timestamp %v", p, r.UpdatedAt)
		}
	}
}

func TestCloneIsDetached(t *testing.T) {
	pct := 40
	now := time.Now().UTC()
	r := &Record{JobID: "job-1", Status: schema.StatusRunning, ProgressPct: &pct, UpdatedAt: &now}
	c := r.clone()

	*c.ProgressPct = 99
	if *r.ProgressPct != 40 {
		t.Fatal("clone shares progress pointer with record")
	}
}
