package schema

import "testing"

func TestTerminalStatuses(t *testing.T) {
	terminal := []JobStatus{StatusSucceeded, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	open := []JobStatus{StatusQueued, StatusRunning, StatusRetrying}
	for _, s := range open {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestValidRejectsUnknownStatus(t *testing.T) {
	if JobStatus("exploded").Valid() {
		t.Fatal("unknown status reported valid")
	}
	if !StatusRetrying.Valid() {
		t.Fatal("retrying reported invalid")
	}
}

func TestDealJobsSubject(t *testing.T) {
	if got := DealJobsSubject("deal-42"); got != "deals.deal-42.jobs" {
		t.Fatalf("unexpected subject: %s", got)
	}
}
