package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dealdesk/jobsync/pkg/schema"
)

func TestStartAnalysisSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/jobs" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req schema.StartJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ScopeID != "deal-1" {
			t.Fatalf("unexpected scope: %s", req.ScopeID)
		}
		json.NewEncoder(w).Encode(schema.StartJobResponse{JobID: "job-1", Status: schema.StatusQueued})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).StartAnalysis(context.Background(), "deal-1")
	if err != nil {
		t.Fatalf("StartAnalysis returned error: %v", err)
	}
	if resp.JobID != "job-1" || resp.Status != schema.StatusQueued {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStartAnalysisRejectionIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "deal not eligible for analysis", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).StartAnalysis(context.Background(), "deal-1")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T: %v", err, err)
	}
	if reqErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status code: %d", reqErr.StatusCode)
	}
	if reqErr.Body != "deal not eligible for analysis" {
		t.Fatalf("unexpected body: %q", reqErr.Body)
	}
}

func TestGetJobStampsJobID(t *testing.T) {
	updated := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/job-1" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		pct := 40
		json.NewEncoder(w).Encode(schema.JobStatusResponse{
			Status:      schema.StatusRunning,
			ProgressPct: &pct,
			Message:     "scoring",
			UpdatedAt:   &updated,
		})
	}))
	defer srv.Close()

	u, err := NewClient(srv.URL).GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if u.JobID != "job-1" {
		t.Fatalf("job id not stamped: %+v", u)
	}
	if u.Status != schema.StatusRunning || u.Message != "scoring" {
		t.Fatalf("unexpected update: %+v", u)
	}
	if u.ProgressPct == nil || *u.ProgressPct != 40 {
		t.Fatalf("progress not carried: %+v", u.ProgressPct)
	}
	if u.UpdatedAt == nil || !u.UpdatedAt.Equal(updated) {
		t.Fatalf("timestamp not carried: %+v", u.UpdatedAt)
	}
}

func TestUnreachableBackendIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	_, err := NewClient(srv.URL).GetJob(context.Background(), "job-1")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}
