// internal/sim/server.go
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealdesk/jobsync/pkg/schema"
)

// Server is the scripted stand-in for the backend job API. POST /jobs queues
// the scenario job for the deal; GET /jobs/{job_id} reads the store.
type Server struct {
	script *Script
	store  *Store
	pub    Publisher
	logger *slog.Logger

	// baseCtx bounds the lifetime of scripted timelines.
	baseCtx context.Context
}

func NewServer(ctx context.Context, script *Script, store *Store, pub Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{script: script, store: store, pub: pub, logger: logger, baseCtx: ctx}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/jobs", s.handleStartJob)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	return r
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req schema.StartJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ScopeID == "" {
		http.Error(w, "scope_id is required", http.StatusBadRequest)
		return
	}
	js := s.script.ForScope(req.ScopeID)
	if js == nil {
		http.Error(w, "deal not eligible for analysis", http.StatusUnprocessableEntity)
		return
	}
	jobID := s.store.CreateJob(req.ScopeID)
	s.logger.Info("job queued", "job_id", jobID, "scope_id", req.ScopeID, "drop_push", js.DropPush)
	go RunTimeline(s.baseCtx, s.store, s.pub, s.logger, *js, jobID)

	writeJSON(w, http.StatusOK, schema.StartJobResponse{JobID: jobID, Status: schema.StatusQueued})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.store.Get(jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, schema.JobStatusResponse{
		Status:      job.Status,
		ProgressPct: job.ProgressPct,
		Message:     job.Message,
		UpdatedAt:   job.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
