// internal/sim/runner.go
package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/dealdesk/jobsync/pkg/schema"
)

// Publisher is the slice of the bus the runner needs; nil disables push.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// RunTimeline replays a scripted job: after each step's delay it advances the
// store and, unless the script drops push, publishes the update on the deal's
// subject.
func RunTimeline(ctx context.Context, store *Store, pub Publisher, logger *slog.Logger, js JobScript, jobID string) {
	jobLogger := logger.With("job_id", jobID, "scope_id", js.ScopeID)
	for _, step := range js.Steps {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(step.AfterMS) * time.Millisecond):
		}
		update, err := store.Apply(jobID, step)
		if err != nil {
			jobLogger.Error("apply step failed", "err", err)
			return
		}
		jobLogger.Info("job advanced", "status", update.Status, "message", update.Message)
		if pub == nil || js.DropPush {
			continue
		}
		subject := schema.DealJobsSubject(js.ScopeID)
		if err := pub.PublishJSON(subject, update); err != nil {
			jobLogger.Error("publish update failed", "subject", subject, "err", err)
		}
	}
}
