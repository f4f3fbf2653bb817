// internal/track/notifier.go
package track

import (
	"log/slog"

	"github.com/dealdesk/jobsync/pkg/schema"
)

// Notifier surfaces the one-time user-facing outcome of a job. Idempotence
// per job id is guaranteed by the record's notified flag, not the notifier.
type Notifier interface {
	Notify(jobID string, status schema.JobStatus, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(jobID string, status schema.JobStatus, message string)

func (f NotifierFunc) Notify(jobID string, status schema.JobStatus, message string) {
	f(jobID, status, message)
}

// LogNotifier writes the outcome to the log, the CLI stand-in for a toast.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(jobID string, status schema.JobStatus, message string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if status == schema.StatusSucceeded {
		logger.Info("analysis complete", "job_id", jobID, "status", status, "message", message)
		return
	}
	logger.Warn("analysis ended", "job_id", jobID, "status", status, "message", message)
}
