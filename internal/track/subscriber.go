// internal/track/subscriber.go
package track

import "github.com/dealdesk/jobsync/pkg/schema"

// Handlers receives push-channel callbacks. OnError reports a channel-level
// failure, never a job failure.
type Handlers struct {
	OnReady      func()
	OnJobUpdated func(schema.JobUpdated)
	OnError      func()
}

// CancelFunc tears down a push subscription.
type CancelFunc func()

// Subscriber opens a deal-scoped stream of job updates. Implementations must
// deliver only updates whose scope matches; job-id filtering is the tracker's.
type Subscriber interface {
	Subscribe(scopeID string, h Handlers) (CancelFunc, error)
}
