// internal/track/push.go
package track

import (
	"encoding/json"

	"github.com/dealdesk/jobsync/internal/bus"
	"github.com/dealdesk/jobsync/pkg/schema"
)

// BusSubscriber adapts the NATS bus to the Subscriber interface. One
// subscription per deal, on the deals.<scope_id>.jobs subject.
type BusSubscriber struct {
	Bus *bus.Client
}

func (s *BusSubscriber) Subscribe(scopeID string, h Handlers) (CancelFunc, error) {
	sub, err := s.Bus.SubscribeJSON(schema.DealJobsSubject(scopeID), func(data []byte) {
		var u schema.JobUpdated
		if err := json.Unmarshal(data, &u); err != nil {
			return // malformed frame, not a channel failure
		}
		if u.ScopeID != scopeID {
			return
		}
		h.OnJobUpdated(u)
	})
	if err != nil {
		return nil, err
	}
	remove := s.Bus.NotifyError(func(error) { h.OnError() })
	// NATS registers interest synchronously; the stream is live once
	// Subscribe returns.
	h.OnReady()
	return func() {
		remove()
		_ = sub.Unsubscribe()
	}, nil
}
