// internal/track/poller.go
package track

import (
	"context"
	"time"
)

// poller owns the fallback timer: one status fetch per tick, re-armed only
// while the merged status is non-terminal and push has not taken over. The
// timer is released on stop, so teardown leaks nothing.
type poller struct {
	interval time.Duration
	timer    *time.Timer
	inFlight bool
	stopped  bool
}

func newPoller(interval time.Duration) *poller {
	return &poller{interval: interval, timer: newStoppedTimer()}
}

func (p *poller) C() <-chan time.Time { return p.timer.C }

// armNow schedules a fetch on the next loop iteration.
func (p *poller) armNow() {
	p.stopped = false
	p.timer.Reset(0)
}

func (p *poller) armAfterInterval() {
	if !p.stopped {
		p.timer.Reset(p.interval)
	}
}

// stop prevents any further fetches. A result already in flight is still
// delivered and merged.
func (p *poller) stop() {
	p.stopped = true
	p.timer.Stop()
}

// fetch performs one status request off the loop goroutine and posts the
// outcome back as an event. At most one request is in flight at a time.
func (p *poller) fetch(ctx context.Context, api JobAPI, jobID string, post func(event)) {
	if p.stopped || p.inFlight {
		return
	}
	p.inFlight = true
	go func() {
		u, err := api.GetJob(ctx, jobID)
		if err != nil {
			post(event{kind: evPollFailed, err: err})
			return
		}
		post(event{kind: evPollResult, update: u})
	}()
}

func newStoppedTimer() *time.Timer {
	tm := time.NewTimer(time.Hour)
	if !tm.Stop() {
		<-tm.C
	}
	return tm
}
