// internal/track/tracker.go
package track

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dealdesk/jobsync/pkg/schema"
)

// Phase is the channel arbiter's state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhasePushPending
	PhasePushActive
	PhasePolling
)

func (p Phase) String() string {
	switch p {
	case PhasePushPending:
		return "push_pending"
	case PhasePushActive:
		return "push_active"
	case PhasePolling:
		return "push_unavailable_polling"
	default:
		return "uninitialized"
	}
}

// JobAPI is the slice of the backend client the tracker needs.
type JobAPI interface {
	StartAnalysis(ctx context.Context, scopeID string) (schema.StartJobResponse, error)
	GetJob(ctx context.Context, jobID string) (schema.JobUpdated, error)
}

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPushGrace    = 1500 * time.Millisecond
)

// Config tunes the tracker's timers.
type Config struct {
	PollInterval time.Duration // delay between status fetches
	PushGrace    time.Duration // how long to wait for push readiness before polling
	StallAfter   time.Duration // bound on non-terminal tracking; 0 disables
}

type eventKind int

const (
	evPushReady eventKind = iota
	evPushUpdate
	evPushError
	evPollResult
	evPollFailed
)

type event struct {
	kind   eventKind
	update schema.JobUpdated
	err    error
}

// Tracker reconciles push and poll updates for one analysis job at a time
// into a single monotonic record. It prefers the push channel but never
// leaves a gap in coverage: polling runs whenever push is silent or broken.
// Starting a new job supersedes the previous one entirely.
type Tracker struct {
	api      JobAPI
	sub      Subscriber // nil means poll-only
	notifier Notifier
	logger   *slog.Logger
	cfg      Config

	mu      sync.Mutex
	rec     *Record
	phase   Phase
	lastErr error
	sess    *session
}

func New(api JobAPI, sub Subscriber, notifier Notifier, logger *slog.Logger, cfg Config) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PushGrace <= 0 {
		cfg.PushGrace = DefaultPushGrace
	}
	return &Tracker{api: api, sub: sub, notifier: notifier, logger: logger, cfg: cfg}
}

// session is one tracked job's event loop. All merges and arbiter transitions
// run on its goroutine; callbacks and timer ticks are funneled through the
// events channel, so no component races another.
type session struct {
	t       *Tracker
	scopeID string
	jobID   string
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan event
	done    chan struct{}
}

// Start queues an analysis for the deal and begins tracking the returned job.
// A previously tracked job is superseded: its channels close, its record and
// notification state are discarded.
func (t *Tracker) Start(ctx context.Context, scopeID string) (string, error) {
	resp, err := t.api.StartAnalysis(ctx, scopeID)
	if err != nil {
		return "", err
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		t:       t,
		scopeID: scopeID,
		jobID:   resp.JobID,
		ctx:     sctx,
		cancel:  cancel,
		events:  make(chan event, 128),
		done:    make(chan struct{}),
	}
	t.mu.Lock()
	prev := t.sess
	t.sess = s
	t.rec = &Record{JobID: resp.JobID, ScopeID: scopeID, Status: resp.Status}
	t.phase = PhaseUninitialized
	t.lastErr = nil
	t.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}
	go s.run()
	return resp.JobID, nil
}

// Cancel tears down the active session: the poll timer and push subscription
// are released and no further merges occur. The last record stays readable.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	s := t.sess
	t.mu.Unlock()
	if s != nil {
		s.cancel()
	}
}

// Done returns a channel closed once the active session has fully stopped,
// whether by terminal status, stall, cancellation, or transport exhaustion.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	s := t.sess
	t.mu.Unlock()
	if s == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Snapshot returns a copy of the canonical record, if a job is tracked.
func (t *Tracker) Snapshot() (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rec == nil {
		return Record{}, false
	}
	return t.rec.clone(), true
}

// Phase returns the arbiter state.
func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Err returns the last transport error observed by the poll loop.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Tracker) setPhase(s *session, p Phase) {
	t.mu.Lock()
	if t.sess == s {
		t.phase = p
	}
	t.mu.Unlock()
}

func (t *Tracker) phaseOf(s *session) Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != s {
		return PhaseUninitialized
	}
	return t.phase
}

func (t *Tracker) setErr(s *session, err error) {
	t.mu.Lock()
	if t.sess == s {
		t.lastErr = err
	}
	t.mu.Unlock()
}

// applyUpdate merges u into the record and fires the notifier on the first
// terminal transition. Reports whether the record is now terminal.
func (t *Tracker) applyUpdate(s *session, u schema.JobUpdated) bool {
	t.mu.Lock()
	if t.sess != s || t.rec == nil {
		t.mu.Unlock()
		return false
	}
	_, notify := t.rec.merge(u)
	terminal := t.rec.Status.Terminal()
	var rec Record
	if notify {
		rec = t.rec.clone()
	}
	t.mu.Unlock()
	if notify {
		t.notifier.Notify(rec.JobID, rec.Status, rec.Message)
	}
	return terminal
}

func (s *session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *session) run() {
	t := s.t
	defer close(s.done)
	defer s.cancel()

	logger := t.logger.With("job_id", s.jobID, "scope_id", s.scopeID)

	p := newPoller(t.cfg.PollInterval)
	grace := newStoppedTimer()
	stall := newStoppedTimer()
	defer p.stop()
	defer grace.Stop()
	defer stall.Stop()

	if t.cfg.StallAfter > 0 {
		stall.Reset(t.cfg.StallAfter)
	}

	var cancelPush CancelFunc
	defer func() {
		if cancelPush != nil {
			cancelPush()
		}
	}()

	pushLive := false      // subscription open and not errored
	pushConfirmed := false // push delivered an update for our job while active

	if t.sub == nil {
		t.setPhase(s, PhasePolling)
		p.armNow()
	} else {
		h := Handlers{
			OnReady:      func() { s.post(event{kind: evPushReady}) },
			OnJobUpdated: func(u schema.JobUpdated) { s.post(event{kind: evPushUpdate, update: u}) },
			OnError:      func() { s.post(event{kind: evPushError}) },
		}
		cp, err := t.sub.Subscribe(s.scopeID, h)
		if err != nil {
			logger.Warn("push channel unavailable, starting poll fallback", "err", err)
			t.setPhase(s, PhasePolling)
			p.armNow()
		} else {
			cancelPush = cp
			pushLive = true
			t.setPhase(s, PhasePushPending)
			grace.Reset(t.cfg.PushGrace)
		}
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-grace.C:
			if t.phaseOf(s) == PhasePushPending {
				logger.Info("push channel silent past grace period, starting poll fallback")
				t.setPhase(s, PhasePolling)
				p.armNow()
			}
		case <-stall.C:
			s.giveUpStalled(logger)
			return
		case <-p.C():
			p.fetch(s.ctx, t.api, s.jobID, s.post)
		case ev := <-s.events:
			switch ev.kind {
			case evPushReady:
				grace.Stop()
				t.setPhase(s, PhasePushActive)
			case evPushUpdate:
				if ev.update.JobID != s.jobID {
					continue // another job on the deal stream
				}
				if t.phaseOf(s) == PhasePushActive && !pushConfirmed {
					pushConfirmed = true
					if !p.stopped {
						logger.Info("push channel confirmed, poll loop stopped")
						p.stop()
					}
				}
				if t.applyUpdate(s, ev.update) {
					logger.Info("job reached terminal status", "status", ev.update.Status)
					return
				}
			case evPushError:
				logger.Warn("push channel error, falling back to polling")
				if cancelPush != nil {
					cancelPush()
					cancelPush = nil
				}
				pushLive = false
				pushConfirmed = false
				grace.Stop()
				t.setPhase(s, PhasePolling)
				p.armNow()
			case evPollResult:
				p.inFlight = false
				if t.applyUpdate(s, ev.update) {
					logger.Info("job reached terminal status", "status", ev.update.Status)
					return
				}
				p.armAfterInterval()
			case evPollFailed:
				p.inFlight = false
				if s.ctx.Err() != nil {
					return
				}
				logger.Error("status fetch failed, poll loop stopped", "err", ev.err)
				t.setErr(s, ev.err)
				p.stop()
				if !pushLive {
					// both transports exhausted; last known state stays visible
					return
				}
			}
		}
	}
}

// giveUpStalled tears tracking down after StallAfter elapses without a
// terminal status, surfacing a one-time stalled outcome.
func (s *session) giveUpStalled(logger *slog.Logger) {
	t := s.t
	t.mu.Lock()
	notify := false
	var status schema.JobStatus
	if t.sess == s && t.rec != nil && !t.rec.Status.Terminal() {
		t.rec.Stalled = true
		if !t.rec.notified {
			t.rec.notified = true
			notify = true
		}
		status = t.rec.Status
	}
	t.mu.Unlock()
	if notify {
		logger.Warn("no terminal status within stall bound, giving up", "stall_after", t.cfg.StallAfter)
		t.notifier.Notify(s.jobID, status, "analysis stalled: no update to a terminal status within "+t.cfg.StallAfter.String())
	}
}
