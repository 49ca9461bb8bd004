package tuning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/broadside/internal/timeutil"
)

// ErrSweepInProgress is returned by Runner.Start while a sweep is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// SweepStatus represents the current state of a sweep run
type SweepStatus string

const (
	SweepStatusIdle     SweepStatus = "idle"
	SweepStatusRunning  SweepStatus = "running"
	SweepStatusComplete SweepStatus = "complete"
	SweepStatusAborted  SweepStatus = "aborted"
)

// SweepState holds the current state and results of a sweep
type SweepState struct {
	ID          string      `json:"id,omitempty"`
	Status      SweepStatus `json:"status"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Total       int         `json:"total"`
	Completed   int         `json:"completed"`
	Last        *Result     `json:"last,omitempty"`
	Results     []Result    `json:"results"`
	Error       string      `json:"error,omitempty"`
	Config      *Config     `json:"config,omitempty"`
}

// EventType distinguishes sweep notifications.
type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one notification from a background sweep. A sweep emits zero or
// more progress events followed by exactly one done or error event. Error
// events carry the results completed before the failure.
type Event struct {
	Type      EventType `json:"type"`
	SweepID   string    `json:"sweep_id"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Last      *Result   `json:"last,omitempty"`
	Results   []Result  `json:"results,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Runner runs sweeps in the background against one session and keeps a
// snapshot of the latest one. Timestamps come from the session's clock.
type Runner struct {
	session *Session
	clock   timeutil.Clock
	mu      sync.RWMutex
	state   SweepState
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner creates a runner for session.
func NewRunner(session *Session) *Runner {
	return &Runner{
		session: session,
		clock:   session.opts.withDefaults().Clock,
		state:   SweepState{Status: SweepStatusIdle},
	}
}

// State returns a copy of the current sweep state.
func (r *Runner) State() SweepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	state.Results = append([]Result(nil), r.state.Results...)
	if state.Results == nil {
		state.Results = []Result{}
	}
	return state
}

// Start validates cfg and launches the sweep in a goroutine, returning the
// state the sweep started with. Configuration errors are returned
// synchronously and no event is emitted for them. notify, if non-nil,
// receives events in order from the sweep goroutine; the runner reports the
// sweep as running until its terminal event has been delivered.
func (r *Runner) Start(ctx context.Context, cfg Config, notify func(Event)) (SweepState, error) {
	plan, err := cfg.Plan()
	if err != nil {
		return SweepState{}, err
	}

	r.mu.Lock()
	if r.state.Status == SweepStatusRunning {
		r.mu.Unlock()
		return SweepState{}, ErrSweepInProgress
	}

	now := r.clock.Now()
	r.state = SweepState{
		ID:        uuid.New().String(),
		Status:    SweepStatusRunning,
		StartedAt: &now,
		Total:     plan.Total(),
		Results:   make([]Result, 0, plan.Total()),
		Config:    &cfg,
	}
	started := r.state
	started.Results = []Result{}

	sweepCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	if notify == nil {
		notify = func(Event) {}
	}

	sweepLog("Sweep %s started: %d combinations", started.ID, plan.Total())
	go r.run(sweepCtx, cancel, started.ID, plan, notify, done)
	return started, nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, id string, plan Plan, notify func(Event), done chan struct{}) {
	defer close(done)
	defer cancel()

	results, err := r.session.SweepPlan(ctx, plan, func(p Progress) {
		last := p.Last
		r.mu.Lock()
		r.state.Results = append(r.state.Results, last)
		r.state.Completed = p.Completed
		r.state.Last = &last
		r.mu.Unlock()

		notify(Event{Type: EventProgress, SweepID: id, Completed: p.Completed, Total: p.Total, Last: &last})
	})

	// The terminal event goes out while the state still reads running, so a
	// new sweep cannot interleave its events with this one's.
	if err != nil {
		notify(Event{Type: EventError, SweepID: id, Completed: len(results), Total: plan.Total(), Results: results, Error: err.Error()})
	} else {
		notify(Event{Type: EventDone, SweepID: id, Completed: len(results), Total: plan.Total(), Results: results})
	}

	now := r.clock.Now()
	r.mu.Lock()
	r.state.CompletedAt = &now
	r.state.Completed = len(results)
	if err != nil {
		r.state.Status = SweepStatusAborted
		r.state.Error = err.Error()
	} else {
		r.state.Status = SweepStatusComplete
	}
	r.cancel = nil
	r.mu.Unlock()
}

// Stop cancels a running sweep. The sweep finishes the combination in flight
// only as far as the tournament loop's next cancellation check.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Wait blocks until the current sweep has emitted its terminal event or ctx
// is done. It returns immediately when no sweep was started.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
