// Package enginetest provides an in-process tuning.Engine for tests.
//
// The fake keeps its weights in the engine's float32 slot layout, so values
// read back have gone through the same narrowing a real engine applies.
// Tournaments are scripted: each game takes TicksPerGame ticks, the first of
// which emits a "[New game started: #n]" line, and the final tick emits the
// tournament summary line.
package enginetest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/broadside/internal/engine/slots"
	"github.com/banshee-data/broadside/internal/tuning"
)

// Method names accepted by FailFunc.
const (
	MethodConfigureWeights = "ConfigureWeights"
	MethodCurrentWeights   = "CurrentWeights"
	MethodStartTournament  = "StartTournament"
	MethodTick             = "Tick"
	MethodIsComplete       = "IsComplete"
)

// Tournament records one StartTournament call.
type Tournament struct {
	Players int
	Games   int
	Weights tuning.WeightVector
}

// Engine is a scripted fake engine. Configure it before first use; the zero
// value is not ready, use New.
type Engine struct {
	// TicksPerGame is the number of ticks each game consumes.
	TicksPerGame int

	// Summary renders the final status line. Defaults to Summary.
	Summary func(w tuning.WeightVector, players, games int) string

	// NeverComplete keeps every tournament running forever.
	NeverComplete bool

	// Silent suppresses every status line.
	Silent bool

	// FailFunc, if set, is consulted before every call with the method name
	// and the 1-based count of calls to that method. A non-nil return fails
	// the call.
	FailFunc func(method string, n int) error

	// OnTick runs after every tick with the total tick count.
	OnTick func(n int)

	mu          sync.Mutex
	buf         [slots.N]float32
	counts      map[string]int
	configured  []tuning.WeightVector
	tournaments []Tournament
	started     bool
	finished    bool
	players     int
	games       int
	tick        int
	totalTicks  int
}

// New returns a fake loaded with the default weights that completes each game
// in one tick.
func New() *Engine {
	return &Engine{
		TicksPerGame: 1,
		buf:          slots.Pack(tuning.DefaultWeights()),
		counts:       make(map[string]int),
	}
}

// Summary is the default summary line. Average shots grow with each tuned
// weight's distance from a fixed optimum, so sweeps have a unique best point.
func Summary(w tuning.WeightVector, players, games int) string {
	avg := 40 +
		10*math.Abs(w.GlobalAlphaEarly-0.7) +
		4*math.Abs(w.PlacementHitMultiplier-1.5) +
		5*math.Abs(w.AdjHitBonus-0.4) +
		3*math.Abs(w.MCBlendRatio-0.5)
	p1 := games / 2
	return fmt.Sprintf("[Tournament complete] P1 wins: %d | P2 wins: %d | P1 avg shots: %.2f | P2 avg shots: %.2f",
		p1, games-p1, avg, avg+1)
}

func (e *Engine) enter(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.counts[method]++
	if e.FailFunc != nil {
		return e.FailFunc(method, e.counts[method])
	}
	return nil
}

// ConfigureWeights implements tuning.Engine.
func (e *Engine) ConfigureWeights(ctx context.Context, w tuning.WeightVector) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(ctx, MethodConfigureWeights); err != nil {
		return err
	}
	e.buf = slots.Pack(w)
	e.configured = append(e.configured, slots.Unpack(e.buf))
	return nil
}

// CurrentWeights implements tuning.Engine.
func (e *Engine) CurrentWeights(ctx context.Context) (tuning.WeightVector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(ctx, MethodCurrentWeights); err != nil {
		return tuning.WeightVector{}, err
	}
	return slots.Unpack(e.buf), nil
}

// StartTournament implements tuning.Engine.
func (e *Engine) StartTournament(ctx context.Context, players, games int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(ctx, MethodStartTournament); err != nil {
		return err
	}
	e.started = true
	e.finished = false
	e.players = players
	e.games = games
	e.tick = 0
	e.tournaments = append(e.tournaments, Tournament{Players: players, Games: games, Weights: slots.Unpack(e.buf)})
	return nil
}

// Tick implements tuning.Engine.
func (e *Engine) Tick(ctx context.Context) (string, error) {
	e.mu.Lock()
	msg, n, err := e.advance(ctx)
	hook := e.OnTick
	e.mu.Unlock()

	if err == nil && hook != nil {
		hook(n)
	}
	return msg, err
}

func (e *Engine) advance(ctx context.Context) (string, int, error) {
	if err := e.enter(ctx, MethodTick); err != nil {
		return "", e.totalTicks, err
	}
	e.totalTicks++
	if !e.started || e.finished {
		return "", e.totalTicks, nil
	}

	per := e.TicksPerGame
	if per <= 0 {
		per = 1
	}
	e.tick++

	var msg string
	if (e.tick-1)%per == 0 {
		game := (e.tick-1)/per + 1
		if e.NeverComplete || game <= e.games {
			msg = fmt.Sprintf("[New game started: #%d]", game)
		}
	}
	if !e.NeverComplete && e.tick >= per*e.games {
		e.finished = true
		summary := e.Summary
		if summary == nil {
			summary = Summary
		}
		msg = summary(slots.Unpack(e.buf), e.players, e.games)
	}
	if e.Silent {
		msg = ""
	}
	return msg, e.totalTicks, nil
}

// IsComplete implements tuning.Engine. An engine that never started a
// tournament reports complete.
func (e *Engine) IsComplete(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter(ctx, MethodIsComplete); err != nil {
		return false, err
	}
	return !e.started || e.finished, nil
}

// Count returns how many times method has been called.
func (e *Engine) Count(method string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[method]
}

// Configured returns every vector written, as stored.
func (e *Engine) Configured() []tuning.WeightVector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tuning.WeightVector(nil), e.configured...)
}

// Tournaments returns every tournament started.
func (e *Engine) Tournaments() []Tournament {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Tournament(nil), e.tournaments...)
}

// Ticks returns the total number of Tick calls that succeeded.
func (e *Engine) Ticks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalTicks
}

// FailOn returns a FailFunc that fails the nth call to method with err.
func FailOn(method string, n int, err error) func(string, int) error {
	return func(m string, count int) error {
		if m == method && count == n {
			return err
		}
		return nil
	}
}

var _ tuning.Engine = (*Engine)(nil)
