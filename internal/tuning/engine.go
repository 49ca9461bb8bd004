package tuning

import (
	"context"
	"errors"
	"sync/atomic"
)

// Engine abstracts the external game engine the harness tunes.
//
// An engine holds one weight configuration and one tournament slot. It offers
// no isolation between concurrent callers, so a Session serialises access.
type Engine interface {
	// ConfigureWeights replaces the engine's active weight vector.
	ConfigureWeights(ctx context.Context, w WeightVector) error

	// CurrentWeights reads the active weight vector.
	CurrentWeights(ctx context.Context) (WeightVector, error)

	// StartTournament begins a tournament. The engine accepts it
	// synchronously and runs it as Tick is called.
	StartTournament(ctx context.Context, players, games int) error

	// Tick advances the running tournament by one unit of work and returns
	// an optional status line.
	Tick(ctx context.Context) (string, error)

	// IsComplete reports whether the most recent tournament has finished.
	IsComplete(ctx context.Context) (bool, error)
}

// ErrSessionBusy is returned when a session is already driving a sweep.
var ErrSessionBusy = errors.New("engine session is busy")

// Session is an explicit handle on one engine instance.
//
// While a sweep or online run holds the session it is the engine's only
// mutator: other sweeps and WriteWeights calls are refused with
// ErrSessionBusy.
type Session struct {
	engine Engine
	codec  *Codec
	opts   TournamentOptions
	active atomic.Bool
}

// NewSession binds eng to a session using opts for every tournament.
func NewSession(eng Engine, opts TournamentOptions) *Session {
	return &Session{
		engine: eng,
		codec:  NewCodec(eng),
		opts:   opts,
	}
}

// Engine returns the underlying engine.
func (s *Session) Engine() Engine { return s.engine }

// Busy reports whether a sweep currently holds the session.
func (s *Session) Busy() bool { return s.active.Load() }

// ReadWeights returns the engine's current weights.
func (s *Session) ReadWeights(ctx context.Context) (WeightVector, error) {
	return s.codec.ReadCurrent(ctx)
}

// WriteWeights merges u into the engine's weights outside of a sweep.
func (s *Session) WriteWeights(ctx context.Context, u WeightUpdate) (WeightVector, error) {
	if err := s.acquire(); err != nil {
		return WeightVector{}, err
	}
	defer s.release()
	return s.codec.WriteMerged(ctx, u)
}

func (s *Session) acquire() error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrSessionBusy
	}
	return nil
}

func (s *Session) release() {
	s.active.Store(false)
}
