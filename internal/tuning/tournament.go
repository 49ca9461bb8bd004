package tuning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/broadside/internal/timeutil"
)

// ErrTournamentStalled is returned when an engine does not report completion
// within the configured tick or wall-clock budget.
var ErrTournamentStalled = errors.New("tournament stalled")

// Tournament budget defaults.
const (
	DefaultMaxTicks = 10_000_000
	DefaultMaxWall  = 30 * time.Minute
	DefaultPlayers  = 3
)

// TournamentOptions bounds the tick-until-done loop.
type TournamentOptions struct {
	// MaxTicks is the largest number of Tick calls before giving up.
	MaxTicks int
	// MaxWall is the longest a single tournament may run.
	MaxWall time.Duration
	// PollDelay is waited between ticks; zero polls back to back.
	PollDelay time.Duration
	// Clock measures MaxWall and PollDelay. Nil means the real clock.
	Clock timeutil.Clock
}

func (o TournamentOptions) withDefaults() TournamentOptions {
	if o.MaxTicks <= 0 {
		o.MaxTicks = DefaultMaxTicks
	}
	if o.MaxWall <= 0 {
		o.MaxWall = DefaultMaxWall
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	return o
}

// RunTournament starts a tournament on eng and ticks it until the engine
// reports completion, returning the last non-empty status line. An engine
// that finishes without ever emitting a line yields "".
//
// The loop checks ctx between ticks and gives up with ErrTournamentStalled
// once MaxTicks or MaxWall is exceeded.
func RunTournament(ctx context.Context, eng Engine, players, games int, opts TournamentOptions) (string, error) {
	if players < 2 {
		return "", fmt.Errorf("%w: players must be at least 2, got %d", ErrInvalidConfig, players)
	}
	if games <= 0 {
		return "", fmt.Errorf("%w: games must be positive, got %d", ErrInvalidConfig, games)
	}
	opts = opts.withDefaults()

	if err := eng.StartTournament(ctx, players, games); err != nil {
		return "", fmt.Errorf("starting tournament: %w", err)
	}

	start := opts.Clock.Now()
	var last string
	for ticks := 0; ; ticks++ {
		done, err := eng.IsComplete(ctx)
		if err != nil {
			return last, fmt.Errorf("polling tournament: %w", err)
		}
		if done {
			return last, nil
		}

		if ticks >= opts.MaxTicks {
			return last, fmt.Errorf("%w: not complete after %d ticks", ErrTournamentStalled, ticks)
		}
		if elapsed := opts.Clock.Since(start); elapsed > opts.MaxWall {
			return last, fmt.Errorf("%w: not complete after %v (%d ticks)", ErrTournamentStalled, elapsed, ticks)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		default:
		}

		msg, err := eng.Tick(ctx)
		if err != nil {
			return last, fmt.Errorf("tick %d: %w", ticks+1, err)
		}
		if msg != "" {
			last = msg
		}

		if opts.PollDelay > 0 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-opts.Clock.After(opts.PollDelay):
			}
		}
	}
}
