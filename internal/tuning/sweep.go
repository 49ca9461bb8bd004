package tuning

import (
	"context"

	"github.com/banshee-data/broadside/internal/monitoring"
)

var sweepLog = monitoring.Tagged("sweep")

// Sweep validates cfg and runs every combination against the session's
// engine, one tournament at a time, in enumeration order.
//
// Configuration errors are returned before the engine is touched. A
// combination whose summary cannot be parsed is recorded with NaN metrics
// and the sweep continues. Engine failures, stalls and cancellation end the
// sweep with an *AbortError; the results completed so far are returned with
// it. onProgress, if non-nil, is called after each combination.
func (s *Session) Sweep(ctx context.Context, cfg Config, onProgress func(Progress)) ([]Result, error) {
	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}
	return s.SweepPlan(ctx, plan, onProgress)
}

// SweepPlan runs an already validated plan. See Sweep.
func (s *Session) SweepPlan(ctx context.Context, plan Plan, onProgress func(Progress)) ([]Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	combos := plan.Combinations()
	total := len(combos)
	results := make([]Result, 0, total)

	abort := func(err error) ([]Result, error) {
		sweepLog("Sweep aborted at combination %d/%d: %v", len(results)+1, total, err)
		return results, &AbortError{Completed: len(results), Total: total, Err: err}
	}

	for i, combo := range combos {
		select {
		case <-ctx.Done():
			return abort(ctx.Err())
		default:
		}

		sweepLog("Combination %d/%d: alpha=%.3f place=%.3f adj=%.3f mc=%.3f",
			i+1, total, combo.Alpha, combo.Placement, combo.Adjacency, combo.MonteCarlo)

		result, err := s.runCombination(ctx, plan, combo)
		if err != nil {
			return abort(err)
		}

		results = append(results, result)
		if onProgress != nil {
			onProgress(Progress{Completed: len(results), Total: total, Last: result})
		}
	}

	sweepLog("Sweep complete: %d combinations evaluated", len(results))
	return results, nil
}

// runCombination pushes one combination's weights, runs its tournament and
// parses the final status line.
func (s *Session) runCombination(ctx context.Context, plan Plan, combo Combination) (Result, error) {
	if _, err := s.codec.WriteMerged(ctx, combo.Update()); err != nil {
		return Result{}, err
	}

	text, err := RunTournament(ctx, s.engine, plan.Players, plan.Games, s.opts)
	if err != nil {
		return Result{}, err
	}

	summary := ParseSummary(text)
	if !summary.P1AvgShots.Valid() || !summary.P2AvgShots.Valid() {
		sweepLog("WARNING: combination %d: average shots missing from %q", combo.Index+1, text)
	}

	return Result{
		Combination: combo,
		Games:       plan.Games,
		Players:     plan.Players,
		P1AvgShots:  summary.P1AvgShots,
		P2AvgShots:  summary.P2AvgShots,
		P1Wins:      summary.P1Wins,
		P2Wins:      summary.P2Wins,
	}, nil
}
