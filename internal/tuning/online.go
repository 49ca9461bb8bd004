package tuning

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/broadside/internal/monitoring"
)

var onlineLog = monitoring.Tagged("online")

// Online learning defaults.
const (
	DefaultOnlineGames  = 500
	DefaultLearningRate = 0.05
	DefaultReportEvery  = 50
)

// nudge scales and clamps for the four tuned weights.
var onlineAxes = [4]struct {
	name     string
	scale    float64
	min, max float64
}{
	{GlobalAlphaEarly, 0.01, 0.5, 0.9},
	{PlacementHitMultiplier, 0.05, 0.5, 3.0},
	{AdjHitBonus, 0.02, 0.0, 1.0},
	{MCBlendRatio, 0.01, 0.0, 1.0},
}

// OnlineConfig configures a random-walk online learning run.
type OnlineConfig struct {
	// Start seeds the four tuned weights and the player count. Only the
	// first value of each axis is used and Start.Games is ignored.
	Start        Config
	Games        int
	LearningRate float64
	ReportEvery  int
	// Seed makes the walk reproducible.
	Seed uint64
}

// OnlineReport is emitted every ReportEvery games.
type OnlineReport struct {
	Games     int         `json:"games"`
	Weights   Combination `json:"weights"`
	BestScore Metric      `json:"best_score"`
}

// OnlineResult is the outcome of a learning run.
type OnlineResult struct {
	Games     int         `json:"games"`
	Weights   Combination `json:"weights"`
	// BestScore is null until a game produced a parsable summary.
	BestScore Metric `json:"best_score"`
}

// Learn tunes the four sweep weights one game at a time. After each
// single-game tournament every weight is nudged by a random ±1 step scaled by
// the learning rate: forwards when the game's mean shot count beat the best
// seen so far, backwards otherwise. Weights are clamped to their useful ranges
// and merge-written before the next game.
func (s *Session) Learn(ctx context.Context, cfg OnlineConfig, onReport func(OnlineReport)) (OnlineResult, error) {
	// Each axis is checked on its own: only its first value is used, so the
	// size of the cross product does not matter.
	axes, err := cfg.Start.expandAxes()
	if err != nil {
		return OnlineResult{}, err
	}
	players := cfg.Start.players()
	if players < 2 {
		return OnlineResult{}, fmt.Errorf("%w: players must be at least 2, got %d", ErrInvalidConfig, players)
	}
	games := cfg.Games
	if games == 0 {
		games = DefaultOnlineGames
	}
	if games < 0 {
		return OnlineResult{}, fmt.Errorf("%w: games must be positive, got %d", ErrInvalidConfig, games)
	}
	lr := cfg.LearningRate
	if lr == 0 {
		lr = DefaultLearningRate
	}
	every := cfg.ReportEvery
	if every <= 0 {
		every = DefaultReportEvery
	}

	if err := s.acquire(); err != nil {
		return OnlineResult{}, err
	}
	defer s.release()

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	w := [4]float64{axes[0][0], axes[1][0], axes[2][0], axes[3][0]}
	best := NaN()

	current := func(played int) OnlineResult {
		return OnlineResult{
			Games: played,
			Weights: Combination{
				Alpha: w[0], Placement: w[1], Adjacency: w[2], MonteCarlo: w[3],
			},
			BestScore: best,
		}
	}

	if _, err := s.codec.WriteMerged(ctx, current(0).Weights.Update()); err != nil {
		return current(0), err
	}

	for g := 0; g < games; g++ {
		select {
		case <-ctx.Done():
			return current(g), ctx.Err()
		default:
		}

		text, err := RunTournament(ctx, s.engine, players, 1, s.opts)
		if err != nil {
			return current(g), fmt.Errorf("game %d: %w", g+1, err)
		}
		summary := ParseSummary(text)
		score := Result{P1AvgShots: summary.P1AvgShots, P2AvgShots: summary.P2AvgShots}.Score()

		dir := -1.0
		if !math.IsNaN(score) && (!best.Valid() || score < float64(best)) {
			best = Metric(score)
			dir = 1.0
		}
		for i, axis := range onlineAxes {
			sign := 1.0
			if rng.IntN(2) == 0 {
				sign = -1.0
			}
			w[i] = clamp(w[i]+dir*lr*sign*axis.scale, axis.min, axis.max)
		}

		if _, err := s.codec.WriteMerged(ctx, current(g+1).Weights.Update()); err != nil {
			return current(g + 1), err
		}

		if (g+1)%every == 0 {
			rep := current(g + 1)
			onlineLog("After %d games: alpha=%.4f place=%.4f adj=%.4f mc=%.4f bestAvgShots=%.3f",
				rep.Games, w[0], w[1], w[2], w[3], float64(best))
			if onReport != nil {
				onReport(OnlineReport(rep))
			}
		}
	}

	return current(games), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
