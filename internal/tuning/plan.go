package tuning

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig reports a sweep configuration that cannot run.
var ErrInvalidConfig = errors.New("invalid sweep config")

// MaxCombinations caps the size of one sweep.
const MaxCombinations = 10000

// Config is a sweep request. Each axis is a range spec understood by Expand.
type Config struct {
	Alpha      string `json:"alpha,omitempty"`
	Placement  string `json:"place,omitempty"`
	Adjacency  string `json:"adj,omitempty"`
	MonteCarlo string `json:"mc,omitempty"`
	Games      int    `json:"games"`
	// Players defaults to DefaultPlayers when zero.
	Players int `json:"players,omitempty"`
}

// Plan is a validated, fully expanded sweep.
type Plan struct {
	Alpha      []float64 `json:"alpha"`
	Placement  []float64 `json:"place"`
	Adjacency  []float64 `json:"adj"`
	MonteCarlo []float64 `json:"mc"`
	Games      int       `json:"games"`
	Players    int       `json:"players"`

	// first is the global index of this plan's first combination when the
	// plan is a shard of a larger one.
	first int
}

// Plan expands and validates the config.
func (c Config) Plan() (Plan, error) {
	values, err := c.expandAxes()
	if err != nil {
		return Plan{}, err
	}
	p := Plan{
		Alpha:      values[0],
		Placement:  values[1],
		Adjacency:  values[2],
		MonteCarlo: values[3],
		Games:      c.Games,
		Players:    c.players(),
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// expandAxes expands each axis on its own, in alpha, place, adj, mc order.
func (c Config) expandAxes() ([4][]float64, error) {
	axes := []struct {
		name string
		spec string
		def  AxisDefault
	}{
		{"alpha", c.Alpha, DefaultAlpha},
		{"place", c.Placement, DefaultPlacement},
		{"adj", c.Adjacency, DefaultAdjacency},
		{"mc", c.MonteCarlo, DefaultMonteCarlo},
	}

	var values [4][]float64
	for i, axis := range axes {
		v, err := Expand(axis.spec, axis.def)
		if err != nil {
			return values, fmt.Errorf("%s: %w", axis.name, err)
		}
		values[i] = v
	}
	return values, nil
}

func (c Config) players() int {
	if c.Players == 0 {
		return DefaultPlayers
	}
	return c.Players
}

// Validate checks axis cardinalities and counts.
func (p Plan) Validate() error {
	for _, axis := range []struct {
		name   string
		values []float64
	}{
		{"alpha", p.Alpha}, {"place", p.Placement}, {"adj", p.Adjacency}, {"mc", p.MonteCarlo},
	} {
		if len(axis.values) == 0 {
			return fmt.Errorf("%w: axis %s has no values", ErrInvalidConfig, axis.name)
		}
	}
	if p.Games <= 0 {
		return fmt.Errorf("%w: games must be positive, got %d", ErrInvalidConfig, p.Games)
	}
	if p.Players < 2 {
		return fmt.Errorf("%w: players must be at least 2, got %d", ErrInvalidConfig, p.Players)
	}
	if total := p.Total(); total > MaxCombinations {
		return fmt.Errorf("%w: %d combinations exceeds limit of %d", ErrInvalidConfig, total, MaxCombinations)
	}
	return nil
}

// Total is the number of combinations in the plan.
func (p Plan) Total() int {
	return len(p.Alpha) * len(p.Placement) * len(p.Adjacency) * len(p.MonteCarlo)
}

// Combination is one point of the sweep grid.
type Combination struct {
	// Index is the position in enumeration order across the whole sweep.
	Index      int     `json:"index"`
	Alpha      float64 `json:"alpha"`
	Placement  float64 `json:"place"`
	Adjacency  float64 `json:"adj"`
	MonteCarlo float64 `json:"mc"`
}

// Update maps the combination onto the weights it tunes.
func (c Combination) Update() WeightUpdate {
	return WeightUpdate{
		GlobalAlphaEarly:       c.Alpha,
		PlacementHitMultiplier: c.Placement,
		AdjHitBonus:            c.Adjacency,
		MCBlendRatio:           c.MonteCarlo,
	}
}

// Combinations enumerates the grid with alpha outermost and Monte Carlo
// blend innermost. Callers rely on this order matching result order.
func (p Plan) Combinations() []Combination {
	out := make([]Combination, 0, p.Total())
	idx := p.first
	for _, alpha := range p.Alpha {
		for _, place := range p.Placement {
			for _, adj := range p.Adjacency {
				for _, mc := range p.MonteCarlo {
					out = append(out, Combination{
						Index:      idx,
						Alpha:      alpha,
						Placement:  place,
						Adjacency:  adj,
						MonteCarlo: mc,
					})
					idx++
				}
			}
		}
	}
	return out
}

// Result is the outcome of one combination's tournament.
type Result struct {
	Combination
	Games      int    `json:"games"`
	Players    int    `json:"players"`
	P1AvgShots Metric `json:"p1AvgShots"`
	P2AvgShots Metric `json:"p2AvgShots"`
	P1Wins     Metric `json:"p1Wins"`
	P2Wins     Metric `json:"p2Wins"`
}

// Score is the mean of the reported average shot counts, NaN if neither
// player's figure was parsed. Lower is better.
func (r Result) Score() float64 {
	var sum float64
	var n int
	for _, m := range []Metric{r.P1AvgShots, r.P2AvgShots} {
		if m.Valid() {
			sum += float64(m)
			n++
		}
	}
	if n == 0 {
		return float64(NaN())
	}
	return sum / float64(n)
}

// Progress is emitted after every completed combination.
type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Last      Result `json:"last"`
}

// AbortError reports a sweep that stopped before exhausting its plan.
// The results gathered before the failure are returned alongside it.
type AbortError struct {
	Completed int
	Total     int
	Err       error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("sweep aborted after %d/%d combinations: %v", e.Completed, e.Total, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }
