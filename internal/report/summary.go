package report

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/broadside/internal/tuning"
)

// AxisStat is the marginal score for one value of one axis: the mean and
// standard deviation of every scored combination that used it.
type AxisStat struct {
	Value  float64       `json:"value"`
	Mean   tuning.Metric `json:"mean"`
	StdDev tuning.Metric `json:"stddev"`
	N      int           `json:"n"`
}

// Summary condenses a sweep. Scores are the mean of both players' average
// shot counts; lower is better.
type Summary struct {
	Total  int `json:"total"`
	Scored int `json:"scored"`
	// Best is nil when no combination produced a score.
	Best        *tuning.Result `json:"best,omitempty"`
	MeanScore   tuning.Metric  `json:"mean_score"`
	StdDevScore tuning.Metric  `json:"stddev_score"`

	Alpha      []AxisStat `json:"alpha"`
	Placement  []AxisStat `json:"place"`
	Adjacency  []AxisStat `json:"adj"`
	MonteCarlo []AxisStat `json:"mc"`
}

// Summarize computes overall and per-axis statistics. Combinations without
// a score are counted in Total but otherwise ignored.
func Summarize(results []tuning.Result) Summary {
	s := Summary{Total: len(results)}

	var scores []float64
	bestScore := math.Inf(1)
	for i := range results {
		score := results[i].Score()
		if math.IsNaN(score) {
			continue
		}
		scores = append(scores, score)
		if score < bestScore {
			bestScore = score
			best := results[i]
			s.Best = &best
		}
	}
	s.Scored = len(scores)
	s.MeanScore, s.StdDevScore = meanStdDev(scores)

	s.Alpha = marginal(results, func(c tuning.Combination) float64 { return c.Alpha })
	s.Placement = marginal(results, func(c tuning.Combination) float64 { return c.Placement })
	s.Adjacency = marginal(results, func(c tuning.Combination) float64 { return c.Adjacency })
	s.MonteCarlo = marginal(results, func(c tuning.Combination) float64 { return c.MonteCarlo })
	return s
}

// marginal groups scores by axis value, in order of first appearance.
func marginal(results []tuning.Result, axis func(tuning.Combination) float64) []AxisStat {
	var order []float64
	groups := make(map[float64][]float64)
	for _, r := range results {
		v := axis(r.Combination)
		if _, seen := groups[v]; !seen {
			order = append(order, v)
			groups[v] = nil
		}
		if score := r.Score(); !math.IsNaN(score) {
			groups[v] = append(groups[v], score)
		}
	}

	out := make([]AxisStat, 0, len(order))
	for _, v := range order {
		mean, std := meanStdDev(groups[v])
		out = append(out, AxisStat{Value: v, Mean: mean, StdDev: std, N: len(groups[v])})
	}
	return out
}

// meanStdDev is stat.MeanStdDev with defined results for short samples:
// NaN for none, zero spread for one.
func meanStdDev(x []float64) (tuning.Metric, tuning.Metric) {
	switch len(x) {
	case 0:
		return tuning.NaN(), tuning.NaN()
	case 1:
		return tuning.Metric(x[0]), 0
	}
	mean, std := stat.MeanStdDev(x, nil)
	return tuning.Metric(mean), tuning.Metric(std)
}

// WriteText prints the summary for a terminal.
func (s Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Combinations: %d (%d scored)\n", s.Total, s.Scored); err != nil {
		return err
	}
	if s.Best == nil {
		_, err := fmt.Fprintln(w, "Best: none (no parsable results)")
		return err
	}
	b := s.Best
	fmt.Fprintf(w, "Best: alpha=%.3f place=%.3f adj=%.3f mc=%.3f score=%.2f (p1=%s p2=%s)\n",
		b.Alpha, b.Placement, b.Adjacency, b.MonteCarlo, b.Score(),
		formatMetric(b.P1AvgShots, 2), formatMetric(b.P2AvgShots, 2))
	fmt.Fprintf(w, "Score: mean=%.2f stddev=%.2f\n", float64(s.MeanScore), float64(s.StdDevScore))

	for _, axis := range []struct {
		name  string
		stats []AxisStat
	}{
		{"alpha", s.Alpha}, {"place", s.Placement}, {"adj", s.Adjacency}, {"mc", s.MonteCarlo},
	} {
		if len(axis.stats) < 2 {
			continue
		}
		fmt.Fprintf(w, "  %s:", axis.name)
		for _, st := range axis.stats {
			fmt.Fprintf(w, " %g=%s±%s", st.Value, formatMetric(st.Mean, 2), formatMetric(st.StdDev, 2))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
