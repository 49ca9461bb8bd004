package tuning

import (
	"math"
	"regexp"
	"strconv"
)

var (
	p1AvgPattern  = regexp.MustCompile(`P1 avg shots:\s*([0-9]+\.?[0-9]*)`)
	p2AvgPattern  = regexp.MustCompile(`P2 avg shots:\s*([0-9]+\.?[0-9]*)`)
	p1WinsPattern = regexp.MustCompile(`P1 wins:\s*([0-9]+)`)
	p2WinsPattern = regexp.MustCompile(`P2 wins:\s*([0-9]+)`)
)

// Summary holds the metrics found in a tournament's final status line.
// Each metric is NaN when its label is absent.
type Summary struct {
	P1AvgShots Metric
	P2AvgShots Metric
	P1Wins     Metric
	P2Wins     Metric
}

// ParseSummary extracts per-player metrics from a status line such as
//
//	[Tournament complete] P1 wins: 3 | P2 wins: 2 | P1 avg shots: 42.50 | P2 avg shots: 37.00
//
// Each metric is matched independently, and missing or malformed text
// simply leaves NaN in place.
func ParseSummary(text string) Summary {
	return Summary{
		P1AvgShots: match(p1AvgPattern, text),
		P2AvgShots: match(p2AvgPattern, text),
		P1Wins:     match(p1WinsPattern, text),
		P2Wins:     match(p2WinsPattern, text),
	}
}

func match(re *regexp.Regexp, text string) Metric {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return NaN()
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return NaN()
	}
	return Metric(v)
}

// Metric is a measured value where NaN means "not reported".
// It encodes NaN as JSON null.
type Metric float64

// NaN returns the absent metric.
func NaN() Metric { return Metric(math.NaN()) }

// Valid reports whether the metric holds a number.
func (m Metric) Valid() bool { return !math.IsNaN(float64(m)) }

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid() || math.IsInf(float64(m), 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(m), 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = NaN()
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Metric(v)
	return nil
}
