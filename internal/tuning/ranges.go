// Package tuning drives heuristic weight sweeps against an external
// battleship engine: range expansion, weight merging, tournament polling,
// summary parsing and the sweep controller itself.
package tuning

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidRange reports a malformed range string.
var ErrInvalidRange = errors.New("invalid range")

const (
	// rangeEpsilon admits floating-point rounding at the closing boundary.
	rangeEpsilon = 1e-9

	// maxRangeValues caps a single axis expansion.
	maxRangeValues = 10000
)

// AxisDefault is the fallback for an axis whose range spec is empty.
// An empty spec expands to Value alone; Step and End describe the full
// default sweep rendered by Range.
type AxisDefault struct {
	Value float64
	Step  float64
	End   float64
}

// Range renders the default as a "start:step:end" spec.
func (d AxisDefault) Range() string {
	return formatFloat(d.Value) + ":" + formatFloat(d.Step) + ":" + formatFloat(d.End)
}

// Axis defaults for the four tuned weights.
var (
	DefaultAlpha      = AxisDefault{Value: 0.75, Step: 0.05, End: 0.85}
	DefaultPlacement  = AxisDefault{Value: 1.0, Step: 0.5, End: 2.0}
	DefaultAdjacency  = AxisDefault{Value: 0.2, Step: 0.2, End: 0.6}
	DefaultMonteCarlo = AxisDefault{Value: 0.0, Step: 0.5, End: 0.5}
)

// Expand turns a range spec into an ordered list of values.
//
// Accepted forms are "" (the default value), a single literal, or
// "start:step:end", which is inclusive of end within rangeEpsilon. The
// fields of a range must have at most 6 decimal places, and every generated
// value is rounded to 6 decimal places.
func Expand(spec string, def AxisDefault) ([]float64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return []float64{def.Value}, nil
	}

	if !strings.Contains(spec, ":") {
		v, err := parseField(spec)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidRange, spec, err)
		}
		return []float64{v}, nil
	}

	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w %q: expected start:step:end", ErrInvalidRange, spec)
	}

	var fields [3]float64
	for i, name := range []string{"start", "step", "end"} {
		v, err := parseField(parts[i])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %s: %v", ErrInvalidRange, spec, name, err)
		}
		if math.Abs(v-round6(v)) > rangeEpsilon {
			return nil, fmt.Errorf("%w %q: %s %g is finer than 6 decimal places", ErrInvalidRange, spec, name, v)
		}
		fields[i] = v
	}
	start, step, end := fields[0], fields[1], fields[2]

	if round6(step) == 0 {
		return nil, fmt.Errorf("%w %q: step must be at least 0.000001 in magnitude", ErrInvalidRange, spec)
	}
	span := end - start
	if (step > 0 && span < -rangeEpsilon) || (step < 0 && span > rangeEpsilon) {
		return nil, fmt.Errorf("%w %q: step %g never reaches %g from %g", ErrInvalidRange, spec, step, end, start)
	}

	count := math.Floor(span/step+rangeEpsilon) + 1
	if count > maxRangeValues {
		return nil, fmt.Errorf("%w %q: %.0f values exceeds limit of %d", ErrInvalidRange, spec, count, maxRangeValues)
	}

	// All three fields sit on the 6-decimal grid, so rounding only strips
	// float drift and never merges neighbours or passes end.
	n := int(count)
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, round6(start+float64(i)*step))
	}
	return out, nil
}

func parseField(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
