// Package slots maps named weights onto the engine's native weight buffer, a
// flat array of float32 slots in a fixed order. Pack and Unpack are the only
// code that knows that order; every other layer works with named
// tuning.WeightVector fields.
package slots

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/broadside/internal/tuning"
)

// N is the number of float32 slots in the engine's weight buffer.
const N = 16

// slotOrder is the engine ABI order.
var slotOrder = [N]string{
	tuning.GlobalAlphaEarly,
	tuning.GlobalAlphaLate,
	tuning.LiveDecayFactor,
	tuning.TacticalLiveBonus,
	tuning.ParityBonus,
	tuning.ParityPenalty,
	tuning.AdjHitBonus,
	tuning.AdjLineBonus,
	tuning.DiagHitBonus,
	tuning.FitScoreNearAdjFactor,
	tuning.FitScoreBaseFactor,
	tuning.NoFitPenalty,
	tuning.PlacementHitMultiplier,
	tuning.MCIterations,
	tuning.MCBlendRatio,
	tuning.MCBlendThresholdCells,
}

// Pack lays w out in slot order.
func Pack(w tuning.WeightVector) [N]float32 {
	var buf [N]float32
	for i, name := range slotOrder {
		v, _ := w.Get(name)
		buf[i] = float32(v)
	}
	return buf
}

// Unpack reads a slot buffer into a named vector.
func Unpack(buf [N]float32) tuning.WeightVector {
	var w tuning.WeightVector
	for i, name := range slotOrder {
		w.Set(name, float64(buf[i]))
	}
	return w
}

// Format renders a buffer as space separated decimal fields.
func Format(buf [N]float32) string {
	fields := make([]string, N)
	for i, v := range buf {
		fields[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(fields, " ")
}

// Parse is the inverse of Format.
func Parse(fields []string) ([N]float32, error) {
	var buf [N]float32
	if len(fields) != N {
		return buf, fmt.Errorf("expected %d weight slots, got %d", N, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return buf, fmt.Errorf("slot %d: %w", i, err)
		}
		buf[i] = float32(v)
	}
	return buf, nil
}

// PackSlice and UnpackSlice are Pack and Unpack for JSON transports that carry
// the buffer as a list.
func PackSlice(w tuning.WeightVector) []float32 {
	buf := Pack(w)
	return buf[:]
}

// UnpackSlice rejects lists of the wrong length.
func UnpackSlice(s []float32) (tuning.WeightVector, error) {
	if len(s) != N {
		return tuning.WeightVector{}, fmt.Errorf("expected %d weight slots, got %d", N, len(s))
	}
	var buf [N]float32
	copy(buf[:], s)
	return Unpack(buf), nil
}
