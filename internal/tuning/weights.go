package tuning

import "sort"

// Names of the heuristic weights, as used in JSON and partial updates.
const (
	GlobalAlphaEarly       = "globalAlphaEarly"
	GlobalAlphaLate        = "globalAlphaLate"
	LiveDecayFactor        = "liveDecayFactor"
	TacticalLiveBonus      = "tacticalLiveBonus"
	ParityBonus            = "parityBonus"
	ParityPenalty          = "parityPenalty"
	AdjHitBonus            = "adjHitBonus"
	AdjLineBonus           = "adjLineBonus"
	DiagHitBonus           = "diagHitBonus"
	FitScoreNearAdjFactor  = "fitScoreNearAdjFactor"
	FitScoreBaseFactor     = "fitScoreBaseFactor"
	NoFitPenalty           = "noFitPenalty"
	PlacementHitMultiplier = "placementHitMultiplier"
	MCIterations           = "mcIterations"
	MCBlendRatio           = "mcBlendRatio"
	MCBlendThresholdCells  = "mcBlendThresholdCells"
)

// WeightNames lists every recognised weight name.
var WeightNames = []string{
	GlobalAlphaEarly, GlobalAlphaLate, LiveDecayFactor, TacticalLiveBonus,
	ParityBonus, ParityPenalty, AdjHitBonus, AdjLineBonus, DiagHitBonus,
	FitScoreNearAdjFactor, FitScoreBaseFactor, NoFitPenalty,
	PlacementHitMultiplier, MCIterations, MCBlendRatio, MCBlendThresholdCells,
}

// WeightVector is the engine's full heuristic configuration.
// MCIterations and MCBlendThresholdCells are integral in the engine but
// travel as floats like every other weight.
type WeightVector struct {
	GlobalAlphaEarly       float64 `json:"globalAlphaEarly"`
	GlobalAlphaLate        float64 `json:"globalAlphaLate"`
	LiveDecayFactor        float64 `json:"liveDecayFactor"`
	TacticalLiveBonus      float64 `json:"tacticalLiveBonus"`
	ParityBonus            float64 `json:"parityBonus"`
	ParityPenalty          float64 `json:"parityPenalty"`
	AdjHitBonus            float64 `json:"adjHitBonus"`
	AdjLineBonus           float64 `json:"adjLineBonus"`
	DiagHitBonus           float64 `json:"diagHitBonus"`
	FitScoreNearAdjFactor  float64 `json:"fitScoreNearAdjFactor"`
	FitScoreBaseFactor     float64 `json:"fitScoreBaseFactor"`
	NoFitPenalty           float64 `json:"noFitPenalty"`
	PlacementHitMultiplier float64 `json:"placementHitMultiplier"`
	MCIterations           float64 `json:"mcIterations"`
	MCBlendRatio           float64 `json:"mcBlendRatio"`
	MCBlendThresholdCells  float64 `json:"mcBlendThresholdCells"`
}

// DefaultWeights returns the engine's factory configuration.
func DefaultWeights() WeightVector {
	return WeightVector{
		GlobalAlphaEarly:       0.75,
		GlobalAlphaLate:        0.55,
		LiveDecayFactor:        0.02,
		TacticalLiveBonus:      0.05,
		ParityBonus:            0.25,
		ParityPenalty:          -0.15,
		AdjHitBonus:            0.4,
		AdjLineBonus:           0.3,
		DiagHitBonus:           0.2,
		FitScoreNearAdjFactor:  0.30,
		FitScoreBaseFactor:     0.20,
		NoFitPenalty:           -0.5,
		PlacementHitMultiplier: 2.0,
		MCIterations:           400,
		MCBlendRatio:           0.5,
		MCBlendThresholdCells:  6,
	}
}

func (w *WeightVector) field(name string) *float64 {
	switch name {
	case GlobalAlphaEarly:
		return &w.GlobalAlphaEarly
	case GlobalAlphaLate:
		return &w.GlobalAlphaLate
	case LiveDecayFactor:
		return &w.LiveDecayFactor
	case TacticalLiveBonus:
		return &w.TacticalLiveBonus
	case ParityBonus:
		return &w.ParityBonus
	case ParityPenalty:
		return &w.ParityPenalty
	case AdjHitBonus:
		return &w.AdjHitBonus
	case AdjLineBonus:
		return &w.AdjLineBonus
	case DiagHitBonus:
		return &w.DiagHitBonus
	case FitScoreNearAdjFactor:
		return &w.FitScoreNearAdjFactor
	case FitScoreBaseFactor:
		return &w.FitScoreBaseFactor
	case NoFitPenalty:
		return &w.NoFitPenalty
	case PlacementHitMultiplier:
		return &w.PlacementHitMultiplier
	case MCIterations:
		return &w.MCIterations
	case MCBlendRatio:
		return &w.MCBlendRatio
	case MCBlendThresholdCells:
		return &w.MCBlendThresholdCells
	}
	return nil
}

// Get returns the named weight and whether the name is recognised.
func (w WeightVector) Get(name string) (float64, bool) {
	p := w.field(name)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set assigns the named weight. It reports false for unknown names.
func (w *WeightVector) Set(name string, v float64) bool {
	p := w.field(name)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// Fields returns every weight keyed by name.
func (w WeightVector) Fields() map[string]float64 {
	out := make(map[string]float64, len(WeightNames))
	for _, name := range WeightNames {
		out[name], _ = w.Get(name)
	}
	return out
}

// WeightsFromFields builds a vector from a complete name->value map.
// It returns the names that were missing, in WeightNames order; missing
// fields are left at zero.
func WeightsFromFields(m map[string]float64) (WeightVector, []string) {
	var w WeightVector
	var missing []string
	for _, name := range WeightNames {
		v, ok := m[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		w.Set(name, v)
	}
	return w, missing
}

// WeightUpdate is a partial weight vector keyed by name.
//
// Keys that are not weight names are ignored rather than rejected so that
// newer callers can talk to older engines.
type WeightUpdate map[string]float64

// Apply returns w with the recognised keys of u overwritten.
func (u WeightUpdate) Apply(w WeightVector) WeightVector {
	for name, v := range u {
		w.Set(name, v)
	}
	return w
}

// Unknown returns the keys of u that are not weight names, sorted.
func (u WeightUpdate) Unknown() []string {
	var out []string
	var probe WeightVector
	for name := range u {
		if probe.field(name) == nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
