package tuning

import (
	"context"
	"fmt"
	"sync"
)

// Codec reads and merge-writes an engine's weight vector.
type Codec struct {
	mu     sync.Mutex
	engine Engine
}

// NewCodec creates a codec over eng.
func NewCodec(eng Engine) *Codec {
	return &Codec{engine: eng}
}

// ReadCurrent returns the engine's active weights.
func (c *Codec) ReadCurrent(ctx context.Context) (WeightVector, error) {
	w, err := c.engine.CurrentWeights(ctx)
	if err != nil {
		return WeightVector{}, fmt.Errorf("reading weights: %w", err)
	}
	return w, nil
}

// WriteMerged reads the current vector, overwrites only the fields named in
// u and writes the whole vector back in one call. The engine never sees a
// partially merged vector, and merges through the same codec do not
// interleave. It returns the vector that was written.
func (c *Codec) WriteMerged(ctx context.Context, u WeightUpdate) (WeightVector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.ReadCurrent(ctx)
	if err != nil {
		return WeightVector{}, err
	}
	merged := u.Apply(current)
	if err := c.engine.ConfigureWeights(ctx, merged); err != nil {
		return WeightVector{}, fmt.Errorf("writing weights: %w", err)
	}
	return merged, nil
}
