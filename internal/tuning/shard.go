package tuning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Split cuts the plan into at most n shards along the alpha axis. Shards are
// contiguous, so concatenating their combinations reproduces the full
// enumeration, and every combination keeps its global Index.
func (p Plan) Split(n int) []Plan {
	if n <= 1 || len(p.Alpha) <= 1 {
		return []Plan{p}
	}
	if n > len(p.Alpha) {
		n = len(p.Alpha)
	}

	inner := len(p.Placement) * len(p.Adjacency) * len(p.MonteCarlo)
	shards := make([]Plan, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		// Spread the remainder over the first shards.
		size := len(p.Alpha) / n
		if i < len(p.Alpha)%n {
			size++
		}
		shard := p
		shard.Alpha = p.Alpha[start : start+size]
		shard.first = p.first + start*inner
		shards = append(shards, shard)
		start += size
	}
	return shards
}

// SweepShards splits plan across sessions and sweeps the shards concurrently,
// one tournament at a time per session.
//
// onProgress calls are serialised; Completed counts across all shards while
// Last is in enumeration order only within its own shard. The merged results
// are sorted by Index, matching a single-session sweep. When any shard fails
// the others are cancelled and an *AbortError is returned together with every
// result completed so far.
func SweepShards(ctx context.Context, sessions []*Session, plan Plan, onProgress func(Progress)) ([]Result, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: no engine sessions", ErrInvalidConfig)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	shards := plan.Split(len(sessions))
	total := plan.Total()
	shardResults := make([][]Result, len(shards))

	var mu sync.Mutex
	completed := 0
	report := func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if onProgress != nil {
			onProgress(Progress{Completed: completed, Total: total, Last: p.Last})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			sweepLog("Shard %d/%d: %d combinations from index %d", i+1, len(shards), shard.Total(), shard.first)
			res, err := sessions[i].SweepPlan(gctx, shard, report)
			shardResults[i] = res
			return err
		})
	}
	err := g.Wait()

	var merged []Result
	for _, res := range shardResults {
		merged = append(merged, res...)
	}
	sort.Slice(merged, func(a, b int) bool { return merged[a].Index < merged[b].Index })

	if err != nil {
		var abort *AbortError
		if errors.As(err, &abort) {
			err = abort.Err
		}
		return merged, &AbortError{Completed: len(merged), Total: total, Err: err}
	}
	return merged, nil
}
