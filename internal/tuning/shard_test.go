package tuning_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/broadside/internal/engine/enginetest"
	"github.com/banshee-data/broadside/internal/testutil"
	"github.com/banshee-data/broadside/internal/tuning"
)

func mustPlan(t *testing.T, cfg tuning.Config) tuning.Plan {
	t.Helper()
	plan, err := cfg.Plan()
	require.NoError(t, err)
	return plan
}

func TestPlanSplit(t *testing.T) {
	plan := mustPlan(t, tuning.Config{Alpha: "0.5:0.1:0.9", Placement: "1:1:2", Games: 1})

	tests := []struct {
		n     int
		sizes []int
	}{
		{1, []int{5}},
		{2, []int{3, 2}},
		{3, []int{2, 2, 1}},
		{5, []int{1, 1, 1, 1, 1}},
		{8, []int{1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		shards := plan.Split(tt.n)
		var sizes []int
		var combos []tuning.Combination
		for _, s := range shards {
			sizes = append(sizes, len(s.Alpha))
			combos = append(combos, s.Combinations()...)
		}
		assert.Equal(t, tt.sizes, sizes, "n=%d", tt.n)
		if diff := cmp.Diff(plan.Combinations(), combos); diff != "" {
			t.Errorf("Split(%d) combinations mismatch (-want +got):\n%s", tt.n, diff)
		}
	}
}

func sessions(engines ...*enginetest.Engine) []*tuning.Session {
	out := make([]*tuning.Session, len(engines))
	for i, eng := range engines {
		out[i] = tuning.NewSession(eng, tuning.TournamentOptions{})
	}
	return out
}

func TestSweepShardsMatchesSingleSession(t *testing.T) {
	testutil.CaptureLogs(t)
	cfg := tuning.Config{Alpha: "0.5:0.1:0.9", Placement: "1:0.5:2", Adjacency: "0.2:0.2:0.4", Games: 2}
	plan := mustPlan(t, cfg)

	single, err := tuning.NewSession(enginetest.New(), tuning.TournamentOptions{}).SweepPlan(context.Background(), plan, nil)
	require.NoError(t, err)

	engines := []*enginetest.Engine{enginetest.New(), enginetest.New(), enginetest.New()}
	var completed []int
	sharded, err := tuning.SweepShards(context.Background(), sessions(engines...), plan, func(p tuning.Progress) {
		completed = append(completed, p.Completed)
		assert.Equal(t, plan.Total(), p.Total)
	})
	require.NoError(t, err)

	assert.Equal(t, single, sharded)
	assert.True(t, sort.IntsAreSorted(completed))
	assert.Len(t, completed, plan.Total())

	// Alpha has 5 values: shards of 2, 2 and 1 alpha values.
	inner := 3 * 2
	assert.Len(t, engines[0].Tournaments(), 2*inner)
	assert.Len(t, engines[1].Tournaments(), 2*inner)
	assert.Len(t, engines[2].Tournaments(), 1*inner)
}

func TestSweepShardsFailure(t *testing.T) {
	testutil.CaptureLogs(t)
	boom := errors.New("engine crashed")
	plan := mustPlan(t, tuning.Config{Alpha: "0.5:0.1:0.8", Placement: "1:0.5:2", Games: 1})

	bad := enginetest.New()
	bad.FailFunc = enginetest.FailOn(enginetest.MethodStartTournament, 2, boom)

	results, err := tuning.SweepShards(context.Background(), sessions(enginetest.New(), bad), plan, nil)
	assert.ErrorIs(t, err, boom)

	var abort *tuning.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, plan.Total(), abort.Total)
	assert.Equal(t, len(results), abort.Completed)
	assert.Less(t, len(results), plan.Total())
	assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool { return results[i].Index < results[j].Index }))

	// The failing shard finished exactly one combination.
	var fromBad int
	for _, r := range results {
		if r.Index >= 6 {
			fromBad++
		}
	}
	assert.Equal(t, 1, fromBad)
}

func TestSweepShardsNeedsSessions(t *testing.T) {
	plan := mustPlan(t, tuning.Config{Games: 1})
	_, err := tuning.SweepShards(context.Background(), nil, plan, nil)
	assert.ErrorIs(t, err, tuning.ErrInvalidConfig)
}
