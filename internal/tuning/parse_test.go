package tuning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummary(t *testing.T) {
	testCases := []struct {
		name   string
		text   string
		p1, p2 float64
		nan1   bool
		nan2   bool
	}{
		{name: "both present", text: "Tournament done. P1 avg shots: 42.5 P2 avg shots: 37.0", p1: 42.5, p2: 37.0},
		{name: "only p2", text: "P2 avg shots: 50.0", nan1: true, p2: 50.0},
		{name: "empty", text: "", nan1: true, nan2: true},
		{name: "integer without fraction", text: "P1 avg shots: 41 | P2 avg shots:39", p1: 41, p2: 39},
		{name: "trailing dot", text: "P1 avg shots: 41. P2 avg shots: 39.", p1: 41, p2: 39},
		{name: "negative is not a match", text: "P1 avg shots: -4", nan1: true, nan2: true},
		{name: "garbage", text: "[New game started: #12]", nan1: true, nan2: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSummary(tc.text)
			if tc.nan1 {
				assert.False(t, got.P1AvgShots.Valid(), "p1 = %v", got.P1AvgShots)
			} else {
				assert.InDelta(t, tc.p1, float64(got.P1AvgShots), 1e-9)
			}
			if tc.nan2 {
				assert.False(t, got.P2AvgShots.Valid(), "p2 = %v", got.P2AvgShots)
			} else {
				assert.InDelta(t, tc.p2, float64(got.P2AvgShots), 1e-9)
			}
		})
	}
}

func TestParseSummaryTournamentLine(t *testing.T) {
	got := ParseSummary("[Tournament complete] P1 wins: 312 | P2 wins: 188 | P1 avg shots: 42.50 | P2 avg shots: 37.00")

	assert.Equal(t, Metric(312), got.P1Wins)
	assert.Equal(t, Metric(188), got.P2Wins)
	assert.Equal(t, Metric(42.5), got.P1AvgShots)
	assert.Equal(t, Metric(37), got.P2AvgShots)
}

func TestMetricJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}{A: 42.5, B: NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42.5,"b":null}`, string(data))

	var back struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Metric(42.5), back.A)
	assert.False(t, back.B.Valid())
}
