package slots

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/broadside/internal/tuning"
)

func TestPackOrder(t *testing.T) {
	buf := Pack(tuning.DefaultWeights())

	want := [N]float32{0.75, 0.55, 0.02, 0.05, 0.25, -0.15, 0.4, 0.3, 0.2, 0.30, 0.20, -0.5, 2.0, 400, 0.5, 6}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("Pack(DefaultWeights()) mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpackPackStable(t *testing.T) {
	// Values that already went through float32 come back unchanged.
	first := Unpack(Pack(tuning.DefaultWeights()))
	second := Unpack(Pack(first))
	assert.Equal(t, first, second)
}

func TestOrderCoversEveryWeight(t *testing.T) {
	seen := make(map[string]bool)
	for _, name := range slotOrder {
		assert.False(t, seen[name], "duplicate slot %s", name)
		seen[name] = true
	}
	for _, name := range tuning.WeightNames {
		assert.True(t, seen[name], "weight %s has no slot", name)
	}
}

func TestFormatParse(t *testing.T) {
	buf := Pack(tuning.DefaultWeights())
	text := Format(buf)
	assert.Equal(t, "0.75 0.55 0.02 0.05 0.25 -0.15 0.4 0.3 0.2 0.3 0.2 -0.5 2 400 0.5 6", text)

	got, err := Parse(strings.Fields(text))
	require.NoError(t, err)
	assert.Equal(t, buf, got)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
	}{
		{"too few", []string{"1", "2"}},
		{"not a number", append(strings.Fields(Format(Pack(tuning.DefaultWeights())))[:N-1], "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.fields)
			assert.Error(t, err)
		})
	}
}

func TestUnpackSlice(t *testing.T) {
	w, err := UnpackSlice(PackSlice(tuning.DefaultWeights()))
	require.NoError(t, err)
	assert.Equal(t, Unpack(Pack(tuning.DefaultWeights())), w)

	_, err = UnpackSlice(make([]float32, N+1))
	assert.Error(t, err)
}
