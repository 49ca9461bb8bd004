package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/broadside/internal/tuning"
)

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChart(&buf, sampleResults(), ChartOptions{Subtitle: "20 games per combination"})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<title>Weight sweep</title>")
	assert.Contains(t, html, "20 games per combination")
	assert.Contains(t, html, "P1 avg shots")
	assert.Contains(t, html, "P2 avg shots")
	assert.Contains(t, html, "#3 a=0.75 p=1 adj=0.2 mc=0")
	// Marginal charts for the two swept axes only.
	assert.Contains(t, html, "alphaEarly")
	assert.Contains(t, html, "placementHitMultiplier")
	assert.NotContains(t, html, "mcBlendRatio")
}

func TestWriteChartEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, nil, ChartOptions{Title: "Nothing yet"}))
	assert.Contains(t, buf.String(), "Nothing yet")
}

func TestWritePlot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlot(&buf, sampleResults()))
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), buf.Bytes()[:8])
}

func TestWritePlotNoData(t *testing.T) {
	var buf bytes.Buffer
	results := []tuning.Result{result(0, 0.7, 1, 0.2, 0, tuning.NaN(), tuning.NaN())}
	assert.ErrorIs(t, WritePlot(&buf, results), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestSavePlotAddsExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SavePlot(filepath.Join(dir, "sweep"), sampleResults()))

	data, err := os.ReadFile(filepath.Join(dir, "sweep.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}
