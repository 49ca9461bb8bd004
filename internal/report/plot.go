package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/broadside/internal/tuning"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no scored results to plot")

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// newPlot draws each player's average shots against combination index.
// Combinations without metrics are skipped.
func newPlot(results []tuning.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Average shots per combination"
	p.X.Label.Text = "Combination"
	p.Y.Label.Text = "Avg shots"
	p.Legend.Top = true

	series := []struct {
		name   string
		metric func(tuning.Result) tuning.Metric
	}{
		{"P1", func(r tuning.Result) tuning.Metric { return r.P1AvgShots }},
		{"P2", func(r tuning.Result) tuning.Metric { return r.P2AvgShots }},
	}

	var added int
	for i, s := range series {
		pts := make(plotter.XYs, 0, len(results))
		for _, r := range results {
			if m := s.metric(r); m.Valid() {
				pts = append(pts, plotter.XY{X: float64(r.Index + 1), Y: float64(m)})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
		added++
	}
	if added == 0 {
		return nil, ErrNoData
	}
	return p, nil
}

// WritePlot renders a PNG to w.
func WritePlot(w io.Writer, results []tuning.Result) error {
	p, err := newPlot(results)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("rendering plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePlot writes the plot to path. The format follows the file extension.
func SavePlot(path string, results []tuning.Result) error {
	p, err := newPlot(results)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving plot to %s: %w", path, err)
	}
	return nil
}
