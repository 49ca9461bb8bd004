package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/broadside/internal/tuning"
)

// ChartOptions controls the rendered HTML page.
type ChartOptions struct {
	Title    string
	Subtitle string
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
}

// WriteChart renders an HTML page with a bar chart of both players' average
// shots per combination and a line chart of each swept axis's marginal score.
// Combinations without metrics appear as gaps.
func WriteChart(w io.Writer, results []tuning.Result, o ChartOptions) error {
	if o.Title == "" {
		o.Title = "Weight sweep"
	}
	initOpts := opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "520px", AssetsHost: o.AssetsHost}

	labels := make([]string, len(results))
	p1 := make([]opts.BarData, len(results))
	p2 := make([]opts.BarData, len(results))
	for i, r := range results {
		labels[i] = fmt.Sprintf("#%d a=%g p=%g adj=%g mc=%g", r.Index+1, r.Alpha, r.Placement, r.Adjacency, r.MonteCarlo)
		p1[i] = opts.BarData{Value: chartValue(r.P1AvgShots)}
		p2[i] = opts.BarData{Value: chartValue(r.P2AvgShots)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "avg shots"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	bar.SetXAxis(labels).
		AddSeries("P1 avg shots", p1).
		AddSeries("P2 avg shots", p2)

	page := components.NewPage()
	page.PageTitle = o.Title
	if o.AssetsHost != "" {
		page.AssetsHost = o.AssetsHost
	}
	page.AddCharts(bar)

	summary := Summarize(results)
	for _, axis := range []struct {
		name  string
		stats []AxisStat
	}{
		{"alphaEarly", summary.Alpha},
		{"placementHitMultiplier", summary.Placement},
		{"adjHitBonus", summary.Adjacency},
		{"mcBlendRatio", summary.MonteCarlo},
	} {
		if len(axis.stats) < 2 {
			continue
		}
		page.AddCharts(marginalChart(axis.name, axis.stats, initOpts))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func marginalChart(name string, stats []AxisStat, initOpts opts.Initialization) *charts.Line {
	initOpts.Height = "360px"
	x := make([]string, len(stats))
	mean := make([]opts.LineData, len(stats))
	for i, st := range stats {
		x[i] = fmt.Sprintf("%g", st.Value)
		mean[i] = opts.LineData{Value: chartValue(st.Mean)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: "mean score per value (lower is better)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("mean score", mean,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return line
}

// chartValue maps a missing metric to "-", which echarts draws as a gap.
func chartValue(m tuning.Metric) interface{} {
	if !m.Valid() {
		return "-"
	}
	return float64(m)
}
