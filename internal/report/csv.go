// Package report renders sweep results as CSV, text summaries, HTML charts
// and PNG plots.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/banshee-data/broadside/internal/tuning"
)

// Header is the CSV column order.
var Header = []string{
	"alphaEarly",
	"placementHitMultiplier",
	"adjHitBonus",
	"mcBlendRatio",
	"games",
	"players",
	"p1_avg_shots",
	"p2_avg_shots",
	"p1_wins",
	"p2_wins",
}

// CSVWriter writes one row per combination. Rows are flushed as they are
// written so an interrupted sweep still leaves a readable file.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the column names.
func (c *CSVWriter) WriteHeader() error {
	if err := c.w.Write(Header); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// WriteResult writes and flushes one row.
func (c *CSVWriter) WriteResult(r tuning.Result) error {
	if err := c.w.Write(Row(r)); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// WriteAll writes the header followed by every result.
func (c *CSVWriter) WriteAll(results []tuning.Result) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := c.WriteResult(r); err != nil {
			return err
		}
	}
	return nil
}

// Row formats a result in Header order. Missing metrics are written as NaN.
func Row(r tuning.Result) []string {
	return []string{
		formatFloat(r.Alpha),
		formatFloat(r.Placement),
		formatFloat(r.Adjacency),
		formatFloat(r.MonteCarlo),
		strconv.Itoa(r.Games),
		strconv.Itoa(r.Players),
		formatMetric(r.P1AvgShots, 2),
		formatMetric(r.P2AvgShots, 2),
		formatMetric(r.P1Wins, 0),
		formatMetric(r.P2Wins, 0),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMetric(m tuning.Metric, prec int) string {
	if !m.Valid() {
		return "NaN"
	}
	return strconv.FormatFloat(float64(m), 'f', prec, 64)
}
