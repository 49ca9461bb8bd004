package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/broadside/internal/config"
	"github.com/banshee-data/broadside/internal/engine"
	"github.com/banshee-data/broadside/internal/monitoring"
	"github.com/banshee-data/broadside/internal/report"
	"github.com/banshee-data/broadside/internal/tuning"
)

var errNoEngine = errors.New("-engine is required (or set \"engine\" in the -config file)")

// openSessions connects n sessions to the configured engine.
func openSessions(ctx context.Context, cfg *config.TunerConfig, n int) ([]*tuning.Session, func(), error) {
	spec := cfg.GetEngine()
	if spec == "" {
		return nil, nil, errNoEngine
	}
	conns, err := engine.OpenN(ctx, spec, n, engine.Options{})
	if err != nil {
		return nil, nil, err
	}
	sessions := make([]*tuning.Session, len(conns))
	for i, c := range conns {
		sessions[i] = tuning.NewSession(c, cfg.TournamentOptions())
	}
	closeAll := func() {
		if err := engine.CloseAll(conns); err != nil {
			monitoring.Logf("WARNING: closing engine: %v", err)
		}
	}
	return sessions, closeAll, nil
}

func runSweep(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	b := newFlagBinder("sweep", stderr)
	b.engineFlags()
	b.axisFlags()
	b.Int("games", config.DefaultGames, "Games per combination",
		func(c *config.TunerConfig, v *int) { c.Games = v })
	b.Int("shards", 1, "Number of engine connections to sweep with in parallel",
		func(c *config.TunerConfig, v *int) { c.Shards = v })
	output := b.fs.String("output", "", "CSV output file (default stdout)")
	chartPath := b.fs.String("chart", "", "Write an HTML chart of the results to this file")
	plotPath := b.fs.String("plot", "", "Write a PNG plot of the results to this file")
	quiet := b.fs.Bool("quiet", false, "Skip the summary on stderr")

	cfg, err := b.parse(args)
	if err != nil {
		return err
	}
	plan, err := cfg.SweepConfig().Plan()
	if err != nil {
		return err
	}

	out := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	shards := cfg.GetShards()
	if shards > len(plan.Alpha) {
		shards = len(plan.Alpha)
	}
	sessions, closeAll, err := openSessions(ctx, cfg, shards)
	if err != nil {
		return err
	}
	defer closeAll()

	csvw := report.NewCSVWriter(out)
	if err := csvw.WriteHeader(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	var results []tuning.Result
	var sweepErr error
	if len(sessions) == 1 {
		// Rows stream in enumeration order as each tournament finishes.
		var writeErr error
		results, sweepErr = sessions[0].SweepPlan(ctx, plan, func(p tuning.Progress) {
			if writeErr == nil {
				writeErr = csvw.WriteResult(p.Last)
			}
		})
		if writeErr != nil {
			return fmt.Errorf("writing csv: %w", writeErr)
		}
	} else {
		// Shards finish out of order, so rows are written once merged.
		results, sweepErr = tuning.SweepShards(ctx, sessions, plan, nil)
		for _, r := range results {
			if err := csvw.WriteResult(r); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
		}
	}

	if !*quiet {
		if err := report.Summarize(results).WriteText(stderr); err != nil {
			return err
		}
	}
	if *chartPath != "" {
		if err := writeChart(*chartPath, plan, results); err != nil {
			return err
		}
	}
	if *plotPath != "" {
		if err := report.SavePlot(*plotPath, results); err != nil && !errors.Is(err, report.ErrNoData) {
			return err
		}
	}
	return sweepErr
}

func writeChart(path string, plan tuning.Plan, results []tuning.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart: %w", err)
	}
	subtitle := fmt.Sprintf("%d/%d combinations, %d games each, %d players", len(results), plan.Total(), plan.Games, plan.Players)
	if err := report.WriteChart(f, results, report.ChartOptions{Subtitle: subtitle}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
