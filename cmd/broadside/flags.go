package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/broadside/internal/config"
)

// flagBinder layers command-line flags over an optional -config file.
// Only flags given explicitly override the file.
type flagBinder struct {
	fs         *flag.FlagSet
	configPath *string
	apply      map[string]func(*config.TunerConfig)
}

func newFlagBinder(name string, stderr io.Writer) *flagBinder {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &flagBinder{
		fs:         fs,
		configPath: fs.String("config", "", "Tuner config file ("+config.DefaultConfigPath+" holds the full default sweep)"),
		apply:      make(map[string]func(*config.TunerConfig)),
	}
}

func ptr[T any](v T) *T { return &v }

func (b *flagBinder) String(name, value, usage string, set func(*config.TunerConfig, *string)) {
	p := b.fs.String(name, value, usage)
	b.apply[name] = func(c *config.TunerConfig) { set(c, ptr(*p)) }
}

func (b *flagBinder) Int(name string, value int, usage string, set func(*config.TunerConfig, *int)) {
	p := b.fs.Int(name, value, usage)
	b.apply[name] = func(c *config.TunerConfig) { set(c, ptr(*p)) }
}

func (b *flagBinder) Float64(name string, value float64, usage string, set func(*config.TunerConfig, *float64)) {
	p := b.fs.Float64(name, value, usage)
	b.apply[name] = func(c *config.TunerConfig) { set(c, ptr(*p)) }
}

func (b *flagBinder) Uint64(name string, value uint64, usage string, set func(*config.TunerConfig, *uint64)) {
	p := b.fs.Uint64(name, value, usage)
	b.apply[name] = func(c *config.TunerConfig) { set(c, ptr(*p)) }
}

// Duration stores the flag as a duration string, the form the config file uses.
func (b *flagBinder) Duration(name string, value time.Duration, usage string, set func(*config.TunerConfig, *string)) {
	p := b.fs.Duration(name, value, usage)
	b.apply[name] = func(c *config.TunerConfig) { set(c, ptr(p.String())) }
}

// engineFlags registers the flags shared by every command that opens an engine.
func (b *flagBinder) engineFlags() {
	b.String("engine", "", "Engine spec: exec:<command>, http(s)://<base> or grpc://<host:port>",
		func(c *config.TunerConfig, v *string) { c.Engine = v })
	b.Int("max-ticks", 0, "Tick budget per tournament (0 uses the default)",
		func(c *config.TunerConfig, v *int) { c.MaxTicks = v })
	b.Duration("max-wall", 0, "Wall-clock budget per tournament (0 uses the default)",
		func(c *config.TunerConfig, v *string) { c.MaxWall = v })
	b.Duration("poll-delay", 0, "Delay between ticks",
		func(c *config.TunerConfig, v *string) { c.PollDelay = v })
}

// axisFlags registers the four sweep axes and the player count.
func (b *flagBinder) axisFlags() {
	b.String("alpha", "", "globalAlphaEarly range, start:step:end or a single value",
		func(c *config.TunerConfig, v *string) { c.Alpha = v })
	b.String("place", "", "placementHitMultiplier range",
		func(c *config.TunerConfig, v *string) { c.Placement = v })
	b.String("adj", "", "adjHitBonus range",
		func(c *config.TunerConfig, v *string) { c.Adjacency = v })
	b.String("mc", "", "mcBlendRatio range",
		func(c *config.TunerConfig, v *string) { c.MonteCarlo = v })
	b.Int("players", 0, "Players per tournament (default 3)",
		func(c *config.TunerConfig, v *int) { c.Players = v })
}

// parse parses args, loads -config if given and applies explicit flags on top.
func (b *flagBinder) parse(args []string) (*config.TunerConfig, error) {
	if err := b.fs.Parse(args); err != nil {
		return nil, err
	}
	if b.fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", b.fs.Args())
	}

	cfg := &config.TunerConfig{}
	if *b.configPath != "" {
		loaded, err := config.LoadTunerConfig(*b.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	b.fs.Visit(func(f *flag.Flag) {
		if set, ok := b.apply[f.Name]; ok {
			set(cfg)
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
