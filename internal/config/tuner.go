package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/broadside/internal/tuning"
)

// DefaultConfigPath is the path to the canonical tuner defaults file.
const DefaultConfigPath = "config/tuner.defaults.json"

// DefaultGames is the per-combination game count when none is configured.
const DefaultGames = 200

// TunerConfig is the file form of the tuner's settings. Every field is
// optional; the Get* methods supply defaults for anything left out.
type TunerConfig struct {
	// Engine is an engine spec such as "exec:./battleship --tuner" or
	// "grpc://localhost:50051".
	Engine *string `json:"engine,omitempty"`

	// Sweep axes, as range specs ("start:step:end" or a single value)
	Alpha      *string `json:"alpha,omitempty"`
	Placement  *string `json:"place,omitempty"`
	Adjacency  *string `json:"adj,omitempty"`
	MonteCarlo *string `json:"mc,omitempty"`

	Games   *int `json:"games,omitempty"`
	Players *int `json:"players,omitempty"`
	Shards  *int `json:"shards,omitempty"`

	// Tournament budget
	MaxTicks  *int    `json:"max_ticks,omitempty"`
	MaxWall   *string `json:"max_wall,omitempty"`   // duration string like "30m"
	PollDelay *string `json:"poll_delay,omitempty"` // duration string like "5ms"

	// Online learning
	OnlineGames  *int     `json:"online_games,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
	ReportEvery  *int     `json:"report_every,omitempty"`
	Seed         *uint64  `json:"seed,omitempty"`
}

// LoadTunerConfig loads a TunerConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadTunerConfig(path string) (*TunerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TunerConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching parent
// directories so tests can call it from any package. Panics if the file
// cannot be loaded.
func MustLoadDefaultConfig() *TunerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/engine/proc/
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTunerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set.
func (c *TunerConfig) Validate() error {
	axes := []struct {
		name string
		spec *string
		def  tuning.AxisDefault
	}{
		{"alpha", c.Alpha, tuning.DefaultAlpha},
		{"place", c.Placement, tuning.DefaultPlacement},
		{"adj", c.Adjacency, tuning.DefaultAdjacency},
		{"mc", c.MonteCarlo, tuning.DefaultMonteCarlo},
	}
	for _, axis := range axes {
		if axis.spec == nil {
			continue
		}
		if _, err := tuning.Expand(*axis.spec, axis.def); err != nil {
			return fmt.Errorf("%s: %w", axis.name, err)
		}
	}

	if c.Games != nil && *c.Games <= 0 {
		return fmt.Errorf("games must be positive, got %d", *c.Games)
	}
	if c.Players != nil && *c.Players < 2 {
		return fmt.Errorf("players must be at least 2, got %d", *c.Players)
	}
	if c.Shards != nil && *c.Shards < 1 {
		return fmt.Errorf("shards must be at least 1, got %d", *c.Shards)
	}
	if c.MaxTicks != nil && *c.MaxTicks <= 0 {
		return fmt.Errorf("max_ticks must be positive, got %d", *c.MaxTicks)
	}

	for _, d := range []struct {
		name  string
		value *string
	}{
		{"max_wall", c.MaxWall},
		{"poll_delay", c.PollDelay},
	} {
		if d.value == nil || *d.value == "" {
			continue
		}
		v, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, *d.value)
		}
	}

	if c.OnlineGames != nil && *c.OnlineGames <= 0 {
		return fmt.Errorf("online_games must be positive, got %d", *c.OnlineGames)
	}
	if c.LearningRate != nil && *c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %f", *c.LearningRate)
	}
	if c.ReportEvery != nil && *c.ReportEvery < 0 {
		return fmt.Errorf("report_every must be non-negative, got %d", *c.ReportEvery)
	}
	return nil
}

// GetEngine returns the engine spec, or "" when unset.
func (c *TunerConfig) GetEngine() string {
	if c.Engine == nil {
		return ""
	}
	return *c.Engine
}

// GetAlpha returns the alpha range spec; "" selects the axis default.
func (c *TunerConfig) GetAlpha() string { return deref(c.Alpha) }

// GetPlacement returns the placement range spec.
func (c *TunerConfig) GetPlacement() string { return deref(c.Placement) }

// GetAdjacency returns the adjacency range spec.
func (c *TunerConfig) GetAdjacency() string { return deref(c.Adjacency) }

// GetMonteCarlo returns the Monte Carlo blend range spec.
func (c *TunerConfig) GetMonteCarlo() string { return deref(c.MonteCarlo) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetGames returns the games per combination or the default.
func (c *TunerConfig) GetGames() int {
	if c.Games == nil {
		return DefaultGames
	}
	return *c.Games
}

// GetPlayers returns the tournament player count or the default.
func (c *TunerConfig) GetPlayers() int {
	if c.Players == nil {
		return tuning.DefaultPlayers
	}
	return *c.Players
}

// GetShards returns the number of engines to sweep with.
func (c *TunerConfig) GetShards() int {
	if c.Shards == nil {
		return 1
	}
	return *c.Shards
}

// GetMaxTicks returns the tick budget per tournament.
func (c *TunerConfig) GetMaxTicks() int {
	if c.MaxTicks == nil {
		return tuning.DefaultMaxTicks
	}
	return *c.MaxTicks
}

// GetMaxWall parses and returns MaxWall as a time.Duration.
func (c *TunerConfig) GetMaxWall() time.Duration {
	if c.MaxWall == nil || *c.MaxWall == "" {
		return tuning.DefaultMaxWall
	}
	d, err := time.ParseDuration(*c.MaxWall)
	if err != nil {
		return tuning.DefaultMaxWall // default on parse error
	}
	return d
}

// GetPollDelay parses and returns PollDelay as a time.Duration.
func (c *TunerConfig) GetPollDelay() time.Duration {
	if c.PollDelay == nil || *c.PollDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.PollDelay)
	if err != nil {
		return 0
	}
	return d
}

// GetOnlineGames returns the number of online learning games.
func (c *TunerConfig) GetOnlineGames() int {
	if c.OnlineGames == nil {
		return tuning.DefaultOnlineGames
	}
	return *c.OnlineGames
}

// GetLearningRate returns the online learning rate.
func (c *TunerConfig) GetLearningRate() float64 {
	if c.LearningRate == nil {
		return tuning.DefaultLearningRate
	}
	return *c.LearningRate
}

// GetReportEvery returns the online report cadence.
func (c *TunerConfig) GetReportEvery() int {
	if c.ReportEvery == nil {
		return tuning.DefaultReportEvery
	}
	return *c.ReportEvery
}

// GetSeed returns the online learning seed.
func (c *TunerConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// SweepConfig assembles the sweep settings.
func (c *TunerConfig) SweepConfig() tuning.Config {
	return tuning.Config{
		Alpha:      c.GetAlpha(),
		Placement:  c.GetPlacement(),
		Adjacency:  c.GetAdjacency(),
		MonteCarlo: c.GetMonteCarlo(),
		Games:      c.GetGames(),
		Players:    c.GetPlayers(),
	}
}

// TournamentOptions assembles the tournament budget.
func (c *TunerConfig) TournamentOptions() tuning.TournamentOptions {
	return tuning.TournamentOptions{
		MaxTicks:  c.GetMaxTicks(),
		MaxWall:   c.GetMaxWall(),
		PollDelay: c.GetPollDelay(),
	}
}

// OnlineConfig assembles the online learning settings. The sweep axes give
// the starting weights.
func (c *TunerConfig) OnlineConfig() tuning.OnlineConfig {
	return tuning.OnlineConfig{
		Start:        c.SweepConfig(),
		Games:        c.GetOnlineGames(),
		LearningRate: c.GetLearningRate(),
		ReportEvery:  c.GetReportEvery(),
		Seed:         c.GetSeed(),
	}
}
