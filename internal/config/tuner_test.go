package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/broadside/internal/testutil"
	"github.com/banshee-data/broadside/internal/tuning"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &TunerConfig{}

	if got := cfg.GetGames(); got != DefaultGames {
		t.Errorf("GetGames() = %d, want %d", got, DefaultGames)
	}
	if got := cfg.GetPlayers(); got != tuning.DefaultPlayers {
		t.Errorf("GetPlayers() = %d, want %d", got, tuning.DefaultPlayers)
	}
	if got := cfg.GetShards(); got != 1 {
		t.Errorf("GetShards() = %d, want 1", got)
	}
	if got := cfg.GetMaxWall(); got != tuning.DefaultMaxWall {
		t.Errorf("GetMaxWall() = %v, want %v", got, tuning.DefaultMaxWall)
	}
	if got := cfg.GetPollDelay(); got != 0 {
		t.Errorf("GetPollDelay() = %v, want 0", got)
	}
	if got := cfg.GetEngine(); got != "" {
		t.Errorf("GetEngine() = %q, want empty", got)
	}

	sweep := cfg.SweepConfig()
	plan, err := sweep.Plan()
	if err != nil {
		t.Fatalf("default sweep config does not plan: %v", err)
	}
	if plan.Total() != 1 {
		t.Errorf("default plan has %d combinations, want 1", plan.Total())
	}
}

func TestLoadTunerConfig(t *testing.T) {
	path := writeConfig(t, "tuner.json", `{
  "engine": "grpc://localhost:50051",
  "alpha": "0.7:0.05:0.8",
  "games": 40,
  "max_wall": "2m",
  "poll_delay": "5ms",
  "learning_rate": 0.1,
  "seed": 9
}`)

	cfg, err := LoadTunerConfig(path)
	testutil.AssertNoError(t, err)

	if cfg.GetEngine() != "grpc://localhost:50051" {
		t.Errorf("GetEngine() = %q", cfg.GetEngine())
	}
	if cfg.GetGames() != 40 {
		t.Errorf("GetGames() = %d, want 40", cfg.GetGames())
	}
	// Omitted fields keep their defaults.
	if cfg.GetPlayers() != tuning.DefaultPlayers {
		t.Errorf("GetPlayers() = %d, want default", cfg.GetPlayers())
	}
	if cfg.Placement != nil {
		t.Errorf("Placement = %v, want nil", *cfg.Placement)
	}

	opts := cfg.TournamentOptions()
	if opts.MaxWall != 2*time.Minute || opts.PollDelay != 5*time.Millisecond {
		t.Errorf("TournamentOptions() = %+v", opts)
	}
	if opts.MaxTicks != tuning.DefaultMaxTicks {
		t.Errorf("MaxTicks = %d, want default", opts.MaxTicks)
	}

	online := cfg.OnlineConfig()
	testutil.AssertNear(t, "LearningRate", cfg.GetLearningRate(), 0.1, 1e-12)
	if online.LearningRate != 0.1 || online.Seed != 9 || online.Games != tuning.DefaultOnlineGames {
		t.Errorf("OnlineConfig() = %+v", online)
	}
	if online.Start.Alpha != "0.7:0.05:0.8" {
		t.Errorf("OnlineConfig().Start.Alpha = %q", online.Start.Alpha)
	}

	plan, err := cfg.SweepConfig().Plan()
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(plan.Alpha) != 3 {
		t.Errorf("alpha axis = %v, want 3 values", plan.Alpha)
	}
}

func TestLoadTunerConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "tuner.yaml", `{}`, ".json extension"},
		{"bad json", "tuner.json", `{"games":`, "failed to parse"},
		{"bad range", "tuner.json", `{"alpha":"0.9:0.1:0.5"}`, "alpha: invalid range"},
		{"zero games", "tuner.json", `{"games":0}`, "games must be positive"},
		{"one player", "tuner.json", `{"players":1}`, "players must be at least 2"},
		{"zero shards", "tuner.json", `{"shards":0}`, "shards must be at least 1"},
		{"bad duration", "tuner.json", `{"max_wall":"soon"}`, "invalid max_wall"},
		{"negative duration", "tuner.json", `{"poll_delay":"-1s"}`, "poll_delay must be non-negative"},
		{"zero learning rate", "tuner.json", `{"learning_rate":0}`, "learning_rate must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadTunerConfig(path)
			testutil.AssertError(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTunerConfigMissingFile(t *testing.T) {
	_, err := LoadTunerConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to stat") {
		t.Errorf("expected stat error, got %v", err)
	}
}

func TestValidateWrapsRangeError(t *testing.T) {
	alpha := "0.5:0:0.9"
	err := (&TunerConfig{Alpha: &alpha}).Validate()
	testutil.AssertErrorIs(t, err, tuning.ErrInvalidRange)
}

func TestLoadTunerConfigTooLarge(t *testing.T) {
	body := `{"engine":"` + strings.Repeat("x", 1<<20) + `"}`
	_, err := LoadTunerConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestDefaultsFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	plan, err := cfg.SweepConfig().Plan()
	if err != nil {
		t.Fatalf("defaults do not plan: %v", err)
	}
	// 5 alpha values x 3 placements x 3 adjacency x 2 blends
	if plan.Total() != 90 {
		t.Errorf("defaults plan %d combinations, want 90", plan.Total())
	}
	if cfg.GetGames() != 500 {
		t.Errorf("GetGames() = %d, want 500", cfg.GetGames())
	}
	if cfg.GetMaxWall() != 30*time.Minute {
		t.Errorf("GetMaxWall() = %v, want 30m", cfg.GetMaxWall())
	}
}
