package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/broadside/internal/engine"
	"github.com/banshee-data/broadside/internal/engine/enginetest"
	"github.com/banshee-data/broadside/internal/engine/proc"
	"github.com/banshee-data/broadside/internal/report"
	"github.com/banshee-data/broadside/internal/testutil"
	"github.com/banshee-data/broadside/internal/tuning"
	"github.com/banshee-data/broadside/internal/version"
	"github.com/banshee-data/broadside/internal/worker"
)

const engineHelperEnv = "BROADSIDE_ENGINE_HELPER"

// TestMain doubles as a line-protocol engine when re-executed with
// engineHelperEnv set, so exec: specs can point at the test binary.
func TestMain(m *testing.M) {
	if os.Getenv(engineHelperEnv) == "1" {
		if err := proc.Serve(context.Background(), enginetest.New(), os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func helperEngine(t *testing.T) string {
	t.Helper()
	t.Setenv(engineHelperEnv, "1")
	testutil.CaptureLogs(t)
	return "exec:" + os.Args[0]
}

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	ctx := testutil.Context(t, 30*time.Second)
	err := run(ctx, args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSweepToStdout(t *testing.T) {
	spec := helperEngine(t)

	stdout, stderr, err := runCommand(t, "", "sweep", "-engine", spec, "-alpha", "0.7:0.1:0.8", "-place", "1:1:2", "-games", "2")
	require.NoError(t, err)

	rows := readCSV(t, stdout)
	require.Len(t, rows, 5)
	assert.Equal(t, report.Header, rows[0])
	assert.Equal(t, []string{"0.7", "1", "0.2", "0", "2", "3"}, rows[1][:6])
	assert.Equal(t, []string{"0.8", "2", "0.2", "0", "2", "3"}, rows[4][:6])
	for _, row := range rows[1:] {
		assert.NotEqual(t, "NaN", row[6])
	}
	assert.Contains(t, stderr, "Combinations: 4 (4 scored)")
}

func TestSweepOutputFiles(t *testing.T) {
	spec := helperEngine(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "sweep.csv")
	chartPath := filepath.Join(dir, "sweep.html")
	plotPath := filepath.Join(dir, "sweep.png")

	stdout, _, err := runCommand(t, "", "sweep", "-engine", spec, "-alpha", "0.6:0.1:0.8", "-games", "1",
		"-output", csvPath, "-chart", chartPath, "-plot", plotPath, "-quiet")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, string(data)), 4)

	html, err := os.ReadFile(chartPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "3/3 combinations, 1 games each, 3 players")

	png, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestSweepShardsMatchSingleEngine(t *testing.T) {
	spec := helperEngine(t)
	args := []string{"sweep", "-engine", spec, "-alpha", "0.6:0.1:0.9", "-adj", "0.2:0.2:0.4", "-games", "1", "-quiet"}

	single, _, err := runCommand(t, "", args...)
	require.NoError(t, err)
	sharded, _, err := runCommand(t, "", append(args, "-shards", "3")...)
	require.NoError(t, err)

	assert.Equal(t, single, sharded)
	assert.Len(t, readCSV(t, sharded), 9)
}

func TestSweepConfigFile(t *testing.T) {
	spec := helperEngine(t)
	path := filepath.Join(t.TempDir(), "tuner.json")
	body := fmt.Sprintf(`{"engine":%q,"alpha":"0.7:0.1:0.9","games":50,"players":4}`, spec)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	// Explicit flags override the file.
	stdout, _, err := runCommand(t, "", "sweep", "-config", path, "-games", "3", "-quiet")
	require.NoError(t, err)

	rows := readCSV(t, stdout)
	require.Len(t, rows, 4)
	for _, row := range rows[1:] {
		assert.Equal(t, "3", row[4])
		assert.Equal(t, "4", row[5])
	}
}

func TestSweepErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no engine", []string{"sweep"}, "-engine is required"},
		{"bad range", []string{"sweep", "-engine", "exec:x", "-alpha", "1:0:2"}, "invalid range"},
		{"bad spec", []string{"sweep", "-engine", "ftp://engine"}, "unsupported engine spec"},
		{"stray args", []string{"sweep", "extra"}, "unexpected arguments"},
		{"missing config", []string{"sweep", "-config", "nope.json"}, "failed to stat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOnline(t *testing.T) {
	spec := helperEngine(t)

	stdout, _, err := runCommand(t, "", "online", "-engine", spec, "-games", "6", "-report-every", "2", "-seed", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	var final tuning.OnlineResult
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &final))
	assert.Equal(t, 6, final.Games)
	assert.True(t, final.BestScore.Valid())
}

func TestWorker(t *testing.T) {
	spec := helperEngine(t)

	stdin := `{"cmd":"start","params":{"alpha":"0.7:0.1:0.8","games":1}}` + "\n"
	stdout, _, err := runCommand(t, stdin, "worker", "-engine", spec)
	require.NoError(t, err)

	var kinds []string
	dec := json.NewDecoder(strings.NewReader(stdout))
	for dec.More() {
		var m worker.Message
		require.NoError(t, dec.Decode(&m))
		if m.Type != worker.TypeLog {
			kinds = append(kinds, m.Type)
		}
	}
	assert.Equal(t, []string{"progress", "progress", "done"}, kinds)
}

func TestBridgeStdio(t *testing.T) {
	spec := helperEngine(t)

	// A client speaking the line protocol through the bridge to a subprocess.
	stdin := "tuner\nstart 3 2\ntick\ncomplete\nquit\n"
	stdout, _, err := runCommand(t, stdin, "bridge", "-engine", spec, "-stdio")
	require.NoError(t, err)
	assert.Equal(t, "tunerok\nok\nstatus [New game started: #1]\ncomplete 0\n", stdout)
}

func TestBridgeNeedsOneMode(t *testing.T) {
	_, _, err := runCommand(t, "", "bridge", "-engine", "exec:x", "-stdio", "-grpc", ":0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestBridgeGRPCRoundTrip(t *testing.T) {
	spec := helperEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reserve a port, then let the bridge listen on it.
	addr := freeAddr(t)
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"bridge", "-engine", spec, "-grpc", addr}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	}()

	var conn engine.Conn
	require.Eventually(t, func() bool {
		c, err := engine.Open(ctx, "grpc://"+addr, engine.Options{})
		if err != nil {
			return false
		}
		if _, err := c.CurrentWeights(ctx); err != nil {
			c.Close()
			return false
		}
		conn = c
		return true
	}, 10*time.Second, 50*time.Millisecond)
	defer conn.Close()

	results, err := tuning.NewSession(conn, tuning.TournamentOptions{}).Sweep(ctx, tuning.Config{Alpha: "0.7:0.1:0.8", Games: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestUsageAndVersion(t *testing.T) {
	stdout, _, err := runCommand(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, version.String()+"\n", stdout)

	stdout, _, err = runCommand(t, "", "help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage: broadside <command>")

	_, stderr, err := runCommand(t, "", "launch")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Unknown command: launch")

	_, _, err = runCommand(t, "")
	assert.ErrorIs(t, err, errUsage)

	_, _, err = runCommand(t, "", "sweep", "-h")
	assert.True(t, errors.Is(err, flag.ErrHelp))
}
