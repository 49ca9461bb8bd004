// Package testutil provides shared test helpers for the tuning harness.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/broadside/internal/monitoring"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error wrapping %v, got %v", target, err)
	}
}

// AssertNaN fails the test if v is a number.
func AssertNaN(t *testing.T, name string, v float64) {
	t.Helper()
	if !math.IsNaN(v) {
		t.Errorf("%s = %v, want NaN", name, v)
	}
}

// AssertNear fails the test if |got-want| > tol.
func AssertNear(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%g)", name, got, want, tol)
	}
}

// Context returns a context cancelled after d or at test cleanup.
func Context(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

// LogRecorder collects lines written through the monitoring logger.
type LogRecorder struct {
	mu    sync.Mutex
	lines []string
}

// Lines returns a copy of the recorded lines.
func (r *LogRecorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// CaptureLogs redirects the monitoring logger for the rest of the test.
// The logger is muted again at cleanup.
func CaptureLogs(t *testing.T) *LogRecorder {
	t.Helper()
	rec := &LogRecorder{}
	monitoring.SetLogger(func(format string, v ...interface{}) {
		rec.mu.Lock()
		rec.lines = append(rec.lines, fmt.Sprintf(format, v...))
		rec.mu.Unlock()
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	return rec
}
