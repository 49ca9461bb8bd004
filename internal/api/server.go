// Package api serves the HTTP control surface for background sweeps.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/broadside/internal/httputil"
	"github.com/banshee-data/broadside/internal/monitoring"
	"github.com/banshee-data/broadside/internal/report"
	"github.com/banshee-data/broadside/internal/tuning"
	"github.com/banshee-data/broadside/internal/version"
	"github.com/banshee-data/broadside/internal/worker"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const maxRequestBody = 1 << 20

// Server exposes a runner over HTTP.
type Server struct {
	// ctx bounds sweeps started through the API; they outlive the request
	// that started them.
	ctx    context.Context
	runner *tuning.Runner
}

// NewServer creates a server. Sweeps it starts are cancelled with ctx.
func NewServer(ctx context.Context, runner *tuning.Runner) *Server {
	return &Server{ctx: ctx, runner: runner}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sweep/start", s.handleSweepStart)
	mux.HandleFunc("/api/sweep/state", s.handleSweepState)
	mux.HandleFunc("/api/sweep/stop", s.handleSweepStop)
	mux.HandleFunc("/api/sweep/chart", s.handleSweepChart)
	mux.HandleFunc("/api/version", s.handleVersion)
	return mux
}

// handleSweepStart starts a sweep. The body uses the worker's start
// parameters; an empty body sweeps the defaults.
func (s *Server) handleSweepStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var params worker.Params
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		httputil.BadRequest(w, "reading request: "+err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			httputil.BadRequest(w, "invalid request: "+err.Error())
			return
		}
	}

	started, err := s.runner.Start(s.ctx, params.Config(), nil)
	switch {
	case errors.Is(err, tuning.ErrSweepInProgress):
		httputil.Conflict(w, err.Error())
		return
	case err != nil:
		httputil.BadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"id":     started.ID,
		"total":  started.Total,
	})
}

// handleSweepState returns the current sweep state
func (s *Server) handleSweepState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.runner.State())
}

// handleSweepStop cancels a running sweep
func (s *Server) handleSweepStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.runner.Stop()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleSweepChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	state := s.runner.State()
	subtitle := fmt.Sprintf("%s: %d/%d combinations", state.Status, state.Completed, state.Total)
	if state.Config != nil {
		subtitle += fmt.Sprintf(", %d games each", state.Config.Games)
	}

	var buf bytes.Buffer
	if err := report.WriteChart(&buf, state.Results, report.ChartOptions{Title: "Weight sweep", Subtitle: subtitle}); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
