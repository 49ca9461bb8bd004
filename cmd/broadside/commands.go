package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/banshee-data/broadside/internal/api"
	"github.com/banshee-data/broadside/internal/config"
	"github.com/banshee-data/broadside/internal/engine"
	"github.com/banshee-data/broadside/internal/engine/grpcengine"
	"github.com/banshee-data/broadside/internal/engine/httpengine"
	"github.com/banshee-data/broadside/internal/engine/proc"
	"github.com/banshee-data/broadside/internal/monitoring"
	"github.com/banshee-data/broadside/internal/tuning"
	"github.com/banshee-data/broadside/internal/version"
	"github.com/banshee-data/broadside/internal/worker"
)

const shutdownTimeout = 5 * time.Second

func runVersion(stdout io.Writer) error {
	_, err := fmt.Fprintln(stdout, version.String())
	return err
}

func runOnline(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	b := newFlagBinder("online", stderr)
	b.engineFlags()
	b.axisFlags()
	b.Int("games", tuning.DefaultOnlineGames, "Single-game tournaments to play",
		func(c *config.TunerConfig, v *int) { c.OnlineGames = v })
	b.Float64("lr", tuning.DefaultLearningRate, "Learning rate",
		func(c *config.TunerConfig, v *float64) { c.LearningRate = v })
	b.Int("report-every", tuning.DefaultReportEvery, "Report progress every N games",
		func(c *config.TunerConfig, v *int) { c.ReportEvery = v })
	b.Uint64("seed", 0, "Random seed",
		func(c *config.TunerConfig, v *uint64) { c.Seed = v })

	cfg, err := b.parse(args)
	if err != nil {
		return err
	}
	sessions, closeAll, err := openSessions(ctx, cfg, 1)
	if err != nil {
		return err
	}
	defer closeAll()

	enc := json.NewEncoder(stdout)
	res, err := sessions[0].Learn(ctx, cfg.OnlineConfig(), func(r tuning.OnlineReport) {
		if encErr := enc.Encode(r); encErr != nil {
			monitoring.Logf("WARNING: writing report: %v", encErr)
		}
	})
	if encErr := enc.Encode(res); encErr != nil && err == nil {
		err = encErr
	}
	return err
}

func runWorker(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	b := newFlagBinder("worker", stderr)
	b.engineFlags()
	cfg, err := b.parse(args)
	if err != nil {
		return err
	}
	sessions, closeAll, err := openSessions(ctx, cfg, 1)
	if err != nil {
		return err
	}
	defer closeAll()

	srv := worker.NewServer(tuning.NewRunner(sessions[0]), stdout)
	// Diagnostics travel as log messages so stdout stays pure JSON lines.
	monitoring.SetLogger(srv.Logf)
	defer monitoring.SetLogger(log.Printf)

	err = srv.Serve(ctx, stdin)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	b := newFlagBinder("serve", stderr)
	b.engineFlags()
	listen := b.fs.String("listen", ":8080", "HTTP listen address")
	cfg, err := b.parse(args)
	if err != nil {
		return err
	}
	sessions, closeAll, err := openSessions(ctx, cfg, 1)
	if err != nil {
		return err
	}
	defer closeAll()

	runner := tuning.NewRunner(sessions[0])
	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(api.NewServer(ctx, runner).ServeMux()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		monitoring.Logf("Serving sweep API on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		monitoring.Logf("shutting down HTTP server...")
		runner.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		return runner.Wait(shutdownCtx)
	})
	return g.Wait()
}

// runBridge serves one engine connection over another transport. The engine
// holds a single tournament, so clients must take turns.
func runBridge(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	b := newFlagBinder("bridge", stderr)
	b.engineFlags()
	grpcAddr := b.fs.String("grpc", "", "Serve the engine over gRPC on this address")
	httpAddr := b.fs.String("http", "", "Serve the engine's REST API on this address")
	stdio := b.fs.Bool("stdio", false, "Serve the engine's line protocol on stdin/stdout")
	cfg, err := b.parse(args)
	if err != nil {
		return err
	}

	modes := 0
	for _, on := range []bool{*grpcAddr != "", *httpAddr != "", *stdio} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		return errors.New("bridge needs exactly one of -grpc, -http or -stdio")
	}
	if cfg.GetEngine() == "" {
		return errNoEngine
	}

	conn, err := engine.Open(ctx, cfg.GetEngine(), engine.Options{})
	if err != nil {
		return err
	}
	defer conn.Close()

	switch {
	case *stdio:
		return proc.Serve(ctx, conn, stdin, stdout)
	case *httpAddr != "":
		return serveHTTPEngine(ctx, *httpAddr, conn)
	default:
		return serveGRPCEngine(ctx, *grpcAddr, conn)
	}
}

func serveHTTPEngine(ctx context.Context, addr string, eng tuning.Engine) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(httpengine.Handler(eng)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		monitoring.Logf("Serving engine over HTTP on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func serveGRPCEngine(ctx context.Context, addr string, eng tuning.Engine) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s := grpc.NewServer()
	grpcengine.Register(s, eng)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		monitoring.Logf("Serving engine over gRPC on %s", lis.Addr())
		return s.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.GracefulStop()
		return nil
	})
	return g.Wait()
}
