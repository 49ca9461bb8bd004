// Package engine opens a tuning.Engine from a connection spec.
//
// Supported specs:
//
//	exec:<command line>   child process speaking the line protocol (package proc)
//	http://host[:port]    JSON REST engine (package httpengine)
//	https://host[:port]
//	grpc://host:port      gRPC engine service (package grpcengine)
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/broadside/internal/engine/grpcengine"
	"github.com/banshee-data/broadside/internal/engine/httpengine"
	"github.com/banshee-data/broadside/internal/engine/proc"
	"github.com/banshee-data/broadside/internal/httputil"
	"github.com/banshee-data/broadside/internal/tuning"
)

// ErrUnsupportedSpec is returned for specs with no known scheme.
var ErrUnsupportedSpec = errors.New("unsupported engine spec")

// Conn is an open engine. Close releases the process or connection behind it.
type Conn interface {
	tuning.Engine
	io.Closer
}

type nopCloser struct {
	tuning.Engine
}

func (nopCloser) Close() error { return nil }

// Options tunes how specs are opened.
type Options struct {
	// HTTPClient is used for http(s) engines. Nil means the standard client.
	HTTPClient httputil.HTTPClient
}

// Open connects to the engine described by spec.
func Open(ctx context.Context, spec string, opts Options) (Conn, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case strings.HasPrefix(spec, "exec:"):
		args := strings.Fields(strings.TrimPrefix(spec, "exec:"))
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %q has no command", ErrUnsupportedSpec, spec)
		}
		c, err := proc.Start(ctx, args)
		if err != nil {
			return nil, err
		}
		return c, nil
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return nopCloser{httpengine.NewClient(opts.HTTPClient, spec)}, nil
	case strings.HasPrefix(spec, "grpc://"):
		target := strings.TrimPrefix(spec, "grpc://")
		if target == "" {
			return nil, fmt.Errorf("%w: %q has no address", ErrUnsupportedSpec, spec)
		}
		c, err := grpcengine.Dial(target)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSpec, spec)
	}
}

// OpenN opens n independent connections to spec, one per sweep shard. On
// failure the connections already opened are closed.
func OpenN(ctx context.Context, spec string, n int, opts Options) ([]Conn, error) {
	conns := make([]Conn, 0, n)
	for i := 0; i < n; i++ {
		c, err := Open(ctx, spec, opts)
		if err != nil {
			CloseAll(conns)
			return nil, fmt.Errorf("opening engine %d/%d: %w", i+1, n, err)
		}
		conns = append(conns, c)
	}
	return conns, nil
}

// CloseAll closes every connection, returning the first error.
func CloseAll(conns []Conn) error {
	var first error
	for _, c := range conns {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
