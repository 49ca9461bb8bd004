package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatalf("broadside: %v", err)
	}
}

var errUsage = errors.New("usage")

// run dispatches a subcommand. Results go to stdout; the summary, logs and
// usage go to stderr.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "sweep":
		return runSweep(ctx, rest, stdout, stderr)
	case "online":
		return runOnline(ctx, rest, stdout, stderr)
	case "worker":
		return runWorker(ctx, rest, stdin, stdout, stderr)
	case "serve":
		return runServe(ctx, rest, stderr)
	case "bridge":
		return runBridge(ctx, rest, stdin, stdout, stderr)
	case "version":
		return runVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `broadside - heuristic weight tuner for the battleship AI

Usage: broadside <command> [options]

Commands:
  sweep      Run a grid sweep and write one CSV row per combination
  online     Tune the four sweep weights one game at a time
  worker     Serve sweeps over JSON lines on stdin/stdout
  serve      Serve the sweep control API over HTTP
  bridge     Re-export an engine over gRPC, HTTP or the line protocol
  version    Show build information
  help       Show this help message

Common Flags:
  -engine <spec>     exec:<command line>, http(s)://<base> or grpc://<host:port>
  -config <file>     Tuner config JSON; explicit flags override it
  -alpha, -place, -adj, -mc <range>
                     Axis ranges as start:step:end or a single value

Examples:
  # Sweep alpha against a local engine binary, 50 games per combination
  broadside sweep -engine "exec:./battleship --tuner" -alpha 0.65:0.05:0.85 -games 50 -output sweep.csv

  # Full default sweep over four engine processes with an HTML chart
  broadside sweep -config config/tuner.defaults.json -engine "exec:./battleship --tuner" -shards 4 -chart sweep.html

  # Online learning from the default weights
  broadside online -engine grpc://localhost:50051 -games 1000 -report-every 100

  # Expose a subprocess engine over gRPC
  broadside bridge -engine "exec:./battleship --tuner" -grpc :50051`)
}
