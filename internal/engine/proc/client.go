// Package proc talks to a game engine running as a child process over a
// line protocol on its stdin and stdout.
//
// Every command is one line. The engine answers with a line whose first word
// names the reply; unrelated lines (banners, debug output) are skipped. Any
// command may instead be answered with "error <message>".
//
//	tuner                  -> tunerok
//	getweights             -> weights v0 ... v15
//	setweights v0 ... v15  -> ok
//	start PLAYERS GAMES    -> ok
//	tick                   -> status [text]
//	complete               -> complete 0|1
//	quit
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/banshee-data/broadside/internal/engine/slots"
	"github.com/banshee-data/broadside/internal/tuning"
)

// ErrClosed is returned by calls on a client whose connection has ended.
var ErrClosed = errors.New("engine connection closed")

// RemoteError is an "error" reply from the engine. The connection stays
// usable after one.
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("engine rejected %q: %s", e.Command, e.Message)
}

// Client is a tuning.Engine backed by a line protocol connection.
type Client struct {
	mu sync.Mutex

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	read  *bufio.Reader
	write io.Writer

	abortOnce sync.Once
	broken    error
}

// Start launches cmdline and performs the handshake. ctx bounds the startup
// only; the process lives until Close.
func Start(ctx context.Context, cmdline []string) (*Client, error) {
	if len(cmdline) == 0 {
		return nil, errors.New("empty engine command")
	}
	path, err := exec.LookPath(cmdline[0])
	if err != nil {
		return nil, err
	}
	cmd := &exec.Cmd{Path: path, Args: cmdline}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine %s: %w", cmdline[0], err)
	}

	c := newClient(stdout, stdin)
	c.cmd = cmd
	if err := c.handshake(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewClient performs the handshake over an existing connection. Close closes
// both halves.
func NewClient(ctx context.Context, r io.ReadCloser, w io.WriteCloser) (*Client, error) {
	c := newClient(r, w)
	if err := c.handshake(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func newClient(r io.ReadCloser, w io.WriteCloser) *Client {
	return &Client{
		stdin:  w,
		stdout: r,
		read:   bufio.NewReader(r),
		write:  w,
	}
}

func (c *Client) handshake(ctx context.Context) error {
	if _, err := c.exchange(ctx, "tuner", "tunerok"); err != nil {
		return fmt.Errorf("engine handshake: %w", err)
	}
	return nil
}

// Close asks the engine to quit, closes the pipes and waits for the process.
// An exchange still waiting on the engine is torn down first, so Close never
// waits on a hung engine.
func (c *Client) Close() error {
	if !c.mu.TryLock() {
		c.abort()
		c.mu.Lock()
	}
	if c.broken == nil {
		fmt.Fprintln(c.write, "quit")
		c.broken = ErrClosed
	}
	c.mu.Unlock()

	c.abortOnce.Do(func() {
		c.stdin.Close()
		c.stdout.Close()
	})
	if c.cmd != nil {
		// A non-zero exit after quit is not interesting to callers.
		_ = c.cmd.Wait()
	}
	return nil
}

// abort tears the connection down from under a blocked exchange.
func (c *Client) abort() {
	c.abortOnce.Do(func() {
		c.stdin.Close()
		c.stdout.Close()
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
	})
}

// exchange sends line and waits for a reply starting with expect. Cancelling
// ctx while waiting kills the connection.
func (c *Client) exchange(ctx context.Context, line, expect string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return nil, c.broken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, c.abort)
	defer stop()

	words, err := c.sendCommand(line, expect)
	if err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		c.broken = fmt.Errorf("%w: %v", ErrClosed, err)
		return nil, err
	}
	return words, nil
}

func (c *Client) sendCommand(cmd, expect string) ([]string, error) {
	if _, err := fmt.Fprintln(c.write, cmd); err != nil {
		return nil, err
	}
	for {
		line, err := c.read.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		words := strings.Split(line, " ")
		switch words[0] {
		case expect:
			return words, nil
		case "error":
			return nil, &RemoteError{Command: strings.SplitN(cmd, " ", 2)[0], Message: strings.Join(words[1:], " ")}
		}
	}
}

// ConfigureWeights implements tuning.Engine.
func (c *Client) ConfigureWeights(ctx context.Context, w tuning.WeightVector) error {
	_, err := c.exchange(ctx, "setweights "+slots.Format(slots.Pack(w)), "ok")
	return err
}

// CurrentWeights implements tuning.Engine.
func (c *Client) CurrentWeights(ctx context.Context) (tuning.WeightVector, error) {
	words, err := c.exchange(ctx, "getweights", "weights")
	if err != nil {
		return tuning.WeightVector{}, err
	}
	buf, err := slots.Parse(words[1:])
	if err != nil {
		return tuning.WeightVector{}, fmt.Errorf("bad weights reply: %w", err)
	}
	return slots.Unpack(buf), nil
}

// StartTournament implements tuning.Engine.
func (c *Client) StartTournament(ctx context.Context, players, games int) error {
	_, err := c.exchange(ctx, fmt.Sprintf("start %d %d", players, games), "ok")
	return err
}

// Tick implements tuning.Engine.
func (c *Client) Tick(ctx context.Context) (string, error) {
	words, err := c.exchange(ctx, "tick", "status")
	if err != nil {
		return "", err
	}
	return strings.Join(words[1:], " "), nil
}

// IsComplete implements tuning.Engine.
func (c *Client) IsComplete(ctx context.Context) (bool, error) {
	words, err := c.exchange(ctx, "complete", "complete")
	if err != nil {
		return false, err
	}
	if len(words) != 2 {
		return false, fmt.Errorf("bad complete reply: %q", strings.Join(words, " "))
	}
	done, err := strconv.ParseBool(words[1])
	if err != nil {
		return false, fmt.Errorf("bad complete reply: %w", err)
	}
	return done, nil
}

var _ tuning.Engine = (*Client)(nil)
