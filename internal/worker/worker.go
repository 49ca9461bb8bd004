// Package worker drives sweeps over a JSON-lines protocol, one object per
// line in each direction.
//
// Inbound:
//
//	{"cmd":"start","params":{"alpha":"0.65:0.05:0.85","games":200}}
//	{"cmd":"stop"}
//	{"cmd":"state"}
//
// Outbound messages carry a "type" of log, progress, done, error or state.
// A started sweep emits progress messages followed by exactly one done or
// error message.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/banshee-data/broadside/internal/tuning"
)

// DefaultGames is used when a start request leaves games unset.
const DefaultGames = 200

const maxLine = 1 << 20

// Message types.
const (
	TypeLog      = "log"
	TypeProgress = "progress"
	TypeDone     = "done"
	TypeError    = "error"
	TypeState    = "state"
)

// Params are the sweep parameters of a start request. Empty axes fall back
// to their single-value defaults.
type Params struct {
	Alpha   string `json:"alpha,omitempty"`
	Place   string `json:"place,omitempty"`
	Adj     string `json:"adj,omitempty"`
	MC      string `json:"mc,omitempty"`
	Games   int    `json:"games,omitempty"`
	Players int    `json:"players,omitempty"`
}

// Config converts the parameters into a sweep config.
func (p Params) Config() tuning.Config {
	games := p.Games
	if games == 0 {
		games = DefaultGames
	}
	return tuning.Config{
		Alpha:      p.Alpha,
		Placement:  p.Place,
		Adjacency:  p.Adj,
		MonteCarlo: p.MC,
		Games:      games,
		Players:    p.Players,
	}
}

// Request is one inbound line.
type Request struct {
	Cmd    string  `json:"cmd"`
	Params *Params `json:"params,omitempty"`
}

// Message is one outbound line.
type Message struct {
	Type        string             `json:"type"`
	Message     string             `json:"message,omitempty"`
	SweepID     string             `json:"sweep_id,omitempty"`
	ComboIndex  int                `json:"comboIndex,omitempty"`
	TotalCombos int                `json:"totalCombos,omitempty"`
	Pct         float64            `json:"pct,omitempty"`
	Last        *tuning.Result     `json:"last,omitempty"`
	Results     []tuning.Result    `json:"results,omitempty"`
	State       *tuning.SweepState `json:"state,omitempty"`
}

// Server answers requests for one runner.
type Server struct {
	runner *tuning.Runner

	mu  sync.Mutex
	enc *json.Encoder
}

// NewServer creates a server writing messages to out.
func NewServer(runner *tuning.Runner, out io.Writer) *Server {
	return &Server{runner: runner, enc: json.NewEncoder(out)}
}

// Logf sends a log message. Install it with monitoring.SetLogger to forward
// diagnostics to the peer.
func (s *Server) Logf(format string, v ...interface{}) {
	s.send(Message{Type: TypeLog, Message: strings.TrimRight(fmt.Sprintf(format, v...), "\n")})
}

func (s *Server) send(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The peer going away is noticed on the read side.
	_ = s.enc.Encode(m)
}

// Serve reads requests from in until EOF or ctx is done. At EOF it waits
// for a running sweep to finish. When ctx ends the sweep is stopped and
// Serve returns once its final message has been sent.
func (s *Server) Serve(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			s.runner.Stop()
			_ = s.runner.Wait(context.Background())
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := s.runner.Wait(ctx); err != nil {
					s.runner.Stop()
					_ = s.runner.Wait(context.Background())
					return err
				}
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			s.handle(ctx, line)
		}
	}
}

func (s *Server) handle(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.send(Message{Type: TypeError, Message: fmt.Sprintf("bad request: %v", err)})
		return
	}

	switch req.Cmd {
	case "start":
		var p Params
		if req.Params != nil {
			p = *req.Params
		}
		s.send(Message{Type: TypeLog, Message: "tuner worker starting..."})
		if _, err := s.runner.Start(ctx, p.Config(), s.event); err != nil {
			s.send(Message{Type: TypeError, Message: err.Error()})
		}
	case "stop":
		s.runner.Stop()
	case "state":
		state := s.runner.State()
		s.send(Message{Type: TypeState, SweepID: state.ID, State: &state})
	default:
		s.send(Message{Type: TypeError, Message: fmt.Sprintf("unknown command: %q", req.Cmd)})
	}
}

func (s *Server) event(e tuning.Event) {
	switch e.Type {
	case tuning.EventProgress:
		var pct float64
		if e.Total > 0 {
			pct = 100 * float64(e.Completed) / float64(e.Total)
		}
		s.send(Message{
			Type:        TypeProgress,
			SweepID:     e.SweepID,
			ComboIndex:  e.Completed,
			TotalCombos: e.Total,
			Pct:         pct,
			Last:        e.Last,
		})
	case tuning.EventDone:
		s.send(Message{Type: TypeDone, SweepID: e.SweepID, TotalCombos: e.Total, Results: e.Results})
	case tuning.EventError:
		s.send(Message{Type: TypeError, SweepID: e.SweepID, Message: e.Error, TotalCombos: e.Total, Results: e.Results})
	}
}
