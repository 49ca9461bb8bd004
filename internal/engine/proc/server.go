package proc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/broadside/internal/engine/slots"
	"github.com/banshee-data/broadside/internal/tuning"
)

// Serve exposes eng over the line protocol until the peer sends quit, the
// input ends or ctx is done. Engine failures are reported to the peer as
// "error" replies; only I/O errors end the loop.
func Serve(ctx context.Context, eng tuning.Engine, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := r.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		words := strings.Split(line, " ")
		if words[0] == "quit" {
			return nil
		}

		reply, err := dispatch(ctx, eng, words)
		if err != nil {
			reply = "error " + strings.ReplaceAll(err.Error(), "\n", " ")
		}
		if _, err := fmt.Fprintln(out, reply); err != nil {
			return err
		}
	}
}

func dispatch(ctx context.Context, eng tuning.Engine, words []string) (string, error) {
	switch words[0] {
	case "tuner":
		return "tunerok", nil
	case "getweights":
		w, err := eng.CurrentWeights(ctx)
		if err != nil {
			return "", err
		}
		return "weights " + slots.Format(slots.Pack(w)), nil
	case "setweights":
		buf, err := slots.Parse(words[1:])
		if err != nil {
			return "", err
		}
		if err := eng.ConfigureWeights(ctx, slots.Unpack(buf)); err != nil {
			return "", err
		}
		return "ok", nil
	case "start":
		if len(words) != 3 {
			return "", fmt.Errorf("usage: start PLAYERS GAMES")
		}
		players, err := strconv.Atoi(words[1])
		if err != nil {
			return "", fmt.Errorf("bad players: %q", words[1])
		}
		games, err := strconv.Atoi(words[2])
		if err != nil {
			return "", fmt.Errorf("bad games: %q", words[2])
		}
		if err := eng.StartTournament(ctx, players, games); err != nil {
			return "", err
		}
		return "ok", nil
	case "tick":
		msg, err := eng.Tick(ctx)
		if err != nil {
			return "", err
		}
		if msg == "" {
			return "status", nil
		}
		return "status " + strings.ReplaceAll(msg, "\n", " "), nil
	case "complete":
		done, err := eng.IsComplete(ctx)
		if err != nil {
			return "", err
		}
		if done {
			return "complete 1", nil
		}
		return "complete 0", nil
	default:
		return "", fmt.Errorf("unknown command: %q", words[0])
	}
}
