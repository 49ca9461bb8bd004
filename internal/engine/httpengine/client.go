// Package httpengine talks to a game engine exposed as a JSON REST service.
package httpengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/broadside/internal/engine/slots"
	"github.com/banshee-data/broadside/internal/httputil"
	"github.com/banshee-data/broadside/internal/tuning"
)

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 1 << 20

// WeightsBody is the payload of GET and PUT /weights.
type WeightsBody struct {
	Weights []float32 `json:"weights"`
}

// TournamentRequest is the payload of POST /tournament.
type TournamentRequest struct {
	Players int `json:"players"`
	Games   int `json:"games"`
}

// TickReply is the reply to POST /tournament/tick.
type TickReply struct {
	Message string `json:"message"`
}

// StatusReply is the reply to GET /tournament.
type StatusReply struct {
	Complete bool `json:"complete"`
}

// Client is a tuning.Engine backed by an HTTP engine service.
type Client struct {
	HTTPClient httputil.HTTPClient
	BaseURL    string
}

// NewClient creates a client for baseURL. A nil httpClient gets the standard
// client with the default timeout.
func NewClient(httpClient httputil.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(nil)
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// do sends body (if non-nil) as JSON and decodes a 2xx reply into out (if
// non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return fmt.Errorf("reading %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// ConfigureWeights implements tuning.Engine.
func (c *Client) ConfigureWeights(ctx context.Context, w tuning.WeightVector) error {
	return c.do(ctx, http.MethodPut, "/weights", WeightsBody{Weights: slots.PackSlice(w)}, nil)
}

// CurrentWeights implements tuning.Engine.
func (c *Client) CurrentWeights(ctx context.Context) (tuning.WeightVector, error) {
	var body WeightsBody
	if err := c.do(ctx, http.MethodGet, "/weights", nil, &body); err != nil {
		return tuning.WeightVector{}, err
	}
	return slots.UnpackSlice(body.Weights)
}

// StartTournament implements tuning.Engine.
func (c *Client) StartTournament(ctx context.Context, players, games int) error {
	return c.do(ctx, http.MethodPost, "/tournament", TournamentRequest{Players: players, Games: games}, nil)
}

// Tick implements tuning.Engine.
func (c *Client) Tick(ctx context.Context) (string, error) {
	var reply TickReply
	if err := c.do(ctx, http.MethodPost, "/tournament/tick", nil, &reply); err != nil {
		return "", err
	}
	return reply.Message, nil
}

// IsComplete implements tuning.Engine.
func (c *Client) IsComplete(ctx context.Context) (bool, error) {
	var reply StatusReply
	if err := c.do(ctx, http.MethodGet, "/tournament", nil, &reply); err != nil {
		return false, err
	}
	return reply.Complete, nil
}

var _ tuning.Engine = (*Client)(nil)
