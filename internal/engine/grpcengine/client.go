package grpcengine

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/broadside/internal/tuning"
)

// Client is a tuning.Engine backed by a remote Engine service.
type Client struct {
	conn  grpc.ClientConnInterface
	owned *grpc.ClientConn
}

// Dial connects to target without transport security. Engines are expected
// on localhost or a trusted network.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, owned: conn}, nil
}

// NewClient wraps an existing connection. Close does not close it.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close closes a connection opened by Dial.
func (c *Client) Close() error {
	if c.owned == nil {
		return nil
	}
	return c.owned.Close()
}

// ConfigureWeights implements tuning.Engine.
func (c *Client) ConfigureWeights(ctx context.Context, w tuning.WeightVector) error {
	req, err := weightsToStruct(w)
	if err != nil {
		return err
	}
	return c.conn.Invoke(ctx, fullMethod(methodConfigureWeights), req, &emptypb.Empty{})
}

// CurrentWeights implements tuning.Engine.
func (c *Client) CurrentWeights(ctx context.Context) (tuning.WeightVector, error) {
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, fullMethod(methodCurrentWeights), &emptypb.Empty{}, out); err != nil {
		return tuning.WeightVector{}, err
	}
	return weightsFromStruct(out)
}

// StartTournament implements tuning.Engine.
func (c *Client) StartTournament(ctx context.Context, players, games int) error {
	req, err := structpb.NewStruct(map[string]interface{}{
		"players": players,
		"games":   games,
	})
	if err != nil {
		return err
	}
	return c.conn.Invoke(ctx, fullMethod(methodStartTournament), req, &emptypb.Empty{})
}

// Tick implements tuning.Engine.
func (c *Client) Tick(ctx context.Context) (string, error) {
	out := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, fullMethod(methodTick), &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// IsComplete implements tuning.Engine.
func (c *Client) IsComplete(ctx context.Context) (bool, error) {
	out := &wrapperspb.BoolValue{}
	if err := c.conn.Invoke(ctx, fullMethod(methodIsComplete), &emptypb.Empty{}, out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

var _ tuning.Engine = (*Client)(nil)
