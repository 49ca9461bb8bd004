// Package grpcengine carries tuning.Engine over gRPC.
//
// The service uses only protobuf well-known types, so it needs no generated
// code:
//
//	service broadside.engine.v1.Engine {
//	  rpc ConfigureWeights(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc CurrentWeights(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc StartTournament(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc Tick(google.protobuf.Empty) returns (google.protobuf.StringValue);
//	  rpc IsComplete(google.protobuf.Empty) returns (google.protobuf.BoolValue);
//	}
//
// Weights travel as a Struct keyed by weight name. StartTournament takes a
// Struct with numeric "players" and "games" fields.
package grpcengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/broadside/internal/tuning"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "broadside.engine.v1.Engine"

const (
	methodConfigureWeights = "ConfigureWeights"
	methodCurrentWeights   = "CurrentWeights"
	methodStartTournament  = "StartTournament"
	methodTick             = "Tick"
	methodIsComplete       = "IsComplete"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*tuning.Engine)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodConfigureWeights, newStruct, func(ctx context.Context, eng tuning.Engine, req *structpb.Struct) (proto.Message, error) {
			w, err := weightsFromStruct(req)
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			if err := eng.ConfigureWeights(ctx, w); err != nil {
				return nil, toStatus(err)
			}
			return &emptypb.Empty{}, nil
		}),
		unary(methodCurrentWeights, newEmpty, func(ctx context.Context, eng tuning.Engine, _ *emptypb.Empty) (proto.Message, error) {
			w, err := eng.CurrentWeights(ctx)
			if err != nil {
				return nil, toStatus(err)
			}
			return weightsToStruct(w)
		}),
		unary(methodStartTournament, newStruct, func(ctx context.Context, eng tuning.Engine, req *structpb.Struct) (proto.Message, error) {
			players, err := intField(req, "players")
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			games, err := intField(req, "games")
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			if err := eng.StartTournament(ctx, players, games); err != nil {
				return nil, toStatus(err)
			}
			return &emptypb.Empty{}, nil
		}),
		unary(methodTick, newEmpty, func(ctx context.Context, eng tuning.Engine, _ *emptypb.Empty) (proto.Message, error) {
			msg, err := eng.Tick(ctx)
			if err != nil {
				return nil, toStatus(err)
			}
			return wrapperspb.String(msg), nil
		}),
		unary(methodIsComplete, newEmpty, func(ctx context.Context, eng tuning.Engine, _ *emptypb.Empty) (proto.Message, error) {
			done, err := eng.IsComplete(ctx)
			if err != nil {
				return nil, toStatus(err)
			}
			return wrapperspb.Bool(done), nil
		}),
	},
	Streams: []grpc.StreamDesc{},
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newEmpty() *emptypb.Empty    { return &emptypb.Empty{} }

// unary adapts a typed engine call to a grpc.MethodDesc, honouring any
// server interceptor.
func unary[Req proto.Message](name string, newReq func() Req, call func(context.Context, tuning.Engine, Req) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			req := newReq()
			if err := dec(req); err != nil {
				return nil, err
			}
			eng := srv.(tuning.Engine)
			if interceptor == nil {
				return call(ctx, eng, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, req, info, func(ctx context.Context, r interface{}) (interface{}, error) {
				return call(ctx, eng, r.(Req))
			})
		},
	}
}

// Register exposes eng on s.
func Register(s *grpc.Server, eng tuning.Engine) {
	s.RegisterService(&serviceDesc, eng)
}

func toStatus(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

func weightsToStruct(w tuning.WeightVector) (*structpb.Struct, error) {
	fields := make(map[string]interface{}, len(tuning.WeightNames))
	for name, v := range w.Fields() {
		fields[name] = v
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding weights: %v", err)
	}
	return s, nil
}

func weightsFromStruct(s *structpb.Struct) (tuning.WeightVector, error) {
	fields := make(map[string]float64, len(s.GetFields()))
	for name, v := range s.GetFields() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return tuning.WeightVector{}, fmt.Errorf("weight %s is not a number", name)
		}
		fields[name] = n.NumberValue
	}
	w, missing := tuning.WeightsFromFields(fields)
	if len(missing) > 0 {
		return tuning.WeightVector{}, fmt.Errorf("missing weights: %s", strings.Join(missing, ", "))
	}
	return w, nil
}

func intField(s *structpb.Struct, name string) (int, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("missing field %s", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("field %s must be an integer", name)
	}
	return int(n.NumberValue), nil
}
