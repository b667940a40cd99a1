package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// ScoringServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct values mirroring the REST JSON bodies.
const ScoringServiceName = "scoring.v1.ScoringService"

const (
	methodComputeTrustScore = "/" + ScoringServiceName + "/ComputeTrustScore"
	methodModerateCampaign  = "/" + ScoringServiceName + "/ModerateCampaign"
)

// ScoringServer is the server API for scoring.v1.ScoringService.
type ScoringServer interface {
	ComputeTrustScore(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ModerateCampaign(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ScoringServiceDesc describes scoring.v1.ScoringService for grpc.Server.RegisterService.
var ScoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ScoringServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComputeTrustScore", Handler: unaryHandler(methodComputeTrustScore, ScoringServer.ComputeTrustScore)},
		{MethodName: "ModerateCampaign", Handler: unaryHandler(methodModerateCampaign, ScoringServer.ModerateCampaign)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scoring/v1/scoring.proto",
}

func RegisterScoringServer(s grpc.ServiceRegistrar, srv ScoringServer) {
	s.RegisterService(&ScoringServiceDesc, srv)
}

type structMethod func(ScoringServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScoringServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ScoringServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type GrpcServer struct {
	trust      TrustEngine
	moderation ModerationEngine
	logger     *zap.Logger
}

func NewGrpcServer(trust TrustEngine, moderation ModerationEngine, logger *zap.Logger) *GrpcServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrpcServer{trust: trust, moderation: moderation, logger: logger}
}

func (s *GrpcServer) ComputeTrustScore(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req trustScoreRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "userId is required")
	}

	result, err := s.trust.ComputeTrustScore(ctx, req.UserID, req.TriggerEvent)
	if err != nil {
		return nil, s.grpcError("ComputeTrustScore", err)
	}
	return toStruct(result)
}

func (s *GrpcServer) ModerateCampaign(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req domain.ModerationRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.moderation.ModerateCampaign(ctx, req)
	if err != nil {
		return nil, s.grpcError("ModerateCampaign", err)
	}
	return toStruct(result)
}

func (s *GrpcServer) grpcError(method string, err error) error {
	code := CodeFor(err)
	if code == codes.Internal || code == codes.Unavailable {
		s.logger.Error("gRPC call failed", zap.String("method", method), zap.Error(err))
		return status.Error(code, publicMessage(domain.ErrorKind(err)))
	}
	return status.Error(code, err.Error())
}

// CodeFor maps the error taxonomy onto gRPC status codes.
func CodeFor(err error) codes.Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrDataAccess):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// toStruct converts a JSON-tagged value to a Struct through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v interface{}) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
