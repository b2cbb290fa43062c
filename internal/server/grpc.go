package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/internal/metrics"
	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/tools"
)

// Tool service names
const (
	ToolServiceName = "contentmcp.v1.ToolService"
	InvokeMethod    = "/" + ToolServiceName + "/Invoke"
)

// Trailer keys carrying the fault classification of a failed Invoke
const (
	TrailerErrorKind    = "contentmcp-error-kind"
	TrailerRetryable    = "contentmcp-retryable"
	TrailerRequeryState = "contentmcp-requery-state"
)

// HeaderInvocationID is the response header carrying the invocation id
const HeaderInvocationID = "contentmcp-invocation-id"

const maxMessageSize = 128 << 20

// ToolServiceServer is the server API of contentmcp.v1.ToolService. Requests
// are {"tool": name, "arguments": {...}}; responses are
// {"tool": name, "summary": text, "result": {...}}.
type ToolServiceServer interface {
	Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ToolServiceDesc describes the tool service for grpc.Server.RegisterService
var ToolServiceDesc = grpc.ServiceDesc{
	ServiceName: ToolServiceName,
	HandlerType: (*ToolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: invokeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contentmcp/v1/tools.proto",
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolServiceServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvokeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ToolServiceServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// InvokeTool calls one tool through a gRPC connection
func InvokeTool(ctx context.Context, cc grpc.ClientConnInterface, tool string, args map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if args == nil {
		args = map[string]any{}
	}
	req, err := structpb.NewStruct(map[string]any{"tool": tool, "arguments": args})
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, InvokeMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCServer serves the tool facade over gRPC with health and reflection
type GRPCServer struct {
	facade  *tools.Facade
	metrics *metrics.Metrics
	log     *logger.Logger
	grpc    *grpc.Server
	health  *health.Server
}

// NewGRPCServer creates a gRPC server with the tool service registered
func NewGRPCServer(f *tools.Facade, m *metrics.Metrics, log *logger.Logger) (*GRPCServer, error) {
	if f == nil {
		return nil, errors.New("server: tool facade is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &GRPCServer{
		facade:  f,
		metrics: m,
		log:     log,
		health:  health.NewServer(),
	}
	s.grpc = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
		grpc.ChainUnaryInterceptor(GrpcMetricsInterceptor(m, log)),
	)
	s.grpc.RegisterService(&ToolServiceDesc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.health.SetServingStatus(ToolServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

// Serve accepts connections on lis until Stop or GracefulStop
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.log.LogServerReady("grpc", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// GracefulStop marks the service not serving and drains in-flight calls
func (s *GRPCServer) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Stop closes all connections immediately
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.grpc.Stop()
}

// Invoke runs the tool named in req
func (s *GRPCServer) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	name := fields["tool"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "tool is required")
	}
	if !s.facade.Has(name) {
		return nil, status.Errorf(codes.NotFound, "unknown tool %q", name)
	}
	var args json.RawMessage
	if v, ok := fields["arguments"]; ok && v.GetStructValue() != nil {
		raw, err := v.GetStructValue().MarshalJSON()
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "arguments: %v", err)
		}
		args = raw
	}

	var (
		out tools.Output
		id  string
	)
	err := observeToolCall(ctx, s.metrics, s.log, "grpc", name, func(ctx context.Context) error {
		id = InvocationID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(HeaderInvocationID, id))
		var err error
		out, err = s.facade.Call(ctx, name, args)
		return err
	})
	if err != nil {
		return nil, s.faultStatus(ctx, err)
	}

	result, err := toStruct(out)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"tool":          structpb.NewStringValue(name),
		"invocation_id": structpb.NewStringValue(id),
		"summary":       structpb.NewStringValue(out.SummaryText()),
		"result":        structpb.NewStructValue(result),
	}}, nil
}

func (s *GRPCServer) faultStatus(ctx context.Context, err error) error {
	env := classifyToolError(err)
	_ = grpc.SetTrailer(ctx, metadata.Pairs(
		TrailerErrorKind, env.Kind,
		TrailerRetryable, strconv.FormatBool(env.Retryable),
		TrailerRequeryState, strconv.FormatBool(env.RequeryState),
	))
	return status.Error(FaultCode(faults.Kind(env.Kind)), env.Message)
}

// FaultCode maps a fault kind to a gRPC status code
func FaultCode(kind faults.Kind) codes.Code {
	switch kind {
	case faults.KindValidation, faults.KindEmptyQuery, faults.KindUnknownPreset, faults.KindInvalidComparison:
		return codes.InvalidArgument
	case faults.KindNodeNotFound:
		return codes.NotFound
	case faults.KindAlreadyCheckedOut, faults.KindNotCheckedOut:
		return codes.FailedPrecondition
	case faults.KindVersioningUnsupported:
		return codes.Unimplemented
	case faults.KindBackendUnavailable:
		return codes.Unavailable
	case faults.KindIndeterminate:
		return codes.Unknown
	default:
		return codes.Internal
	}
}

func toStruct(out tools.Output) (*structpb.Struct, error) {
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	st := new(structpb.Struct)
	if err := st.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return st, nil
}
