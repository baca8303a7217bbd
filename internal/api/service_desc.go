package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "demandsignal.v1.DemandSignal"

// Method names exposed by the service.
const (
	MethodForecast          = "Forecast"
	MethodAssess            = "Assess"
	MethodSummarize         = "Summarize"
	MethodInvalidateSources = "InvalidateSources"
)

// DemandSignalServer is implemented by the service facade. Requests and
// responses are google.protobuf.Struct messages.
type DemandSignalServer interface {
	Forecast(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Assess(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Summarize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	InvalidateSources(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes DemandSignalServer for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DemandSignalServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodForecast, Handler: unaryHandler(MethodForecast, DemandSignalServer.Forecast)},
		{MethodName: MethodAssess, Handler: unaryHandler(MethodAssess, DemandSignalServer.Assess)},
		{MethodName: MethodSummarize, Handler: unaryHandler(MethodSummarize, DemandSignalServer.Summarize)},
		{MethodName: MethodInvalidateSources, Handler: unaryHandler(MethodInvalidateSources, DemandSignalServer.InvalidateSources)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "demandsignal/v1/demand_signal.proto",
}

// RegisterDemandSignalServer registers srv on s.
func RegisterDemandSignalServer(s grpc.ServiceRegistrar, srv DemandSignalServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryCall func(DemandSignalServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// methodHandler matches grpc.MethodDesc.Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(method string, call unaryCall) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DemandSignalServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DemandSignalServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls a remote DemandSignal service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Forecast calls DemandSignal.Forecast.
func (c *Client) Forecast(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodForecast, in, opts...)
}

// Assess calls DemandSignal.Assess.
func (c *Client) Assess(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAssess, in, opts...)
}

// Summarize calls DemandSignal.Summarize.
func (c *Client) Summarize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSummarize, in, opts...)
}

// InvalidateSources calls DemandSignal.InvalidateSources.
func (c *Client) InvalidateSources(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodInvalidateSources, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
