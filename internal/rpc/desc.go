// Package rpc exposes capture control over gRPC.
//
// The service uses protobuf well-known types only: every method takes
// google.protobuf.Empty and answers a google.protobuf.Struct shaped like the
// matching REST response, so no generated code is required.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "framecap.v1.CaptureControl"

// Method names
const (
	MethodStart        = "Start"
	MethodStop         = "Stop"
	MethodStatus       = "Status"
	MethodRecentFrames = "RecentFrames"
	MethodAllFrames    = "AllFrames"
)

// CaptureControlServer is the server API for the CaptureControl service.
type CaptureControlServer interface {
	Start(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RecentFrames(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AllFrames(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type unaryCall func(CaptureControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CaptureControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CaptureControlServer), ctx, req.(*emptypb.Empty))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes CaptureControl for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CaptureControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodStart, CaptureControlServer.Start),
		unary(MethodStop, CaptureControlServer.Stop),
		unary(MethodStatus, CaptureControlServer.Status),
		unary(MethodRecentFrames, CaptureControlServer.RecentFrames),
		unary(MethodAllFrames, CaptureControlServer.AllFrames),
	},
	Metadata: "framecap/v1/capture_control.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv CaptureControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}
