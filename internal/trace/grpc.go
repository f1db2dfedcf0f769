package trace

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryClientInterceptor sends the trace in ctx, or a new one, as outgoing metadata.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(outgoing(ctx), method, req, reply, cc, opts...)
	}
}

// UnaryServerInterceptor continues the caller's trace, or starts one, and logs
// each call as a span. Conflict answers are not failures.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if caller, ok := remote(firstValue(md)); ok {
			ctx = WithContext(ctx, caller)
		}
		ctx, span := StartSpan(ctx, info.FullMethod)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		span.SetAttr("code", code.String())
		if err != nil && code != codes.AlreadyExists && code != codes.FailedPrecondition {
			span.Fail(err)
		}
		span.End()
		return resp, err
	}
}

func outgoing(ctx context.Context) context.Context {
	tc, ok := FromContext(ctx)
	if !ok {
		tc = newRoot()
	}
	var kv []string
	tc.propagate(func(k, v string) { kv = append(kv, k, v) })
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

func firstValue(md metadata.MD) func(string) string {
	return func(key string) string {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
		return ""
	}
}
