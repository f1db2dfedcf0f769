package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GriffinCanCode/framecap/internal/capture"
	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/query"
	"github.com/GriffinCanCode/framecap/internal/trace"
)

// Client calls a remote CaptureControl service.
// Errors carry the server's AppError code (see apperrors.FromGRPCError).
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for addr over an insecure connection. Frame listings
// up to MessageLimit of the default capacity are accepted; pass
// WithCapacity for servers holding more.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
		WithCapacity(0),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "create grpc client").WithMetadata("addr", addr)
	}
	return &Client{conn: conn}, nil
}

// WithCapacity sizes the receive limit for a server storing n frames.
func WithCapacity(n int) grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(MessageLimit(n)))
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, v any) error {
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, fullMethod(method), &emptypb.Empty{}, out); err != nil {
		return apperrors.FromGRPCError(err)
	}
	return fromStruct(out, v)
}

func (c *Client) action(ctx context.Context, method string) (string, error) {
	var res Result
	if err := c.call(ctx, method, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// Start begins capture and returns the server's message.
func (c *Client) Start(ctx context.Context) (string, error) {
	return c.action(ctx, MethodStart)
}

// Stop ends capture and returns the server's message.
func (c *Client) Stop(ctx context.Context) (string, error) {
	return c.action(ctx, MethodStop)
}

// Status returns the remote capture status.
func (c *Client) Status(ctx context.Context) (capture.Status, error) {
	var st capture.Status
	err := c.call(ctx, MethodStatus, &st)
	return st, err
}

// RecentFrames returns the remote in-memory window, oldest first.
func (c *Client) RecentFrames(ctx context.Context) ([]query.FrameRecord, error) {
	var res FramesResult
	err := c.call(ctx, MethodRecentFrames, &res)
	return res.Frames, err
}

// AllFrames returns every frame on the remote disk, newest first.
func (c *Client) AllFrames(ctx context.Context) ([]query.FrameRecord, error) {
	var res FramesResult
	err := c.call(ctx, MethodAllFrames, &res)
	return res.Frames, err
}
