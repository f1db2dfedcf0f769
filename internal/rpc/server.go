package rpc

import (
	"context"
	"encoding/json"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GriffinCanCode/framecap/internal/capture"
	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
	"github.com/GriffinCanCode/framecap/internal/frames"
	"github.com/GriffinCanCode/framecap/internal/query"
	"github.com/GriffinCanCode/framecap/internal/trace"
)

// MaxFrameBytes is the largest base64 frame a listing is sized for,
// roughly a lossless PNG of a 5K display.
const MaxFrameBytes = 16 << 20

// envelopeBytes covers field names, timestamps and paths around the images.
const envelopeBytes = 1 << 20

// MessageLimit returns the message size needed to list n frames.
// Non-positive n uses the default store capacity; the result is capped at math.MaxInt32.
func MessageLimit(n int) int {
	if n <= 0 {
		n = frames.DefaultCapacity
	}
	limit := int64(n)*MaxFrameBytes + envelopeBytes
	if limit > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(limit)
}

// Controller starts and stops capture.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() capture.Status
}

// Frames answers frame queries.
type Frames interface {
	RecentFrames() []query.FrameRecord
	AllFrames() ([]query.FrameRecord, error)
}

// Result mirrors the REST envelope for control actions.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FramesResult mirrors the REST frame listing.
type FramesResult struct {
	Frames []query.FrameRecord `json:"frames"`
}

// Service implements CaptureControlServer on top of the controller and query service.
// Unlike REST, conflicts surface as gRPC errors: AlreadyExists and FailedPrecondition.
type Service struct {
	ctrl   Controller
	frames Frames
}

// NewService creates the gRPC service.
func NewService(ctrl Controller, queries Frames) *Service {
	return &Service{ctrl: ctrl, frames: queries}
}

// NewServer creates a grpc.Server with tracing and the service registered.
// Responses are limited to MessageLimit of the default capacity unless opts override it.
func NewServer(svc CaptureControlServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.MaxSendMsgSize(MessageLimit(frames.DefaultCapacity)),
	}, opts...)
	s := grpc.NewServer(opts...)
	Register(s, svc)
	return s
}

func (s *Service) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ctrl.Start(ctx); err != nil {
		return nil, grpcError(err)
	}
	return toStruct(Result{Status: "success", Message: capture.MsgStarted})
}

func (s *Service) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ctrl.Stop(ctx); err != nil {
		return nil, grpcError(err)
	}
	return toStruct(Result{Status: "success", Message: capture.MsgStopped})
}

func (s *Service) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.ctrl.Status())
}

func (s *Service) RecentFrames(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(FramesResult{Frames: s.frames.RecentFrames()})
}

func (s *Service) AllFrames(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	all, err := s.frames.AllFrames()
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(FramesResult{Frames: all})
}

// grpcError returns the AppError itself so grpc picks up its GRPCStatus.
func grpcError(err error) error {
	if ae, ok := apperrors.As(err); ok {
		return ae
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, err.Error())
}

// toStruct converts a JSON-tagged value to a Struct with the same shape.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "encode response")
	}
	return out, nil
}

// fromStruct is the inverse of toStruct.
func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "decode response")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "decode response")
	}
	return nil
}
