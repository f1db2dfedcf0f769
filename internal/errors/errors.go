// Package errors provides unified error handling for capture, storage and transport layers.
// Codes map onto both HTTP and gRPC status codes so the REST API and the control plane
// report the same taxonomy.
package errors

import (
	"fmt"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is the ErrorInfo domain attached to gRPC statuses.
const Domain = "framecap"

// Code classifies an AppError.
type Code int

const (
	CodeUnknown Code = iota
	CodeInternal
	CodeInvalidArgument
	CodeAlreadyRunning
	CodeNotRunning
	CodeCaptureFailed
	CodeEncodeFailed
	CodePersistFailed
	CodeResourceExhausted
	CodeReadFailed
	CodeConfigInvalid
)

var codeNames = map[Code]string{
	CodeUnknown:           "UNKNOWN",
	CodeInternal:          "INTERNAL",
	CodeInvalidArgument:   "INVALID_ARGUMENT",
	CodeAlreadyRunning:    "ALREADY_RUNNING",
	CodeNotRunning:        "NOT_RUNNING",
	CodeCaptureFailed:     "CAPTURE_FAILED",
	CodeEncodeFailed:      "ENCODE_FAILED",
	CodePersistFailed:     "PERSIST_FAILED",
	CodeResourceExhausted: "RESOURCE_EXHAUSTED",
	CodeReadFailed:        "READ_FAILED",
	CodeConfigInvalid:     "CONFIG_INVALID",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// codeFromString is the inverse of Code.String.
func codeFromString(s string) Code {
	for c, name := range codeNames {
		if name == s {
			return c
		}
	}
	return CodeUnknown
}

// grpcCodeMap maps Code to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:           codes.Unknown,
	CodeInternal:          codes.Internal,
	CodeInvalidArgument:   codes.InvalidArgument,
	CodeAlreadyRunning:    codes.AlreadyExists,
	CodeNotRunning:        codes.FailedPrecondition,
	CodeCaptureFailed:     codes.Unavailable,
	CodeEncodeFailed:      codes.Internal,
	CodePersistFailed:     codes.Internal,
	CodeResourceExhausted: codes.ResourceExhausted,
	CodeReadFailed:        codes.Internal,
	CodeConfigInvalid:     codes.InvalidArgument,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// IsConflict reports whether the error is a state conflict rather than a fault.
func (e *AppError) IsConflict() bool {
	return e.Code == CodeAlreadyRunning || e.Code == CodeNotRunning
}

// HTTPStatus returns the status code used by the REST API.
// Conflicts are answered with 200 and an error envelope.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeAlreadyRunning, CodeNotRunning:
		return http.StatusOK
	case CodeInvalidArgument, CodeConfigInvalid:
		return http.StatusBadRequest
	case CodeCaptureFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// ToProto converts to an ErrorInfo detail message.
func (e *AppError) ToProto() *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: e.Code.String(), Domain: Domain}
	if len(e.Metadata) > 0 {
		info.Metadata = e.Metadata
	}
	return info
}

// GRPCStatus returns a gRPC status with the ErrorInfo attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Message)
	if withDetail, err := st.WithDetails(e.ToProto()); err == nil {
		return withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts AppError from a gRPC error if present.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return &AppError{
				Code:     codeFromString(info.GetReason()),
				Message:  st.Message(),
				Metadata: info.GetMetadata(),
			}
		}
	}

	return &AppError{Code: grpcToErrorCode(st.Code()), Message: st.Message()}
}

// grpcToErrorCode maps gRPC codes back to our error codes (best effort).
func grpcToErrorCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidArgument
	case codes.AlreadyExists:
		return CodeAlreadyRunning
	case codes.FailedPrecondition:
		return CodeNotRunning
	case codes.Unavailable:
		return CodeCaptureFailed
	case codes.ResourceExhausted:
		return CodeResourceExhausted
	case codes.Internal:
		return CodeInternal
	default:
		return CodeUnknown
	}
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsFatal reports whether an error must end a capture loop.
// Only encode failures skip the frame; everything else, unclassified included, is fatal.
func IsFatal(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return true
	}
	return appErr.Code != CodeEncodeFailed
}
