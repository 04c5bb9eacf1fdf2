package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError tags a failure with a stable code such as "UPLOAD_TOO_LARGE" and a
// message safe to show to the caller.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

// FailedPreconditionError reports a request that is well formed but cannot be
// served in the current state, e.g. an unreadable certificate.
func FailedPreconditionError(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

func AlreadyExistsErrorf(format string, args ...any) error {
	return status.Errorf(codes.AlreadyExists, format, args...)
}

func InternalErrorf(format string, args ...any) error {
	return status.Errorf(codes.Internal, format, args...)
}

// StatusFor maps err onto a gRPC status using the sentinels above. Errors that
// already carry a status pass through; context errors keep their own code;
// anything unrecognized is Internal.
func StatusFor(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		var appErr *AppError
		if errors.As(err, &appErr) {
			return InvalidArgumentError(appErr.Message)
		}
		return InvalidArgumentError(err.Error())
	default:
		return InternalErrorf("%v", err)
	}
}
