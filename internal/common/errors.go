package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Application error codes carried by AppError.Code.
const (
	CodeConfig   = "CONFIG_ERROR"
	CodeInput    = "INPUT_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeExport   = "EXPORT_ERROR"
)

// AppError is a failure outside the extraction core: configuration, input files, storage, export.
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
	ErrUnsupported  = errors.New("unsupported file type")
	ErrValidation   = errors.New("validation failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == code
}

// StatusCode maps application errors onto gRPC codes. Errors that already carry a gRPC status
// keep it.
func StatusCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupported), errors.Is(err, ErrValidation),
		HasCode(err, CodeInput):
		return codes.InvalidArgument
	case HasCode(err, CodeConfig):
		return codes.FailedPrecondition
	case HasCode(err, CodeDatabase):
		return codes.Unavailable
	}
	return codes.Internal
}

// StatusError converts err into a gRPC status error, prefixing the message with op.
func StatusError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(StatusCode(err), op+": "+err.Error())
}

func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalErrorf(format string, args ...any) error {
	return status.Error(codes.Internal, fmt.Sprintf(format, args...))
}
