package llm

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// ErrorKind classifies why an extraction failed.
type ErrorKind int

const (
	// InvalidInput: malformed request inputs, caught before anything is sent.
	InvalidInput ErrorKind = iota + 1
	// TransportError: network or timeout failure. StatusCode is set only when the
	// connection broke after the response headers arrived.
	TransportError
	// ServerError: the endpoint answered with a non-2xx status.
	ServerError
	// MalformedResponse: 2xx status but no recognizable content shape.
	MalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case TransportError:
		return "TransportError"
	case ServerError:
		return "ServerError"
	case MalformedResponse:
		return "MalformedResponse"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinels for errors.Is matching against an *Error of the corresponding kind.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTransport         = errors.New("transport error")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case InvalidInput:
		return ErrInvalidInput
	case TransportError:
		return ErrTransport
	case ServerError:
		return ErrServer
	case MalformedResponse:
		return ErrMalformedResponse
	}
	return nil
}

// Error is a fully classified extraction failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int    // 0 when no HTTP status exists
	Detail     string // raw response body or input problem, verbatim
	Hint       *Hint  // optional diagnostic guidance; never changes Kind
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Detail)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a classified error, or 0 when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// AsError extracts the classified error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func invalidInputf(format string, args ...any) *Error {
	return &Error{Kind: InvalidInput, Detail: fmt.Sprintf(format, args...)}
}

// GRPCCode maps a classified error onto a gRPC status code.
func GRPCCode(err error) codes.Code {
	e, ok := AsError(err)
	if !ok {
		if err == nil {
			return codes.OK
		}
		return codes.Internal
	}
	switch e.Kind {
	case InvalidInput:
		return codes.InvalidArgument
	case TransportError:
		if e.Hint != nil && e.Hint.Code == HintTimeout {
			return codes.DeadlineExceeded
		}
		return codes.Unavailable
	case MalformedResponse:
		return codes.DataLoss
	case ServerError:
		switch e.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return codes.Unauthenticated
		case http.StatusNotFound:
			return codes.NotFound
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return codes.InvalidArgument
		case http.StatusTooManyRequests:
			return codes.ResourceExhausted
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return codes.Unavailable
		case http.StatusGatewayTimeout:
			return codes.DeadlineExceeded
		}
		return codes.Internal
	}
	return codes.Unknown
}
