package request

import (
	"errors"
	"fmt"
)

// Response is the uniform outcome of one request attempt, populated on every path.
type Response struct {
	URL    string
	Method string
	// StatusCode is 0 when the transport failed before any status arrived.
	StatusCode      int
	ResponseHeaders map[string]any
	RequestHeaders  map[string]any
	// Data holds the decoded body, the decode error, or the transport error.
	Data any
}

// IsSuccessStatus reports whether code completes on the success path: 200..300 or 304.
func IsSuccessStatus(code int) bool {
	return (code > 199 && code < 301) || code == 304
}

// ErrorKind classifies how a request ended on the error path.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindDecode    ErrorKind = "decode"
	KindStatus    ErrorKind = "status"
)

// Sentinel errors matched by ResponseError through errors.Is.
var (
	ErrTransport = errors.New("request: transport failure")
	ErrDecode    = errors.New("request: response decode failure")
	ErrStatus    = errors.New("request: unsuccessful status")
)

// ResponseError is the rejection reason of a Future. It carries the full Response.
type ResponseError struct {
	Kind     ErrorKind
	Response *Response
}

// Error implements error interface.
func (e *ResponseError) Error() string {
	if e == nil || e.Response == nil {
		return "<nil>"
	}
	r := e.Response
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("%s %s: transport error: %v", r.Method, r.URL, r.Data)
	case KindDecode:
		return fmt.Sprintf("%s %s: decode error (status %d): %v", r.Method, r.URL, r.StatusCode, r.Data)
	default:
		return fmt.Sprintf("%s %s: status %d", r.Method, r.URL, r.StatusCode)
	}
}

// Is matches the sentinel for the error kind.
func (e *ResponseError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrStatus:
		return e.Kind == KindStatus
	}
	return false
}

// Unwrap exposes the transport or decode error held in Response.Data.
func (e *ResponseError) Unwrap() error {
	if e == nil || e.Response == nil {
		return nil
	}
	if err, ok := e.Response.Data.(error); ok {
		return err
	}
	return nil
}
