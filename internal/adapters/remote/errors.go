package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Transport failure causes
var (
	ErrNetwork           = errors.New("network error")
	ErrTimeout           = errors.New("request timeout")
	ErrServerUnavailable = errors.New("server unavailable")
)

// TransportError reports a request that never produced a usable answer:
// the connection failed, timed out, or the server answered with a 5xx.
type TransportError struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote %s %s %s failed with status %d: %v", e.Op, e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s %s %s failed: %v", e.Op, e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a 4xx answer from the server; it is terminal and never retried
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Details) > 0 {
		parts := make([]string, 0, len(e.Details))
		for field, detail := range e.Details {
			parts = append(parts, fmt.Sprintf("%s: %s", field, detail))
		}
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("remote %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsTransport returns true if err is a TransportError
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsNotFound returns true if the server answered 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsValidation returns true if the server rejected the request data
func IsValidation(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity
}

// IsRetryable returns true if the error indicates a retryable condition
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrServerUnavailable)
}
