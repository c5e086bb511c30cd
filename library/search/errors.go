package search

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Laisky/errors/v2"
)

// ErrorKind tags a search failure.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "timeout"
	KindRateLimit     ErrorKind = "rate_limit"
	KindAPI           ErrorKind = "api_error"
	KindNetwork       ErrorKind = "network_error"
	KindConfiguration ErrorKind = "configuration_error"
	// KindUnknown is reported for errors that did not originate from a provider.
	KindUnknown ErrorKind = "unknown"
)

// Error is the typed error raised by providers.
type Error struct {
	Kind    ErrorKind
	Message string
	// StatusCode is the HTTP status that produced the error, 0 for transport failures.
	StatusCode int
	Err        error
	At         time.Time
}

// NewError constructs an Error of the given kind wrapping cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     cause,
		At:      time.Now(),
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient and worth one more attempt.
// Rate limiting and authentication failures are never retried.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindAPI:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// ClassifyTransportError maps a failed http round trip into a typed Error.
func ClassifyTransportError(err error, timeout time.Duration) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, fmt.Sprintf("search request timed out after %s", timeout), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindTimeout, fmt.Sprintf("search request timed out after %s", timeout), err)
	}

	return NewError(KindNetwork, "network error during search request", err)
}

// ClassifyStatus maps a non-2xx HTTP status into a typed Error.
func ClassifyStatus(status int, body string) *Error {
	var se *Error
	switch {
	case status == 429:
		se = NewError(KindRateLimit, "API rate limit exceeded", errors.New(body))
	case status == 401 || status == 403:
		se = NewError(KindAPI, "invalid API key", errors.New(body))
	default:
		se = NewError(KindAPI, fmt.Sprintf("HTTP error %d", status), errors.New(body))
	}
	se.StatusCode = status
	return se
}
