package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind represents the category of error that occurred during a fetch
type ErrorKind string

const (
	// KindNetwork indicates a network-level error (connection refused, DNS, etc.)
	KindNetwork ErrorKind = "network"
	// KindTimeout indicates the request or the whole attempt timed out
	KindTimeout ErrorKind = "timeout"
	// KindRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	KindRateLimit ErrorKind = "rate_limit"
	// KindServer indicates an upstream server error (HTTP 5xx)
	KindServer ErrorKind = "server"
	// KindPermanent indicates a non-retryable upstream rejection (HTTP 4xx except 429)
	KindPermanent ErrorKind = "permanent"
	// KindParse indicates the response was received but could not be decoded
	KindParse ErrorKind = "parse"
	// KindExhausted indicates all retry attempts were used up
	KindExhausted ErrorKind = "exhausted"
)

// Error is a structured error from a fetch operation. Retryable marks
// transient failures that the retry wrapper may attempt again.
type Error struct {
	Kind       ErrorKind
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a retryable network error
func NewNetworkError(cause error) *Error {
	return &Error{
		Kind:      KindNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(cause error) *Error {
	return &Error{
		Kind:      KindTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// NewParseError creates a retryable parse error. A malformed response is
// treated as recoverable: the next attempt may hit a healthy upstream node.
func NewParseError(cause error) *Error {
	return &Error{
		Kind:      KindParse,
		Retryable: true,
		Message:   "response could not be decoded",
		Cause:     cause,
	}
}

// NewPermanentError creates a non-retryable error
func NewPermanentError(statusCode int, message string) *Error {
	return &Error{
		Kind:       KindPermanent,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewExhaustedError wraps the last underlying cause once retries ran out
func NewExhaustedError(attempts int, cause error) *Error {
	return &Error{
		Kind:      KindExhausted,
		Retryable: false,
		Message:   fmt.Sprintf("all %d attempts failed", attempts),
		Cause:     cause,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate Error
func ClassifyHTTPError(statusCode int) *Error {
	switch {
	case statusCode == 429:
		return &Error{
			Kind:       KindRateLimit,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "rate limit exceeded",
		}
	case statusCode >= 500:
		return &Error{
			Kind:       KindServer,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "server returned an error",
		}
	case statusCode == 408:
		return &Error{
			Kind:       KindTimeout,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "request timed out",
		}
	case statusCode >= 400:
		return NewPermanentError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return NewPermanentError(statusCode, fmt.Sprintf("unexpected status code: %d", statusCode))
	}
}

// IsRetryable reports whether an error is worth another attempt. Context
// cancellation is never retryable: the caller is shutting down or the
// per-fetch deadline has passed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	// Unclassified errors are assumed transient
	return true
}

// Kind extracts the ErrorKind from an error chain, or "" if none is present
func Kind(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
