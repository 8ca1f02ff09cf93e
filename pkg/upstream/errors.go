package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned when a request is refused locally because the
	// upstream asked us to back off.
	ErrRateLimited = errors.New("upstream rate limited")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures (unreachable, timeout).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassAuth represents 401 and 403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassRateLimit represents 429 responses and local cooldown blocks.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassClient represents other 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassDecode represents a success status with a body that is not JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// Error is an upstream failure with its classification.
type Error struct {
	Upstream   string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of err, or "" when err is not an upstream error.
func ClassOf(err error) ErrorClass {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.ErrorClass
	}
	return ""
}

// IsAuthError reports whether err is an authorization-class failure (401/403).
func IsAuthError(err error) bool {
	return ClassOf(err) == ErrorClassAuth
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.StatusCode
	}
	return 0
}

// classifyStatus maps a non-success HTTP status to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorClassAuth
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// statusError builds the error for a non-success response.
// The message format is "API error <code>: <status text>".
func statusError(upstream string, status int) *Error {
	return &Error{
		Upstream:   upstream,
		StatusCode: status,
		ErrorClass: classifyStatus(status),
		Message:    fmt.Sprintf("API error %d: %s", status, http.StatusText(status)),
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	case ErrorClassRateLimit:
		// the retrier waits out the cooldown or gives up
		return true
	default:
		// 4xx, auth and malformed bodies will not change on retry
		return false
	}
}
