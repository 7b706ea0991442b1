package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during a request or backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassRateLimit represents HTTP 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents HTTP 500 and the opaque platform fault 520.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassThrottled represents a 200 response whose GraphQL errors report throttling.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassUnclassified represents any other non-OK status.
	ErrorClassUnclassified ErrorClass = "unclassified"

	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents unreadable or malformed response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError represents a failed request attempt with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error

	// delayed is set when the cost governor already waited before the retry.
	delayed bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shopify %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("shopify %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classOf extracts the error class from an error chain.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassRateLimit, ErrorClassServer, ErrorClassThrottled:
		return true
	default:
		// Unclassified statuses, transport and decode failures are terminal.
		return false
	}
}

// classifyStatus maps a non-2xx HTTP status to an error class.
func classifyStatus(statusCode int) ErrorClass {
	switch statusCode {
	case 429:
		return ErrorClassRateLimit
	case 500, 520:
		return ErrorClassServer
	default:
		return ErrorClassUnclassified
	}
}
