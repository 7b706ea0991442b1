package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "throttled should retry", errorClass: ErrorClassThrottled, expected: true},
		{name: "unclassified should not retry", errorClass: ErrorClassUnclassified, expected: false},
		{name: "network error should not retry", errorClass: ErrorClassNetwork, expected: false},
		{name: "decode error should not retry", errorClass: ErrorClassDecode, expected: false},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{status: 429, expected: ErrorClassRateLimit},
		{status: 500, expected: ErrorClassServer},
		{status: 520, expected: ErrorClassServer},
		{status: 502, expected: ErrorClassUnclassified},
		{status: 503, expected: ErrorClassUnclassified},
		{status: 401, expected: ErrorClassUnclassified},
		{status: 404, expected: ErrorClassUnclassified},
		{status: 302, expected: ErrorClassUnclassified},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 0,
				ErrorClass: ErrorClassNetwork,
				Message:    "transport failure",
				Err:        errors.New("connection refused"),
			},
			expected: "shopify network error (status 0): transport failure: connection refused",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassUnclassified,
				Message:    "404 Not Found",
			},
			expected: "shopify unclassified error (status 404): 404 Not Found",
		},
		{
			name: "rate limit error",
			apiError: &APIError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "429 Too Many Requests",
			},
			expected: "shopify rate_limit error (status 429): 429 Too Many Requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.apiError.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if unwrapped := apiError.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}
	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestClassOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &APIError{ErrorClass: ErrorClassServer})
	if got := classOf(wrapped); got != ErrorClassServer {
		t.Errorf("classOf(wrapped) = %q, want %q", got, ErrorClassServer)
	}
	if got := classOf(errors.New("plain")); got != "" {
		t.Errorf("classOf(plain) = %q, want empty", got)
	}
}
