// Package testutil provides testing utilities for the Shopify catalog client.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines one scripted response of the mock GraphQL endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Body   string
	Header http.Header
}

// MockGraphQL is a scripted GraphQL server. Queued responses are served in
// order; once the queue is empty the handler (if any) answers, otherwise the
// server replies 418 so unexpected requests fail loudly.
type MockGraphQL struct {
	server *httptest.Server

	mu       sync.Mutex
	queue    []MockResponse
	handler  func(body string) MockResponse
	requests []RecordedRequest
}

// NewMockGraphQL creates a new mock GraphQL server.
func NewMockGraphQL() *MockGraphQL {
	mock := &MockGraphQL{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Body:   string(body),
			Header: r.Header.Clone(),
		})

		var resp MockResponse
		switch {
		case len(mock.queue) > 0:
			resp = mock.queue[0]
			mock.queue = mock.queue[1:]
		case mock.handler != nil:
			handler := mock.handler
			mock.mu.Unlock()
			resp = handler(string(body))
			mock.mu.Lock()
		default:
			resp = MockResponse{
				StatusCode: http.StatusTeapot,
				Body:       fmt.Sprintf(`{"errors":"unexpected request #%d"}`, len(mock.requests)),
			}
		}
		mock.mu.Unlock()

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGraphQL) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGraphQL) Close() {
	m.server.Close()
}

// Enqueue appends scripted responses.
func (m *MockGraphQL) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// SetHandler answers requests once the queue is drained.
func (m *MockGraphQL) SetHandler(handler func(body string) MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// Requests returns a copy of all recorded requests.
func (m *MockGraphQL) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests made to the server.
func (m *MockGraphQL) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears the queue and recorded requests.
func (m *MockGraphQL) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.requests = nil
}

// NewDataResponse creates a 200 OK response wrapping data as {"data": ...}.
func NewDataResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"data":%s}`, data),
	}
}

// NewCostedDataResponse creates a 200 OK response with a cost report.
func NewCostedDataResponse(data string, maximum, current float64) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: fmt.Sprintf(`{"data":%s,"extensions":{"cost":{"requestedQueryCost":10,"throttleStatus":{"maximumAvailable":%v,"currentlyAvailable":%v,"restoreRate":50}}}}`,
			data, maximum, current),
	}
}

// NewThrottledResponse creates a 200 OK response whose errors report throttling.
func NewThrottledResponse(maximum, current float64) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: fmt.Sprintf(`{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}],"extensions":{"cost":{"requestedQueryCost":10,"throttleStatus":{"maximumAvailable":%v,"currentlyAvailable":%v,"restoreRate":50}}}}`,
			maximum, current),
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors":"Exceeded 2 calls per second for api client. Reduce request rates to resume uninterrupted service."}`,
		Headers:    map[string]string{"Retry-After": "1.0"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors":"Internal Server Error"}`,
	}
}

// NewStatusResponse creates a response with an arbitrary status.
func NewStatusResponse(statusCode int) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body:       fmt.Sprintf(`{"errors":"status %d"}`, statusCode),
	}
}
