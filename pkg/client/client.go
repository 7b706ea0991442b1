// Package client provides the Shopify GraphQL Admin API requester with
// classified retry, bounded backoff and proactive cost throttling.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/shopify-catalog-client/pkg/logging"
	"github.com/Sternrassler/shopify-catalog-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_requests_total",
		Help: "Total GraphQL requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopify_request_duration_seconds",
		Help:    "GraphQL request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_errors_total",
		Help: "Total GraphQL request errors by class",
	}, []string{"class"})
)

// DefaultAccessTokenHeader is the header Shopify reads the Admin API token from.
const DefaultAccessTokenHeader = "X-Shopify-Access-Token"

// callLimitHeader is the legacy REST call-limit header, logged when present.
const callLimitHeader = "X-Shopify-Shop-Api-Call-Limit"

// maxErrorBody limits how much of a failed response body is kept.
const maxErrorBody = 1024

type contextKey string

const operationContextKey contextKey = "shopify_operation"

// WithOperation labels requests made with ctx for logs and metrics.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationContextKey, operation)
}

func operationFrom(ctx context.Context) string {
	if v, ok := ctx.Value(operationContextKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the full GraphQL URL, e.g.
	// https://shop.myshopify.com/admin/api/2024-01/graphql.json
	Endpoint string

	// AccessToken is sent in AccessTokenHeader on every request.
	AccessToken       string
	AccessTokenHeader string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// Retry controls bounded retry of transient failures.
	Retry RetryConfig

	// RateLimit controls the proactive cost throttle.
	RateLimit ratelimit.Config

	// ThrottleStore optionally shares throttle state between sessions
	// (e.g. ratelimit.NewRedisStore). Nil keeps state local.
	ThrottleStore ratelimit.Store
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(endpoint, accessToken string) Config {
	return Config{
		Endpoint:          endpoint,
		AccessToken:       accessToken,
		AccessTokenHeader: DefaultAccessTokenHeader,
		Timeout:           30 * time.Second,
		Retry:             DefaultRetryConfig(),
		RateLimit:         ratelimit.DefaultConfig(),
	}
}

// Client issues GraphQL queries. It holds no mutable state beyond the
// governor's last observation and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	governor   *ratelimit.Governor
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
	sleep      ratelimit.SleepFunc
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if cfg.AccessTokenHeader == "" {
		cfg.AccessTokenHeader = DefaultAccessTokenHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %v)", cfg.RequestsPerSecond)
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("retry config: %w", err)
	}

	logger := logging.NewLogger("graphql-client")

	governor, err := ratelimit.NewGovernor(cfg.RateLimit, cfg.ThrottleStore, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("rate limit config: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		governor: governor,
		limiter:  limiter,
		config:   cfg,
		logger:   logger,
		sleep:    ratelimit.Sleep,
	}, nil
}

// Send posts a raw GraphQL query and returns the decoded response.
//
// Rate limits (429), server faults (500, 520) and throttled GraphQL errors are
// retried with backoff up to Retry.MaxAttempts, after which an error wrapping
// ErrRetryExhausted is returned. Any other status, transport failure or
// undecodable body fails immediately with an *APIError.
func (c *Client) Send(ctx context.Context, query string) (*Response, error) {
	operation := operationFrom(ctx)
	logger := c.logger.With().Str("operation", operation).Logger()

	var result *Response
	err := retryWithBackoff(ctx, c.config.Retry, c.sleep, logger, func(attempt int) error {
		resp, err := c.attempt(ctx, logger, operation, query, attempt)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// attempt performs a single request and classifies the outcome.
func (c *Client) attempt(ctx context.Context, logger zerolog.Logger, operation, query string, attempt int) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}
	if _, err := c.governor.Gate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(c.config.AccessTokenHeader, c.config.AccessToken)
	req.Header.Set("Content-Type", "application/graphql")
	req.Header.Set("Accept", "application/json")

	logger.Debug().
		Str("url", c.config.Endpoint).
		Int("attempt", attempt).
		Str("query", query).
		Msg("Executing GraphQL request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(operation, "network_error").Inc()
		logger.Error().Err(err).Int("attempt", attempt).Msg("HTTP request failed")
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "transport failure",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if limit := resp.Header.Get(callLimitHeader); limit != "" {
		logger.Debug().Str("call_limit", limit).Msg("Checking call limit header")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyStatus(resp.StatusCode)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(operation, status).Inc()
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Int("attempt", attempt).
			Str("body", string(body)).
			Msg("GraphQL request failed")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	var parsed Response
	body, err := io.ReadAll(resp.Body)
	if err == nil {
		err = json.Unmarshal(body, &parsed)
	}
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		requestsTotal.WithLabelValues(operation, "decode_error").Inc()
		logger.Error().Err(err).Int("status", resp.StatusCode).Msg("Failed to decode GraphQL response")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}

	if parsed.Throttled() {
		errorsTotal.WithLabelValues(string(ErrorClassThrottled)).Inc()
		requestsTotal.WithLabelValues(operation, "throttled").Inc()
		logger.Warn().Int("attempt", attempt).Msg("GraphQL query throttled")

		delayed, err := c.governor.Observe(ctx, parsed.ThrottleStatus())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassThrottled,
			Message:    "query throttled",
			Err:        parsed.Errors,
			delayed:    delayed,
		}
	}

	requestsTotal.WithLabelValues(operation, status).Inc()

	if len(parsed.Errors) > 0 {
		logger.Warn().Err(parsed.Errors).Msg("GraphQL response carried errors")
	}

	if _, err := c.governor.Observe(ctx, parsed.ThrottleStatus()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	return &parsed, nil
}

// Governor returns the client's cost governor.
func (c *Client) Governor() *ratelimit.Governor {
	return c.governor
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
