// Package metrics exposes the Prometheus metrics of the catalog client.
// Metrics are defined in their own packages (client, ratelimit, pagination)
// and registered via promauto on the default registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the registerer all client metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler serving the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - shopify_requests_total{operation, status} (Counter): Requests by catalog operation and outcome
//   - shopify_request_duration_seconds{operation} (Histogram): HTTP round-trip duration
//   - shopify_errors_total{class} (Counter): Errors by class (rate_limit, server, throttled,
//     unclassified, network, decode)
//
// Retry Metrics (pkg/client):
//   - shopify_retries_total{error_class} (Counter): Retry attempts by error class
//   - shopify_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - shopify_retry_exhausted_total{error_class} (Counter): Requests that used every attempt
//
// Cost Throttle Metrics (pkg/ratelimit):
//   - shopify_throttle_currently_available (Gauge): Last reported available query cost
//   - shopify_throttle_used_percent (Gauge): Last reported share of the cost bucket in use
//   - shopify_throttle_delays_total{source} (Counter): Delays by source (observe, gate)
//   - shopify_throttle_delay_seconds (Histogram): Duration of throttle delays
//
// Pagination Metrics (pkg/pagination):
//   - shopify_pages_fetched_total{resource} (Counter): Pages fetched per resource
//   - shopify_items_fetched_total{resource} (Counter): Items extracted per resource
//   - shopify_shape_mismatch_total{resource} (Counter): Responses missing the expected path
//
// Example Prometheus Queries:
//
//   # Throttle pressure
//   shopify_throttle_used_percent > 50
//
//   # Retry rate by class
//   sum by (error_class) (rate(shopify_retries_total[5m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(shopify_request_duration_seconds_bucket[5m]))
//
//   # Items per page
//   rate(shopify_items_fetched_total[5m]) / rate(shopify_pages_fetched_total[5m])
