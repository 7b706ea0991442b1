// Package logging configures the zerolog logger shared by the catalog client.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug adds query text, cursors and call-limit headers.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs fetch summaries and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs throttle delays, retries and shape mismatches.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed requests only.
	LevelError LogLevel = "error"

	// LevelDisabled silences all output.
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr so stdout stays free for fetched data.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level. Unknown values map to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "trace", "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow detail
//   - GraphQL query text and attempt number
//   - X-Shopify-Shop-Api-Call-Limit header
//   - Pages fetched, cursors, item counts
//
// Info: normal operation events
//   - Fetch summaries (resource, item count)
//   - Metrics server startup
//
// Warn: conditions that slow a fetch down without failing it
//   - Cost throttle delays (local or shared state)
//   - Retry attempts with backoff
//   - GraphQL errors returned alongside data
//   - Responses missing expected fields
//
// Error: a fetch did not complete
//   - Exhausted retries, transport and decode failures
//   - Stalled pagination cursors
//
// Context Fields:
//   - component: graphql-client, cost-governor, page-walker, catalog
//   - operation / resource: catalog resource being fetched
//   - status: HTTP status code
//   - error_class: rate_limit, server, throttled, unclassified, network, decode
//   - attempt, backoff: retry bookkeeping
//   - cursor, page: pagination position
//   - used_percent, delay: cost throttle state
//
// The access token is never logged.
