// Package config assembles the client, throttle, catalog and logging
// configuration from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/shopify-catalog-client/pkg/catalog"
	"github.com/Sternrassler/shopify-catalog-client/pkg/client"
	"github.com/Sternrassler/shopify-catalog-client/pkg/logging"
	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvAPIURI              = "SHOPIFY_API_URI"
	EnvAPIToken            = "SHOPIFY_API_TOKEN"
	EnvAPITokenHeader      = "SHOPIFY_API_TOKEN_HEADER"
	EnvRateLimit           = "SHOPIFY_API_RATE_LIMIT"
	EnvMinDelayMS          = "SHOPIFY_API_MIN_DELAY_MS"
	EnvMaxDelayMS          = "SHOPIFY_API_MAX_DELAY_MS"
	EnvMaxAttempts         = "SHOPIFY_API_MAX_ATTEMPTS"
	EnvRequestsPerSecond   = "SHOPIFY_API_REQUESTS_PER_SECOND"
	EnvTimeout             = "SHOPIFY_API_TIMEOUT"
	EnvCollectionPageSize  = "SHOPIFY_API_GRAPHQL_COLLECTIONS"
	EnvProductPageSize     = "SHOPIFY_API_GRAPHQL_PRODUCTS"
	EnvPublicationPageSize = "SHOPIFY_API_GRAPHQL_PUBLICATION_PRODUCTS"
	EnvPublicationID       = "SHOPIFY_PUBLICATION_ID"
	EnvStrictShape         = "SHOPIFY_STRICT_SHAPE"
	EnvMaxPages            = "SHOPIFY_MAX_PAGES"
	EnvRedisURL            = "REDIS_URL"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogPretty           = "LOG_PRETTY"
	EnvDebug               = "DEBUG"
)

// Config is the complete runtime configuration.
type Config struct {
	Client  client.Config
	Catalog catalog.Config
	Logging logging.Config

	// RedisURL enables the shared throttle store when set.
	RedisURL string
}

// Load reads the given .env files (".env" when none are given) and then the
// environment. Missing files are ignored; variables already set in the
// environment take precedence over file values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	var p parser

	cfg := Config{
		Client:   client.DefaultConfig(os.Getenv(EnvAPIURI), os.Getenv(EnvAPIToken)),
		Catalog:  catalog.DefaultConfig(),
		Logging:  logging.DefaultConfig(),
		RedisURL: os.Getenv(EnvRedisURL),
	}

	if h := os.Getenv(EnvAPITokenHeader); h != "" {
		cfg.Client.AccessTokenHeader = h
	}
	cfg.Client.Timeout = p.duration(EnvTimeout, cfg.Client.Timeout)
	cfg.Client.RequestsPerSecond = p.float(EnvRequestsPerSecond, cfg.Client.RequestsPerSecond)
	cfg.Client.Retry.MaxAttempts = p.int(EnvMaxAttempts, cfg.Client.Retry.MaxAttempts)

	// The delay bounds apply to both the retry backoff and the throttle delay.
	minDelay := p.millis(EnvMinDelayMS, cfg.Client.RateLimit.MinDelay)
	maxDelay := p.millis(EnvMaxDelayMS, cfg.Client.RateLimit.MaxDelay)
	cfg.Client.Retry.MinDelay, cfg.Client.Retry.MaxDelay = minDelay, maxDelay
	cfg.Client.RateLimit.MinDelay, cfg.Client.RateLimit.MaxDelay = minDelay, maxDelay
	cfg.Client.RateLimit.ThresholdPercent = p.float(EnvRateLimit, cfg.Client.RateLimit.ThresholdPercent)

	cfg.Catalog.CollectionPageSize = p.int(EnvCollectionPageSize, cfg.Catalog.CollectionPageSize)
	cfg.Catalog.ProductPageSize = p.int(EnvProductPageSize, cfg.Catalog.ProductPageSize)
	cfg.Catalog.PublicationPageSize = p.int(EnvPublicationPageSize, cfg.Catalog.PublicationPageSize)
	cfg.Catalog.TargetPublicationID = os.Getenv(EnvPublicationID)
	cfg.Catalog.StrictShape = p.bool(EnvStrictShape, false)
	cfg.Catalog.MaxPages = p.int(EnvMaxPages, 0)

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Logging.Level = logging.LogLevel(strings.ToLower(lvl))
	}
	if p.bool(EnvDebug, false) {
		cfg.Logging.Level = logging.LevelDebug
	}
	cfg.Logging.Pretty = p.bool(EnvLogPretty, false)

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that can be checked before constructing clients.
func (c Config) Validate() error {
	if c.Client.Endpoint == "" {
		return fmt.Errorf("%s is required", EnvAPIURI)
	}
	if c.Client.AccessToken == "" {
		return fmt.Errorf("%s is required", EnvAPIToken)
	}
	if err := c.Client.Retry.Validate(); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}
	if err := c.Client.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit config: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog config: %w", err)
	}
	return nil
}

// parser reads typed values and keeps the first error.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, value, kind string) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: invalid %s %q", key, kind, value)
	}
}

func (p *parser) int(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, "integer")
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, "number")
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "boolean")
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, "duration")
		return def
	}
	return d
}

func (p *parser) millis(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.fail(key, v, "millisecond count")
		return def
	}
	return time.Duration(n) * time.Millisecond
}
