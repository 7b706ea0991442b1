// Package ratelimit implements the proactive cost throttle for the Shopify
// GraphQL Admin API.
//
// Every GraphQL response may carry extensions.cost.throttleStatus, which reports
// the size of the shop's query-cost bucket and how much of it is still
// available. The Governor converts that into a percentage used and suspends the
// caller for a random delay once the configured threshold is crossed, before the
// server starts rejecting requests.
package ratelimit

import (
	"fmt"
	"math/rand"
	"time"
)

// Defaults for the governor.
const (
	DefaultThresholdPercent = 50
	DefaultMinDelay         = 1 * time.Second
	DefaultMaxDelay         = 5 * time.Second
)

// Config holds the throttle thresholds. It is immutable once a Governor is built.
type Config struct {
	// ThresholdPercent is the bucket consumption (0-100) at which callers are delayed.
	ThresholdPercent float64

	// MinDelay and MaxDelay bound the random delay applied when over threshold.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DefaultConfig returns the default throttle configuration.
func DefaultConfig() Config {
	return Config{
		ThresholdPercent: DefaultThresholdPercent,
		MinDelay:         DefaultMinDelay,
		MaxDelay:         DefaultMaxDelay,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.ThresholdPercent < 0 || c.ThresholdPercent > 100 {
		return fmt.Errorf("threshold_percent must be within [0, 100] (got %v)", c.ThresholdPercent)
	}
	if c.MinDelay < 0 {
		return fmt.Errorf("min_delay must be >= 0 (got %v)", c.MinDelay)
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max_delay must be >= min_delay (got %v < %v)", c.MaxDelay, c.MinDelay)
	}
	return nil
}

// ThrottleStatus mirrors extensions.cost.throttleStatus in a GraphQL response.
// Fields are pointers so that an incomplete signal can be told apart from zero.
type ThrottleStatus struct {
	MaximumAvailable   *float64 `json:"maximumAvailable"`
	CurrentlyAvailable *float64 `json:"currentlyAvailable"`
	RestoreRate        *float64 `json:"restoreRate,omitempty"`
}

// NewThrottleStatus builds a complete status from plain values.
func NewThrottleStatus(maximum, current float64) *ThrottleStatus {
	return &ThrottleStatus{MaximumAvailable: &maximum, CurrentlyAvailable: &current}
}

// PercentageUsed returns (max - current) / max * 100.
// ok is false when either field is missing or the maximum is not positive.
func (s *ThrottleStatus) PercentageUsed() (pct float64, ok bool) {
	if s == nil || s.MaximumAvailable == nil || s.CurrentlyAvailable == nil {
		return 0, false
	}
	maximum := *s.MaximumAvailable
	if maximum <= 0 {
		return 0, false
	}
	return (maximum - *s.CurrentlyAvailable) / maximum * 100, true
}

// State is a throttle status as recorded in a Store.
type State struct {
	MaximumAvailable   float64   `json:"maximum_available"`
	CurrentlyAvailable float64   `json:"currently_available"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Status converts the stored state back into a ThrottleStatus.
func (s State) Status() *ThrottleStatus {
	return NewThrottleStatus(s.MaximumAvailable, s.CurrentlyAvailable)
}

// RandomDelay returns a uniformly random duration in [minDelay, maxDelay].
func RandomDelay(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}
	return minDelay + time.Duration(rand.Int63n(int64(maxDelay-minDelay)+1))
}
