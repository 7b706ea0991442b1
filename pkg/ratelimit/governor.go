package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cost throttling.
var (
	throttleCurrentlyAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopify_throttle_currently_available",
		Help: "Query cost points currently available in the shop's bucket",
	})

	throttleUsedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopify_throttle_used_percent",
		Help: "Percentage of the query cost bucket in use at the last observation",
	})

	throttleDelaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_throttle_delays_total",
		Help: "Total number of proactive throttle delays by source",
	}, []string{"source"})

	throttleDelaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shopify_throttle_delay_seconds",
		Help:    "Duration of proactive throttle delays",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	})
)

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d with context cancellation support.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Governor delays callers when the reported query cost crosses the threshold.
type Governor struct {
	config Config
	store  Store
	logger zerolog.Logger
	sleep  SleepFunc

	mu           sync.Mutex
	lastObserved time.Time
}

// NewGovernor creates a governor. store may be nil, in which case observations
// are not recorded and Gate never delays. logger should not carry a component
// field; the governor adds component=cost-governor.
func NewGovernor(cfg Config, store Store, logger zerolog.Logger) (*Governor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Governor{
		config: cfg,
		store:  store,
		logger: logger.With().Str("component", "cost-governor").Logger(),
		sleep:  Sleep,
	}, nil
}

// Config returns the governor's configuration.
func (g *Governor) Config() Config {
	return g.config
}

// Observe inspects a cost signal and suspends the caller for a random duration
// in [MinDelay, MaxDelay] when the bucket is at least ThresholdPercent used.
// An absent or incomplete signal is a no-op.
func (g *Governor) Observe(ctx context.Context, status *ThrottleStatus) (bool, error) {
	pct, ok := status.PercentageUsed()
	if !ok {
		return false, nil
	}

	throttleCurrentlyAvailable.Set(*status.CurrentlyAvailable)
	throttleUsedPercent.Set(pct)

	now := time.Now()
	g.mu.Lock()
	g.lastObserved = now
	g.mu.Unlock()

	if g.store != nil {
		state := State{
			MaximumAvailable:   *status.MaximumAvailable,
			CurrentlyAvailable: *status.CurrentlyAvailable,
			UpdatedAt:          now,
		}
		if err := g.store.Save(ctx, state); err != nil {
			g.logger.Warn().Err(err).Msg("Failed to record throttle state")
		}
	}

	g.logger.Debug().
		Float64("used_percent", pct).
		Float64("currently_available", *status.CurrentlyAvailable).
		Float64("maximum_available", *status.MaximumAvailable).
		Msg("Query cost observed")

	if pct < g.config.ThresholdPercent {
		return false, nil
	}
	return true, g.delay(ctx, "observe", pct)
}

// Gate delays the caller if the shared store holds a newer over-threshold
// status than this governor last observed itself, i.e. one recorded by
// another fetch session against the same shop.
func (g *Governor) Gate(ctx context.Context) (bool, error) {
	if g.store == nil {
		return false, nil
	}

	state, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Failed to load throttle state")
		return false, nil
	}
	if state == nil {
		return false, nil
	}

	g.mu.Lock()
	fresh := state.UpdatedAt.After(g.lastObserved)
	if fresh {
		g.lastObserved = state.UpdatedAt
	}
	g.mu.Unlock()
	if !fresh {
		return false, nil
	}

	pct, ok := state.Status().PercentageUsed()
	if !ok || pct < g.config.ThresholdPercent {
		return false, nil
	}
	return true, g.delay(ctx, "gate", pct)
}

func (g *Governor) delay(ctx context.Context, source string, pct float64) error {
	d := RandomDelay(g.config.MinDelay, g.config.MaxDelay)

	throttleDelaysTotal.WithLabelValues(source).Inc()
	throttleDelaySeconds.Observe(d.Seconds())

	g.logger.Warn().
		Str("source", source).
		Float64("used_percent", pct).
		Float64("threshold_percent", g.config.ThresholdPercent).
		Dur("delay", d).
		Msg("Getting close to API cost limit - delaying")

	if err := g.sleep(ctx, d); err != nil {
		return fmt.Errorf("throttle delay: %w", err)
	}
	return nil
}
