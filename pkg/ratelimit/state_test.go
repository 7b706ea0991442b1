package ratelimit

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ThresholdPercent != 50 {
		t.Errorf("ThresholdPercent = %v, want 50", cfg.ThresholdPercent)
	}
	if cfg.MinDelay != 1*time.Second {
		t.Errorf("MinDelay = %v, want 1s", cfg.MinDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("MaxDelay = %v, want 5s", cfg.MaxDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "valid", config: Config{ThresholdPercent: 80, MinDelay: time.Second, MaxDelay: 2 * time.Second}},
		{name: "equal bounds", config: Config{ThresholdPercent: 0, MinDelay: time.Second, MaxDelay: time.Second}},
		{name: "threshold above 100", config: Config{ThresholdPercent: 101}, expectError: true},
		{name: "negative threshold", config: Config{ThresholdPercent: -1}, expectError: true},
		{name: "negative min delay", config: Config{ThresholdPercent: 50, MinDelay: -time.Second}, expectError: true},
		{name: "max below min", config: Config{ThresholdPercent: 50, MinDelay: 2 * time.Second, MaxDelay: time.Second}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestThrottleStatus_PercentageUsed(t *testing.T) {
	tests := []struct {
		name       string
		status     *ThrottleStatus
		expectedOK bool
		expected   float64
	}{
		{name: "nil status", status: nil},
		{name: "missing maximum", status: &ThrottleStatus{CurrentlyAvailable: floatPtr(100)}},
		{name: "missing current", status: &ThrottleStatus{MaximumAvailable: floatPtr(1000)}},
		{name: "zero maximum", status: NewThrottleStatus(0, 0)},
		{name: "90 percent used", status: NewThrottleStatus(1000, 100), expectedOK: true, expected: 90},
		{name: "full bucket", status: NewThrottleStatus(2000, 2000), expectedOK: true, expected: 0},
		{name: "empty bucket", status: NewThrottleStatus(1000, 0), expectedOK: true, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, ok := tt.status.PercentageUsed()
			if ok != tt.expectedOK {
				t.Fatalf("ok = %v, want %v", ok, tt.expectedOK)
			}
			if pct != tt.expected {
				t.Errorf("PercentageUsed() = %v, want %v", pct, tt.expected)
			}
		})
	}
}

func TestRandomDelay(t *testing.T) {
	minDelay := 10 * time.Millisecond
	maxDelay := 20 * time.Millisecond

	for i := 0; i < 200; i++ {
		d := RandomDelay(minDelay, maxDelay)
		if d < minDelay || d > maxDelay {
			t.Fatalf("RandomDelay() = %v, want within [%v, %v]", d, minDelay, maxDelay)
		}
	}

	if d := RandomDelay(time.Second, time.Second); d != time.Second {
		t.Errorf("RandomDelay(equal bounds) = %v, want 1s", d)
	}
}
