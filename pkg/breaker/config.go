package breaker

import (
	"fmt"
	"time"
)

// Default thresholds applied when a Config field is left at its zero value.
const (
	DefaultFailureThreshold     = 5
	DefaultSuccessThreshold     = 3
	DefaultTimeout              = 60 * time.Second
	DefaultHalfOpenMaxCalls     = 3
	DefaultFailureRateThreshold = 0.5
	DefaultWindowSize           = 10
	DefaultSlowCallThreshold    = 5 * time.Second
)

// Config holds the tunable thresholds for one circuit breaker.
// A Config is fixed at breaker creation and never mutated afterwards.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips a
	// closed breaker open.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes required in
	// half-open before the breaker closes again.
	SuccessThreshold int

	// Timeout is how long an open breaker rejects calls before the first
	// recovery probe is allowed through.
	Timeout time.Duration

	// HalfOpenMaxCalls caps the probe budget while half-open. Probe slots
	// are only freed by a state change, not by individual call outcomes.
	HalfOpenMaxCalls int

	// FailureRateThreshold (0..1] trips a closed breaker when the rolling
	// outcome window is full and at least this fraction of it is failures.
	FailureRateThreshold float64

	// WindowSize is the capacity of the rolling outcome window.
	WindowSize int

	// SlowCallThreshold classifies successful calls slower than this as
	// slow. Slow calls are counted for observability only and never
	// influence state transitions.
	SlowCallThreshold time.Duration

	// SlowCallRateThreshold is accepted and reported but intentionally not
	// wired into transitions; only the slow-call counter is maintained.
	SlowCallRateThreshold float64
}

// DefaultConfig returns the thresholds used when a dependency has no
// dedicated configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:      DefaultFailureThreshold,
		SuccessThreshold:      DefaultSuccessThreshold,
		Timeout:               DefaultTimeout,
		HalfOpenMaxCalls:      DefaultHalfOpenMaxCalls,
		FailureRateThreshold:  DefaultFailureRateThreshold,
		WindowSize:            DefaultWindowSize,
		SlowCallThreshold:     DefaultSlowCallThreshold,
		SlowCallRateThreshold: DefaultFailureRateThreshold,
	}
}

// AggressiveConfig trips fast and probes early. Suited for dependencies with
// cheap fallbacks (e.g. the social-posting API) where failing fast is better
// than queueing on a degraded upstream.
func AggressiveConfig() Config {
	return Config{
		FailureThreshold:      3,
		SuccessThreshold:      2,
		Timeout:               30 * time.Second,
		HalfOpenMaxCalls:      2,
		FailureRateThreshold:  0.4,
		WindowSize:            10,
		SlowCallThreshold:     3 * time.Second,
		SlowCallRateThreshold: 0.4,
	}
}

// ConservativeConfig tolerates more failures before tripping and recovers
// cautiously. Suited for dependencies where rejected calls are expensive
// (e.g. the payment processor).
func ConservativeConfig() Config {
	return Config{
		FailureThreshold:      10,
		SuccessThreshold:      5,
		Timeout:               120 * time.Second,
		HalfOpenMaxCalls:      5,
		FailureRateThreshold:  0.7,
		WindowSize:            20,
		SlowCallThreshold:     10 * time.Second,
		SlowCallRateThreshold: 0.7,
	}
}

// PresetConfig resolves a named preset ("default", "aggressive",
// "conservative"). The second return value reports whether name matched.
func PresetConfig(name string) (Config, bool) {
	switch name {
	case "", "default":
		return DefaultConfig(), true
	case "aggressive":
		return AggressiveConfig(), true
	case "conservative":
		return ConservativeConfig(), true
	default:
		return Config{}, false
	}
}

// Validate reports the first invalid threshold. Zero values are legal (they
// are filled in from defaults at breaker creation), negative or out-of-range
// values are not.
func (c Config) Validate() error {
	if c.FailureThreshold < 0 {
		return fmt.Errorf("failure_threshold must not be negative, got %d", c.FailureThreshold)
	}
	if c.SuccessThreshold < 0 {
		return fmt.Errorf("success_threshold must not be negative, got %d", c.SuccessThreshold)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.HalfOpenMaxCalls < 0 {
		return fmt.Errorf("half_open_max_calls must not be negative, got %d", c.HalfOpenMaxCalls)
	}
	if c.FailureRateThreshold < 0 || c.FailureRateThreshold > 1 {
		return fmt.Errorf("failure_rate_threshold must be within [0,1], got %v", c.FailureRateThreshold)
	}
	if c.WindowSize < 0 {
		return fmt.Errorf("window_size must not be negative, got %d", c.WindowSize)
	}
	if c.SlowCallRateThreshold < 0 || c.SlowCallRateThreshold > 1 {
		return fmt.Errorf("slow_call_rate_threshold must be within [0,1], got %v", c.SlowCallRateThreshold)
	}
	return nil
}

// normalized returns a copy with zero values replaced by defaults.
func (c Config) normalized() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = DefaultHalfOpenMaxCalls
	}
	if c.FailureRateThreshold == 0 {
		c.FailureRateThreshold = DefaultFailureRateThreshold
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.SlowCallThreshold == 0 {
		c.SlowCallThreshold = DefaultSlowCallThreshold
	}
	if c.SlowCallRateThreshold == 0 {
		c.SlowCallRateThreshold = DefaultFailureRateThreshold
	}
	return c
}
