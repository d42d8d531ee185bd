package breaker

import (
	"time"
)

// Status is a self-consistent snapshot of one breaker, taken under the same
// lock that outcome recording uses. It is what the admin API serializes.
type Status struct {
	Name              string         `json:"name"`
	State             string         `json:"state"`
	StateSince        time.Time      `json:"state_since"`
	RecoveryInSeconds *float64       `json:"recovery_in_seconds"`
	HalfOpenCalls     int            `json:"half_open_calls"`
	WindowFill        int            `json:"window_fill"`
	Metrics           StatusMetrics  `json:"metrics"`
	RecentFailures    []FailureEntry `json:"recent_failures"`
	Config            StatusConfig   `json:"config"`
}

// StatusMetrics carries the lifetime counters and the rolling-window view.
type StatusMetrics struct {
	TotalCalls            int64      `json:"total_calls"`
	SuccessfulCalls       int64      `json:"successful_calls"`
	FailedCalls           int64      `json:"failed_calls"`
	RejectedCalls         int64      `json:"rejected_calls"`
	SlowCalls             int64      `json:"slow_calls"`
	StateChanges          int64      `json:"state_changes"`
	FailureRate           float64    `json:"failure_rate"`
	AverageResponseTimeMS float64    `json:"avg_response_time_ms"`
	ConsecutiveFailures   int        `json:"consecutive_failures"`
	ConsecutiveSuccesses  int        `json:"consecutive_successes"`
	LastFailureTime       *time.Time `json:"last_failure_time"`
	LastSuccessTime       *time.Time `json:"last_success_time"`
	CreatedAt             time.Time  `json:"created_at"`
}

// FailureEntry is one recorded failure in a status snapshot.
type FailureEntry struct {
	Time  time.Time `json:"time"`
	Error string    `json:"error"`
	Kind  string    `json:"type"`
}

// StatusConfig echoes the effective thresholds so an operator reading a
// snapshot does not have to cross-reference deployed configuration.
type StatusConfig struct {
	FailureThreshold     int     `json:"failure_threshold"`
	SuccessThreshold     int     `json:"success_threshold"`
	TimeoutSeconds       float64 `json:"timeout_seconds"`
	HalfOpenMaxCalls     int     `json:"half_open_max_calls"`
	FailureRateThreshold float64 `json:"failure_rate_threshold"`
	WindowSize           int     `json:"window_size"`
	SlowCallThresholdMS  int64   `json:"slow_call_threshold_ms"`
}

// Status returns a consistent snapshot of state, counters and config.
//
// RecoveryInSeconds is only set while open: remaining time until the next
// call may probe, clamped at zero once the timeout has already elapsed.
// FailureRate is the failure fraction of the current rolling window, not the
// lifetime ratio; the lifetime numbers stay derivable from the counters.
func (b *CircuitBreaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{
		Name:           b.name,
		State:          b.state.String(),
		StateSince:     b.lastStateChange,
		HalfOpenCalls:  b.halfOpenCalls,
		WindowFill:     len(b.failureWindow),
		RecentFailures: b.metrics.lastFailures(recentFailuresShown),
		Metrics: StatusMetrics{
			TotalCalls:            b.metrics.totalCalls,
			SuccessfulCalls:       b.metrics.successfulCalls,
			FailedCalls:           b.metrics.failedCalls,
			RejectedCalls:         b.metrics.rejectedCalls,
			SlowCalls:             b.metrics.slowCalls,
			StateChanges:          b.metrics.stateChanges,
			FailureRate:           b.windowFailureRate(),
			AverageResponseTimeMS: b.metrics.avgResponseTime(),
			ConsecutiveFailures:   b.consecutiveFailures,
			ConsecutiveSuccesses:  b.consecutiveSuccesses,
			CreatedAt:             b.metrics.createdAt,
		},
		Config: StatusConfig{
			FailureThreshold:     b.config.FailureThreshold,
			SuccessThreshold:     b.config.SuccessThreshold,
			TimeoutSeconds:       b.config.Timeout.Seconds(),
			HalfOpenMaxCalls:     b.config.HalfOpenMaxCalls,
			FailureRateThreshold: b.config.FailureRateThreshold,
			WindowSize:           b.config.WindowSize,
			SlowCallThresholdMS:  b.config.SlowCallThreshold.Milliseconds(),
		},
	}

	if !b.metrics.lastFailureTime.IsZero() {
		t := b.metrics.lastFailureTime
		st.Metrics.LastFailureTime = &t
	}
	if !b.metrics.lastSuccessTime.IsZero() {
		t := b.metrics.lastSuccessTime
		st.Metrics.LastSuccessTime = &t
	}

	if b.state == StateOpen {
		remaining := b.config.Timeout.Seconds() - b.clock().Sub(b.lastStateChange).Seconds()
		if remaining < 0 {
			remaining = 0
		}
		st.RecoveryInSeconds = &remaining
	}
	return st
}
