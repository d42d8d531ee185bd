// Package breaker implements the per-dependency call-guarding engine.
// Every unreliable outbound dependency (LLM providers, payment processor,
// social-posting API, vision API) is protected by a named CircuitBreaker that
// detects sustained failure, fast-fails calls while the dependency is
// unhealthy, and probes for recovery before re-opening traffic. A Registry
// owns the breakers for a process and a Guard wraps the actual calls.
//
// State is held in memory only and starts cold on every process start; the
// audit/event layers above this package record history, the engine itself
// does not persist anything.
package breaker

import (
	"sync"
	"time"

	"CircuitLane/pkg/errors"
)

// State is the admission mode of a breaker.
type State int

const (
	// StateClosed is the normal operating state: calls pass through and
	// outcomes are tracked.
	StateClosed State = iota
	// StateOpen is the failing-fast state: calls are rejected without
	// attempting the underlying operation.
	StateOpen
	// StateHalfOpen is the recovery-probing state: a limited number of
	// calls are allowed through to test dependency health.
	StateHalfOpen
)

// String returns the snapshot/log label of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// StateChangeFunc observes a completed state transition. Listeners run on
// their own goroutines; a panicking listener is recovered and dropped so it
// cannot take down callers.
type StateChangeFunc func(name string, from, to State)

// CircuitBreaker guards calls to a single named dependency.
//
// One mutex serializes CanExecute, RecordSuccess, RecordFailure,
// RecordRejection and Status, so concurrent outcome reports always observe
// each other's counter updates. The lock covers in-memory bookkeeping only,
// never the guarded call itself.
type CircuitBreaker struct {
	name          string
	config        Config
	clock         func() time.Time
	onStateChange []StateChangeFunc

	mu                   sync.Mutex
	state                State
	metrics              *metrics
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenCalls        int
	lastStateChange      time.Time

	// failureWindow records outcome-is-failure per call, oldest entries
	// evicted once WindowSize is reached.
	failureWindow []bool
}

// Option configures a CircuitBreaker at creation.
type Option func(*CircuitBreaker)

// WithConfig sets the breaker thresholds. Zero fields are filled in from
// defaults.
func WithConfig(cfg Config) Option {
	return func(b *CircuitBreaker) {
		b.config = cfg
	}
}

// WithClock overrides the time source. Tests use this to step through the
// open timeout without sleeping.
func WithClock(clock func() time.Time) Option {
	return func(b *CircuitBreaker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithOnStateChange registers a transition listener.
func WithOnStateChange(fn StateChangeFunc) Option {
	return func(b *CircuitBreaker) {
		if fn != nil {
			b.onStateChange = append(b.onStateChange, fn)
		}
	}
}

// New creates a closed breaker for the named dependency.
func New(name string, opts ...Option) *CircuitBreaker {
	b := &CircuitBreaker{
		name:   name,
		config: DefaultConfig(),
		clock:  time.Now,
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.config = b.config.normalized()

	now := b.clock()
	b.metrics = newMetrics(now)
	b.lastStateChange = now
	b.failureWindow = make([]bool, 0, b.config.WindowSize)
	return b
}

// Name returns the dependency name this breaker guards.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// Config returns the breaker's effective (normalized) configuration.
func (b *CircuitBreaker) Config() Config {
	return b.config
}

// State returns the current admission mode.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CanExecute reports whether a call may proceed right now.
//
// Closed always admits. Open admits only once the timeout has elapsed, in
// which case the breaker moves to half-open and the admitted call becomes the
// first recovery probe. Half-open admits while probe budget remains; each
// admission consumes a slot that is only freed by the next state change.
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.clock().Sub(b.lastStateChange) >= b.config.Timeout {
			b.transitionTo(StateHalfOpen)
			// The call that triggered recovery testing takes the first
			// probe slot.
			b.halfOpenCalls++
			return true
		}
		return false

	case StateHalfOpen:
		if b.halfOpenCalls < b.config.HalfOpenMaxCalls {
			b.halfOpenCalls++
			return true
		}
		return false
	}
	return false
}

// RecordSuccess reports a completed call and its duration in milliseconds.
// In half-open, reaching SuccessThreshold consecutive successes closes the
// breaker.
func (b *CircuitBreaker) RecordSuccess(durationMS int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.totalCalls++
	b.metrics.successfulCalls++
	b.metrics.lastSuccessTime = b.clock()
	b.metrics.pushResponseTime(durationMS)
	if durationMS > b.config.SlowCallThreshold.Milliseconds() {
		// Observability only, slow calls never trip the breaker.
		b.metrics.slowCalls++
	}

	b.pushOutcome(false)
	b.consecutiveFailures = 0
	b.consecutiveSuccesses++

	if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.config.SuccessThreshold {
		b.transitionTo(StateClosed)
	}
}

// RecordFailure reports a failed call. A half-open breaker reopens on any
// single failure. A closed breaker opens once consecutive failures reach
// FailureThreshold, or once the rolling window is full and its failure
// fraction reaches FailureRateThreshold. An already-open breaker records
// metrics only.
func (b *CircuitBreaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock()
	b.metrics.totalCalls++
	b.metrics.failedCalls++
	b.metrics.lastFailureTime = now
	b.metrics.pushFailure(failureRecord{
		Time:  now,
		Error: truncateError(err),
		Kind:  errors.KindOf(err),
	})

	b.pushOutcome(true)
	b.consecutiveFailures++
	b.consecutiveSuccesses = 0

	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	case StateClosed:
		if b.consecutiveFailures >= b.config.FailureThreshold || b.windowTripped() {
			b.transitionTo(StateOpen)
		}
	}
}

// RecordRejection counts a fast-failed call. Rejections reflect caller
// behavior, not dependency health: they never touch the failure window, the
// consecutive counters, or the state.
func (b *CircuitBreaker) RecordRejection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics.rejectedCalls++
}

// Reset forces the breaker back to closed, clearing the consecutive
// counters, the probe budget and the rolling window. Lifetime metric
// counters are preserved. Resetting an already-closed breaker clears the
// same runtime state without counting a state change.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		b.clearRuntimeCounters()
		return
	}
	b.transitionTo(StateClosed)
}

// ForceOpen trips the breaker open regardless of its statistics. Tripping an
// already-open breaker restarts the open timeout without counting another
// state change, so the usual open-to-half-open recovery applies afterward.
func (b *CircuitBreaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.lastStateChange = b.clock()
		return
	}
	b.transitionTo(StateOpen)
}

// transitionTo switches state and applies the entry side effects. Must be
// called with the lock held.
func (b *CircuitBreaker) transitionTo(next State) {
	prev := b.state
	if prev == next {
		return
	}

	b.state = next
	b.metrics.stateChanges++
	b.lastStateChange = b.clock()

	switch next {
	case StateClosed:
		b.clearRuntimeCounters()
	case StateHalfOpen:
		// consecutiveFailures is left untouched: the next failure decides
		// fate immediately regardless of its value.
		b.halfOpenCalls = 0
		b.consecutiveSuccesses = 0
	}

	b.notifyStateChange(prev, next)
}

func (b *CircuitBreaker) clearRuntimeCounters() {
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.halfOpenCalls = 0
	b.failureWindow = b.failureWindow[:0]
}

// notifyStateChange dispatches listeners asynchronously so a slow or
// panicking listener cannot stall outcome recording.
func (b *CircuitBreaker) notifyStateChange(from, to State) {
	for _, fn := range b.onStateChange {
		go func(fn StateChangeFunc) {
			defer func() {
				_ = recover()
			}()
			fn(b.name, from, to)
		}(fn)
	}
}

// pushOutcome appends to the rolling window, evicting the oldest entry once
// WindowSize is reached. Must be called with the lock held.
func (b *CircuitBreaker) pushOutcome(failed bool) {
	b.failureWindow = append(b.failureWindow, failed)
	if len(b.failureWindow) > b.config.WindowSize {
		b.failureWindow = b.failureWindow[1:]
	}
}

// windowTripped reports whether the full rolling window crosses the failure
// rate threshold. A partially filled window never trips.
func (b *CircuitBreaker) windowTripped() bool {
	if len(b.failureWindow) < b.config.WindowSize {
		return false
	}
	return b.windowFailureRate() >= b.config.FailureRateThreshold
}

// windowFailureRate is the failure fraction of the current window contents,
// 0 when the window is empty.
func (b *CircuitBreaker) windowFailureRate() float64 {
	if len(b.failureWindow) == 0 {
		return 0
	}
	failed := 0
	for _, isFailure := range b.failureWindow {
		if isFailure {
			failed++
		}
	}
	return float64(failed) / float64(len(b.failureWindow))
}

// now exposes the breaker clock to the guard so call timing and timeout
// checks share one time source.
func (b *CircuitBreaker) now() time.Time {
	return b.clock()
}

func truncateError(err error) string {
	if err == nil {
		return "unknown failure"
	}
	msg := err.Error()
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength]
	}
	return msg
}
