package breaker

import (
	"context"
)

// FallbackFunc produces a degraded result when the guarded call cannot
// deliver one. It receives the rejection or call error.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// CallOption adjusts a single guarded call.
type CallOption func(*callSettings)

type callSettings struct {
	fallback        FallbackFunc
	wrapUnavailable bool
}

// WithFallback degrades instead of failing: the fallback runs both when the
// breaker fast-fails the call and when the call itself errors.
func WithFallback(fn FallbackFunc) CallOption {
	return func(s *callSettings) {
		s.fallback = fn
	}
}

// WithUnavailableWrapping wraps call errors in a ServiceUnavailableError
// carrying the dependency name, for callers that branch on availability
// rather than on the raw downstream error.
func WithUnavailableWrapping() CallOption {
	return func(s *callSettings) {
		s.wrapUnavailable = true
	}
}

// Guard executes calls through the registry's breakers. It owns the
// admission check, call timing and outcome reporting so call sites stay a
// single Do or Run invocation.
type Guard struct {
	registry *Registry
}

// NewGuard creates a Guard over the registry.
func NewGuard(registry *Registry) *Guard {
	return &Guard{registry: registry}
}

// Registry returns the registry the guard executes against.
func (g *Guard) Registry() *Registry {
	return g.registry
}

// Do executes fn through the named dependency's breaker.
//
// A fast-failed call is recorded as a rejection and yields CircuitOpenError.
// A failed call is recorded against the breaker and its error is returned as
// is, or wrapped when WithUnavailableWrapping is set. A successful call is
// recorded with its duration. With a fallback, rejections and failures are
// handed to it instead of being returned.
func (g *Guard) Do(ctx context.Context, name string, fn func(ctx context.Context) (interface{}, error), opts ...CallOption) (interface{}, error) {
	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}

	b := g.registry.GetOrCreate(name)

	if !b.CanExecute() {
		b.RecordRejection()
		err := &CircuitOpenError{Name: name}
		if settings.fallback != nil {
			return settings.fallback(ctx, err)
		}
		return nil, err
	}

	start := b.now()
	result, err := fn(ctx)
	if err != nil {
		b.RecordFailure(err)
		if settings.wrapUnavailable {
			err = &ServiceUnavailableError{Name: name, Err: err}
		}
		if settings.fallback != nil {
			return settings.fallback(ctx, err)
		}
		return nil, err
	}

	b.RecordSuccess(b.now().Sub(start).Milliseconds())
	return result, nil
}

// Run is Do for calls without a result.
func (g *Guard) Run(ctx context.Context, name string, fn func(ctx context.Context) error, opts ...CallOption) error {
	_, err := g.Do(ctx, name, func(ctx context.Context) (interface{}, error) {
		return nil, fn(ctx)
	}, opts...)
	return err
}
