package breaker

import (
	"sort"
	"sync"
	"time"
)

// Registry owns the breakers of a process, one per dependency name.
// Creation is lazy: the first guarded call to a dependency creates its
// breaker with the registry's resolved configuration.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	defaults  Config
	overrides map[string]Config
	clock     func() time.Time
	listeners []StateChangeFunc
}

// RegistryOption configures a Registry at creation.
type RegistryOption func(*Registry)

// WithDefaultConfig sets the configuration applied to dependencies without
// an explicit override.
func WithDefaultConfig(cfg Config) RegistryOption {
	return func(r *Registry) {
		r.defaults = cfg
	}
}

// WithDependencyConfig pins a per-dependency configuration, taking
// precedence over the registry defaults.
func WithDependencyConfig(name string, cfg Config) RegistryOption {
	return func(r *Registry) {
		r.overrides[name] = cfg
	}
}

// WithRegistryClock sets the time source handed to every breaker the
// registry creates.
func WithRegistryClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithStateChangeListener registers a listener attached to every breaker
// the registry creates.
func WithStateChangeListener(fn StateChangeFunc) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.listeners = append(r.listeners, fn)
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		defaults:  DefaultConfig(),
		overrides: make(map[string]Config),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the breaker for name, creating it on first use.
// An explicit cfg wins over a registered per-dependency override, which wins
// over the registry defaults. Concurrent first calls for the same name
// resolve to a single breaker.
func (r *Registry) GetOrCreate(name string, cfg ...Config) *CircuitBreaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check, another goroutine may have created it between the locks.
	if b, ok := r.breakers[name]; ok {
		return b
	}

	resolved := r.defaults
	if override, ok := r.overrides[name]; ok {
		resolved = override
	}
	if len(cfg) > 0 {
		resolved = cfg[0]
	}

	opts := []Option{
		WithConfig(resolved),
		WithClock(r.clock),
	}
	for _, fn := range r.listeners {
		opts = append(opts, WithOnStateChange(fn))
	}

	b = New(name, opts...)
	r.breakers[name] = b
	return b
}

// Get returns the breaker for name if it exists. Lookups never create.
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.breakers[name]
	return b, ok
}

// Names returns the registered dependency names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered breakers keyed by name. The map is a copy, the
// breakers are shared.
func (r *Registry) All() map[string]*CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b
	}
	return out
}

// Statuses snapshots every registered breaker, sorted by name.
func (r *Registry) Statuses() []Status {
	all := r.All()

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Status, 0, len(all))
	for _, name := range names {
		out = append(out, all[name].Status())
	}
	return out
}

// Status snapshots the named breaker. It returns a NotFoundError when the
// name was never registered.
func (r *Registry) Status(name string) (Status, error) {
	b, ok := r.Get(name)
	if !ok {
		return Status{}, &NotFoundError{Name: name}
	}
	return b.Status(), nil
}

// Reset force-closes the named breaker. It returns a NotFoundError when the
// name was never registered.
func (r *Registry) Reset(name string) error {
	b, ok := r.Get(name)
	if !ok {
		return &NotFoundError{Name: name}
	}
	b.Reset()
	return nil
}

// Trip force-opens the named breaker. It returns a NotFoundError when the
// name was never registered.
func (r *Registry) Trip(name string) error {
	b, ok := r.Get(name)
	if !ok {
		return &NotFoundError{Name: name}
	}
	b.ForceOpen()
	return nil
}
