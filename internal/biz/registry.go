package biz

import (
	"fmt"

	"CircuitLane/internal/conf"
	"CircuitLane/pkg/breaker"

	"github.com/go-kratos/kratos/v2/log"
)

// NewBreakerRegistry builds the shared circuit breaker registry from
// configuration: resolved defaults, per-dependency overrides and the event
// observer as state change listener. Configured dependencies are created
// eagerly so they show up in listings before their first guarded call.
func NewBreakerRegistry(bc *conf.Bootstrap, observer *CircuitEventObserver, logger log.Logger) (*breaker.Registry, error) {
	helper := log.NewHelper(logger)

	var cfg *conf.Breaker
	if bc != nil {
		cfg = bc.Breaker
	}

	var defaultsBlock *conf.Breaker_Config
	if cfg != nil {
		defaultsBlock = cfg.Defaults
	}

	defaults, err := resolveBreakerConfig(defaultsBlock)
	if err != nil {
		return nil, fmt.Errorf("breaker defaults: %w", err)
	}

	opts := []breaker.RegistryOption{
		breaker.WithDefaultConfig(defaults),
		breaker.WithStateChangeListener(observer.OnStateChange),
	}

	if cfg != nil {
		for name, block := range cfg.Dependencies {
			depCfg, err := resolveBreakerConfig(block)
			if err != nil {
				return nil, fmt.Errorf("breaker dependency %q: %w", name, err)
			}
			opts = append(opts, breaker.WithDependencyConfig(name, depCfg))
		}
	}

	reg := breaker.NewRegistry(opts...)

	configured := 0
	if cfg != nil {
		configured = len(cfg.Dependencies)
		for name := range cfg.Dependencies {
			reg.GetOrCreate(name)
		}
	}

	helper.Infow("msg", "circuit breaker registry initialized",
		"configured_dependencies", configured,
		"default_failure_threshold", defaults.FailureThreshold,
		"default_timeout", defaults.Timeout.String(),
	)

	return reg, nil
}

// resolveBreakerConfig turns one configuration block into an effective
// breaker.Config: preset base first, then field-level overrides for every
// non-zero value.
func resolveBreakerConfig(block *conf.Breaker_Config) (breaker.Config, error) {
	if block == nil {
		return breaker.DefaultConfig(), nil
	}

	cfg, ok := breaker.PresetConfig(block.Preset)
	if !ok {
		return breaker.Config{}, fmt.Errorf("unknown preset %q", block.Preset)
	}

	if block.FailureThreshold > 0 {
		cfg.FailureThreshold = block.FailureThreshold
	}
	if block.SuccessThreshold > 0 {
		cfg.SuccessThreshold = block.SuccessThreshold
	}
	if d := block.Timeout.AsDuration(); d > 0 {
		cfg.Timeout = d
	}
	if block.HalfOpenMaxCalls > 0 {
		cfg.HalfOpenMaxCalls = block.HalfOpenMaxCalls
	}
	if block.FailureRateThreshold > 0 {
		cfg.FailureRateThreshold = block.FailureRateThreshold
	}
	if block.WindowSize > 0 {
		cfg.WindowSize = block.WindowSize
	}
	if d := block.SlowCallThreshold.AsDuration(); d > 0 {
		cfg.SlowCallThreshold = d
	}
	if block.SlowCallRateThreshold > 0 {
		cfg.SlowCallRateThreshold = block.SlowCallRateThreshold
	}

	if err := cfg.Validate(); err != nil {
		return breaker.Config{}, err
	}

	return cfg, nil
}
