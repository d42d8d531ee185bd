package biz

import (
	"errors"
	"os"
	"testing"
	"time"

	"CircuitLane/internal/conf"
	"CircuitLane/pkg/breaker"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestResolveBreakerConfig_NilBlock(t *testing.T) {
	cfg, err := resolveBreakerConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, breaker.DefaultConfig(), cfg)
}

func TestResolveBreakerConfig_PresetBase(t *testing.T) {
	cfg, err := resolveBreakerConfig(&conf.Breaker_Config{Preset: "aggressive"})
	require.NoError(t, err)
	assert.Equal(t, breaker.AggressiveConfig(), cfg)
}

// Test resolveBreakerConfig - non-zero fields override the preset base
func TestResolveBreakerConfig_FieldOverrides(t *testing.T) {
	block := &conf.Breaker_Config{
		Preset:           "conservative",
		FailureThreshold: 7,
		Timeout:          durationpb.New(45 * time.Second),
	}

	cfg, err := resolveBreakerConfig(block)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.FailureThreshold)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	// Untouched fields keep the preset values
	assert.Equal(t, 5, cfg.SuccessThreshold)
	assert.Equal(t, 20, cfg.WindowSize)
	assert.InDelta(t, 0.7, cfg.FailureRateThreshold, 1e-9)
}

func TestResolveBreakerConfig_UnknownPreset(t *testing.T) {
	_, err := resolveBreakerConfig(&conf.Breaker_Config{Preset: "reckless"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preset")
}

func TestResolveBreakerConfig_InvalidOverride(t *testing.T) {
	block := &conf.Breaker_Config{
		FailureRateThreshold: 1.5,
	}

	_, err := resolveBreakerConfig(block)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_rate_threshold")
}

// Test NewBreakerRegistry - configured dependencies exist before first use
// and carry their resolved configs
func TestNewBreakerRegistry_EagerCreation(t *testing.T) {
	bc := &conf.Bootstrap{
		Breaker: &conf.Breaker{
			Defaults: &conf.Breaker_Config{Preset: "default", FailureThreshold: 4},
			Dependencies: map[string]*conf.Breaker_Config{
				"payment-api":  {Preset: "aggressive"},
				"reporting-db": {WindowSize: 30},
			},
		},
	}

	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	registry, err := NewBreakerRegistry(bc, obs, log.NewStdLogger(os.Stdout))
	require.NoError(t, err)

	assert.Equal(t, []string{"payment-api", "reporting-db"}, registry.Names())

	payment, ok := registry.Get("payment-api")
	require.True(t, ok)
	assert.Equal(t, 3, payment.Config().FailureThreshold)
	assert.Equal(t, 30*time.Second, payment.Config().Timeout)

	reporting, ok := registry.Get("reporting-db")
	require.True(t, ok)
	assert.Equal(t, 30, reporting.Config().WindowSize)
	// Unconfigured fields fall back to the registry defaults
	assert.Equal(t, 4, reporting.Config().FailureThreshold)

	// Dependencies not named in config pick up the defaults on first use
	other := registry.GetOrCreate("search-api")
	assert.Equal(t, 4, other.Config().FailureThreshold)
}

// Test NewBreakerRegistry - transitions flow into the observer
func TestNewBreakerRegistry_ListenerWired(t *testing.T) {
	bc := &conf.Bootstrap{
		Breaker: &conf.Breaker{
			Dependencies: map[string]*conf.Breaker_Config{
				"payment-api": {Preset: "aggressive"},
			},
		},
	}

	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	// NotifyCircuitOpened is the observer's last call for this transition, so
	// its arrival means the audit and state-change calls already happened.
	opened := make(chan struct{}, 1)
	audit.On("LogStateChange", mock.Anything, "payment-api", "closed", "open", mock.Anything).Return()
	notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyCircuitOpened", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		opened <- struct{}{}
	}).Return(nil)

	registry, err := NewBreakerRegistry(bc, obs, log.NewStdLogger(os.Stdout))
	require.NoError(t, err)

	b, ok := registry.Get("payment-api")
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		b.RecordFailure(errors.New("dependency unavailable"))
	}
	require.Equal(t, breaker.StateOpen, b.State())

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the observer to run")
	}

	audit.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestNewBreakerRegistry_NilBootstrap(t *testing.T) {
	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	registry, err := NewBreakerRegistry(nil, obs, log.NewStdLogger(os.Stdout))
	require.NoError(t, err)
	assert.Empty(t, registry.Names())

	b := registry.GetOrCreate("payment-api")
	assert.Equal(t, breaker.DefaultConfig(), b.Config())
}

func TestNewBreakerRegistry_BadDefaults(t *testing.T) {
	bc := &conf.Bootstrap{
		Breaker: &conf.Breaker{
			Defaults: &conf.Breaker_Config{Preset: "reckless"},
		},
	}

	_, err := NewBreakerRegistry(bc, newTestObserver(new(MockEventNotifier), new(MockAuditLogger)), log.NewStdLogger(os.Stdout))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "breaker defaults")
}

func TestNewBreakerRegistry_BadDependency(t *testing.T) {
	bc := &conf.Bootstrap{
		Breaker: &conf.Breaker{
			Dependencies: map[string]*conf.Breaker_Config{
				"payment-api": {FailureRateThreshold: 1.5},
			},
		},
	}

	_, err := NewBreakerRegistry(bc, newTestObserver(new(MockEventNotifier), new(MockAuditLogger)), log.NewStdLogger(os.Stdout))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `breaker dependency "payment-api"`)
}
