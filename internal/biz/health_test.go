package biz

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"CircuitLane/internal/conf"
	"CircuitLane/pkg/breaker"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Helper function to create a test HealthChecker
func newTestHealthChecker(bc *conf.Bootstrap) (*HealthChecker, *breaker.Registry) {
	logger := log.NewStdLogger(os.Stdout)
	registry := breaker.NewRegistry(breaker.WithDefaultConfig(newTestBreakerConfig()))
	return NewHealthChecker(bc, registry, logger), registry
}

func TestCheckAll_Disabled(t *testing.T) {
	bc := &conf.Bootstrap{
		Breaker: &conf.Breaker{
			Health: &conf.Breaker_Health{Enabled: false},
		},
	}
	hc, registry := newTestHealthChecker(bc)

	b := registry.GetOrCreate("payment-api")
	tripBreaker(b)

	var calls atomic.Int32
	hc.Register("payment-api", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	probed, recovered := hc.CheckAll(context.Background())
	assert.Equal(t, 0, probed)
	assert.Equal(t, 0, recovered)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, breaker.StateOpen, b.State())
}

// Test CheckAll - closed circuits are never probed
func TestCheckAll_SkipsClosedCircuits(t *testing.T) {
	hc, registry := newTestHealthChecker(nil)

	registry.GetOrCreate("payment-api")

	var calls atomic.Int32
	hc.Register("payment-api", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	probed, recovered := hc.CheckAll(context.Background())
	assert.Equal(t, 0, probed)
	assert.Equal(t, 0, recovered)
	assert.Equal(t, int32(0), calls.Load())
}

// Test CheckAll - a healthy probe resets the open breaker
func TestCheckAll_ResetsOnHealthyProbe(t *testing.T) {
	hc, registry := newTestHealthChecker(nil)

	b := registry.GetOrCreate("payment-api")
	tripBreaker(b)
	require.Equal(t, breaker.StateOpen, b.State())

	hc.Register("payment-api", func(ctx context.Context) error {
		return nil
	})

	probed, recovered := hc.CheckAll(context.Background())
	assert.Equal(t, 1, probed)
	assert.Equal(t, 1, recovered)
	assert.Equal(t, breaker.StateClosed, b.State())
}

// Test CheckAll - a failing probe leaves the breaker open
func TestCheckAll_KeepsOpenOnFailedProbe(t *testing.T) {
	hc, registry := newTestHealthChecker(nil)

	b := registry.GetOrCreate("payment-api")
	tripBreaker(b)

	hc.Register("payment-api", func(ctx context.Context) error {
		return errors.New("connect: connection refused")
	})

	probed, recovered := hc.CheckAll(context.Background())
	assert.Equal(t, 1, probed)
	assert.Equal(t, 0, recovered)
	assert.Equal(t, breaker.StateOpen, b.State())
}

// Test CheckAll - open circuits without a probe are left alone
func TestCheckAll_ProbesOnlyRegistered(t *testing.T) {
	hc, registry := newTestHealthChecker(nil)

	probed1 := registry.GetOrCreate("payment-api")
	silent := registry.GetOrCreate("reporting-db")
	tripBreaker(probed1)
	tripBreaker(silent)

	hc.Register("payment-api", func(ctx context.Context) error {
		return nil
	})

	probed, recovered := hc.CheckAll(context.Background())
	assert.Equal(t, 1, probed)
	assert.Equal(t, 1, recovered)
	assert.Equal(t, breaker.StateClosed, probed1.State())
	assert.Equal(t, breaker.StateOpen, silent.State())
}

// Test CheckAll - probes are cut off by the configured timeout
func TestCheckAll_ProbeTimeout(t *testing.T) {
	bc := &conf.Bootstrap{
		Breaker: &conf.Breaker{
			Health: &conf.Breaker_Health{
				Enabled:      true,
				ProbeTimeout: durationpb.New(50 * time.Millisecond),
			},
		},
	}
	hc, registry := newTestHealthChecker(bc)

	b := registry.GetOrCreate("payment-api")
	tripBreaker(b)

	hc.Register("payment-api", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	probed, recovered := hc.CheckAll(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, 1, probed)
	assert.Equal(t, 0, recovered)
	assert.Equal(t, breaker.StateOpen, b.State())
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRegister_NilProbeIgnored(t *testing.T) {
	hc, registry := newTestHealthChecker(nil)

	b := registry.GetOrCreate("payment-api")
	tripBreaker(b)

	hc.Register("payment-api", nil)

	probed, _ := hc.CheckAll(context.Background())
	assert.Equal(t, 0, probed)
}

func TestUnregister(t *testing.T) {
	hc, registry := newTestHealthChecker(nil)

	b := registry.GetOrCreate("payment-api")
	tripBreaker(b)

	hc.Register("payment-api", func(ctx context.Context) error {
		return nil
	})
	hc.Unregister("payment-api")

	probed, _ := hc.CheckAll(context.Background())
	assert.Equal(t, 0, probed)
	assert.Equal(t, breaker.StateOpen, b.State())
}

// Test CheckAll - more open circuits than the probe concurrency limit
func TestCheckAll_ManyCircuits(t *testing.T) {
	hc, registry := newTestHealthChecker(nil)

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range names {
		b := registry.GetOrCreate(name)
		tripBreaker(b)
		hc.Register(name, func(ctx context.Context) error {
			return nil
		})
	}

	probed, recovered := hc.CheckAll(context.Background())
	assert.Equal(t, len(names), probed)
	assert.Equal(t, len(names), recovered)

	for _, name := range names {
		b, ok := registry.Get(name)
		require.True(t, ok)
		assert.Equal(t, breaker.StateClosed, b.State())
	}
}
