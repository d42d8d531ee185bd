package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CircuitLane/internal/conf"
	"CircuitLane/pkg/breaker"
	pkglog "CircuitLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	// MaxConcurrentProbes 最大并发探测数
	MaxConcurrentProbes = 5

	// DefaultProbeTimeout applies when breaker.health.probe_timeout is not configured
	DefaultProbeTimeout = 5 * time.Second
)

// ProbeFunc checks one dependency for liveness. A nil return means healthy.
type ProbeFunc func(ctx context.Context) error

// HealthChecker runs recovery probes against open circuit breakers and
// resets the ones whose dependency answers again. Closed and half-open
// breakers are left to the normal call flow.
type HealthChecker struct {
	registry     *breaker.Registry
	logger       *pkglog.LogHelper
	probeTimeout time.Duration
	enabled      bool

	mu     sync.RWMutex
	probes map[string]ProbeFunc
}

// NewHealthChecker creates a health checker over the breaker registry.
func NewHealthChecker(bc *conf.Bootstrap, registry *breaker.Registry, logger log.Logger) *HealthChecker {
	probeTimeout := DefaultProbeTimeout
	enabled := true
	if bc != nil && bc.Breaker != nil && bc.Breaker.Health != nil {
		enabled = bc.Breaker.Health.Enabled
		if d := bc.Breaker.Health.ProbeTimeout.AsDuration(); d > 0 {
			probeTimeout = d
		}
	}

	return &HealthChecker{
		registry:     registry,
		logger:       pkglog.NewLogHelper(logger),
		probeTimeout: probeTimeout,
		enabled:      enabled,
		probes:       make(map[string]ProbeFunc),
	}
}

// Enabled reports whether the probe sweep should run.
func (h *HealthChecker) Enabled() bool {
	return h.enabled
}

// Register installs the probe used to test a dependency while its circuit
// is open. Registering again replaces the previous probe.
func (h *HealthChecker) Register(name string, probe ProbeFunc) {
	if probe == nil {
		return
	}
	h.mu.Lock()
	h.probes[name] = probe
	h.mu.Unlock()
}

// Unregister removes the probe for a dependency.
func (h *HealthChecker) Unregister(name string) {
	h.mu.Lock()
	delete(h.probes, name)
	h.mu.Unlock()
}

// CheckAll probes every open circuit that has a registered probe and resets
// the breakers whose probe succeeds. It returns the number of probes run
// and the number of circuits reset.
func (h *HealthChecker) CheckAll(ctx context.Context) (probed, recovered int) {
	if !h.enabled {
		return 0, 0
	}

	targets := h.openTargets()
	if len(targets) == 0 {
		return 0, 0
	}

	// 使用 goroutine 并发探测（限制并发数为 5）
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		recoveredCnt int
		sem          = make(chan struct{}, MaxConcurrentProbes)
	)

	for name, probe := range targets {
		wg.Add(1)
		sem <- struct{}{} // 获取信号量

		go func(name string, probe ProbeFunc) {
			defer wg.Done()
			defer func() { <-sem }() // 释放信号量

			if h.probeOne(ctx, name, probe) {
				mu.Lock()
				recoveredCnt++
				mu.Unlock()
			}
		}(name, probe)
	}

	wg.Wait()

	if recoveredCnt > 0 {
		h.logger.Success(fmt.Sprintf("Recovery sweep reset %d of %d probed circuits", recoveredCnt, len(targets)),
			"probed", len(targets),
			"recovered", recoveredCnt,
		)
	}

	return len(targets), recoveredCnt
}

// openTargets snapshots the open breakers that have a probe registered.
func (h *HealthChecker) openTargets() map[string]ProbeFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[string]ProbeFunc)
	for name, b := range h.registry.All() {
		if b.State() != breaker.StateOpen {
			continue
		}
		if probe, ok := h.probes[name]; ok {
			targets[name] = probe
		}
	}
	return targets
}

// probeOne runs a single probe and resets the breaker on success.
func (h *HealthChecker) probeOne(ctx context.Context, name string, probe ProbeFunc) bool {
	probeCtx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	start := time.Now()
	err := probe(probeCtx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		h.logger.Probe(fmt.Sprintf("Probe for circuit '%s' failed, keeping it open", name),
			"circuit", name,
			"duration_ms", elapsed,
			"error", err.Error(),
		)
		return false
	}

	b, ok := h.registry.Get(name)
	if !ok || b.State() != breaker.StateOpen {
		// Recovered through the normal half-open flow while we probed.
		return false
	}
	b.Reset()

	h.logger.Probe(fmt.Sprintf("Probe for circuit '%s' succeeded, resetting", name),
		"circuit", name,
		"duration_ms", elapsed,
	)
	return true
}
