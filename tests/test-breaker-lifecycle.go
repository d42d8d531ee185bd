// Package main provides a manual test utility for the circuit breaker lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"CircuitLane/internal/biz"
	"CircuitLane/internal/conf"
	"CircuitLane/pkg/breaker"

	"github.com/go-kratos/kratos/v2/log"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Manual integration test for the breaker lifecycle
// This drives a real registry through closed -> open -> half_open -> closed
// with wall-clock timeouts, then exercises the probe-based recovery path

func main() {
	logger := log.NewStdLogger(os.Stdout)

	fmt.Println("==========================================")
	fmt.Println("CircuitLane Breaker Lifecycle Test")
	fmt.Println("==========================================")
	fmt.Println()

	fmt.Println("Step 1: Build registry and guard")
	fmt.Println("------------------------------------------")

	cfg := breaker.Config{
		FailureThreshold:      3,
		SuccessThreshold:      2,
		Timeout:               3 * time.Second,
		HalfOpenMaxCalls:      2,
		FailureRateThreshold:  0.5,
		WindowSize:            10,
		SlowCallThreshold:     time.Second,
		SlowCallRateThreshold: 0.5,
	}

	registry := breaker.NewRegistry(
		breaker.WithDefaultConfig(cfg),
		breaker.WithStateChangeListener(func(name string, from, to breaker.State) {
			fmt.Printf("  >> transition: %s %s -> %s\n", name, from, to)
		}),
	)
	guard := breaker.NewGuard(registry)
	ctx := context.Background()

	fmt.Println("✓ Registry created (failure_threshold=3, timeout=3s)")
	fmt.Println()

	// Test closed-state calls
	fmt.Println("Step 2: Closed state passes calls through")
	fmt.Println("------------------------------------------")

	closedPassed := 0
	for i := 1; i <= 2; i++ {
		result, err := guard.Do(ctx, "payment-api", func(ctx context.Context) (interface{}, error) {
			return fmt.Sprintf("ok-%d", i), nil
		})
		if err == nil && result == fmt.Sprintf("ok-%d", i) {
			fmt.Printf("  Call %d: ✓ PASS (%v)\n", i, result)
			closedPassed++
		} else {
			fmt.Printf("  Call %d: ✗ FAIL - %v\n", i, err)
		}
	}

	if b, _ := registry.Get("payment-api"); b.State() == breaker.StateClosed {
		fmt.Println("  State: ✓ closed (expected)")
		closedPassed++
	} else {
		fmt.Println("  State: ✗ FAIL - not closed")
	}
	fmt.Println()

	// Test tripping on consecutive failures
	fmt.Println("Step 3: Consecutive failures trip the circuit")
	fmt.Println("------------------------------------------")

	tripPassed := 0
	downstreamErr := errors.New("connection refused")
	for i := 1; i <= 3; i++ {
		err := guard.Run(ctx, "payment-api", func(ctx context.Context) error {
			return downstreamErr
		})
		if err != nil {
			fmt.Printf("  Failure %d: ✓ recorded (%v)\n", i, err)
			tripPassed++
		} else {
			fmt.Printf("  Failure %d: ✗ FAIL - no error\n", i)
		}
	}

	b, _ := registry.Get("payment-api")
	if b.State() == breaker.StateOpen {
		fmt.Println("  State: ✓ open (expected)")
		tripPassed++
	} else {
		fmt.Printf("  State: ✗ FAIL - %s (expected open)\n", b.State())
	}

	st := b.Status()
	if st.RecoveryInSeconds != nil && *st.RecoveryInSeconds > 0 {
		fmt.Printf("  Recovery in: ✓ %.1fs\n", *st.RecoveryInSeconds)
		tripPassed++
	} else {
		fmt.Println("  Recovery in: ✗ FAIL - not reported")
	}
	fmt.Println()

	// Test fast-fail while open
	fmt.Println("Step 4: Open circuit fails fast")
	fmt.Println("------------------------------------------")

	fastFailPassed := 0
	_, err := guard.Do(ctx, "payment-api", func(ctx context.Context) (interface{}, error) {
		fmt.Println("  ✗ FAIL - guarded function ran while open")
		return nil, nil
	})

	var openErr *breaker.CircuitOpenError
	if errors.As(err, &openErr) && openErr.Name == "payment-api" {
		fmt.Printf("  Rejection: ✓ %v\n", err)
		fastFailPassed++
	} else {
		fmt.Printf("  Rejection: ✗ FAIL - %v (expected CircuitOpenError)\n", err)
	}

	if rejected := b.Status().Metrics.RejectedCalls; rejected == 1 {
		fmt.Println("  Rejected calls: ✓ 1")
		fastFailPassed++
	} else {
		fmt.Printf("  Rejected calls: ✗ FAIL - %d (expected 1)\n", rejected)
	}

	// Fallback turns the rejection into a degraded answer
	result, err := guard.Do(ctx, "payment-api",
		func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("unreachable")
		},
		breaker.WithFallback(func(ctx context.Context, err error) (interface{}, error) {
			return "cached", nil
		}),
	)
	if err == nil && result == "cached" {
		fmt.Println("  Fallback: ✓ degraded answer served")
		fastFailPassed++
	} else {
		fmt.Printf("  Fallback: ✗ FAIL - result=%v err=%v\n", result, err)
	}
	fmt.Println()

	// Wait for the recovery timeout
	fmt.Println("Step 5: Wait for recovery timeout (3 seconds)...")
	fmt.Println("------------------------------------------")
	time.Sleep(3500 * time.Millisecond)
	fmt.Println("✓ Timeout elapsed")
	fmt.Println()

	// Test half-open recovery
	fmt.Println("Step 6: Half-open probes close the circuit")
	fmt.Println("------------------------------------------")

	recoveryPassed := 0
	for i := 1; i <= 2; i++ {
		err := guard.Run(ctx, "payment-api", func(ctx context.Context) error {
			return nil
		})
		if err == nil {
			fmt.Printf("  Probe %d: ✓ PASS\n", i)
			recoveryPassed++
		} else {
			fmt.Printf("  Probe %d: ✗ FAIL - %v\n", i, err)
		}
	}

	if b.State() == breaker.StateClosed {
		fmt.Println("  State: ✓ closed again (expected)")
		recoveryPassed++
	} else {
		fmt.Printf("  State: ✗ FAIL - %s (expected closed)\n", b.State())
	}
	fmt.Println()

	// Test probe-based recovery through the health checker
	fmt.Println("Step 7: Health probe resets an open circuit")
	fmt.Println("------------------------------------------")

	probePassed := 0
	bc := &conf.Bootstrap{
		Breaker: &conf.Breaker{
			Health: &conf.Breaker_Health{
				Enabled:      true,
				ProbeTimeout: durationpb.New(2 * time.Second),
			},
		},
	}
	health := biz.NewHealthChecker(bc, registry, logger)

	db := registry.GetOrCreate("reporting-db")
	db.ForceOpen()
	if db.State() == breaker.StateOpen {
		fmt.Println("  Forced open: ✓")
		probePassed++
	}

	dependencyHealthy := false
	health.Register("reporting-db", func(ctx context.Context) error {
		if !dependencyHealthy {
			return errors.New("still down")
		}
		return nil
	})

	probed, recovered := health.CheckAll(ctx)
	if probed == 1 && recovered == 0 && db.State() == breaker.StateOpen {
		fmt.Println("  Sweep while down: ✓ circuit stays open")
		probePassed++
	} else {
		fmt.Printf("  Sweep while down: ✗ FAIL - probed=%d recovered=%d state=%s\n", probed, recovered, db.State())
	}

	dependencyHealthy = true
	probed, recovered = health.CheckAll(ctx)
	if probed == 1 && recovered == 1 && db.State() == breaker.StateClosed {
		fmt.Println("  Sweep when healthy: ✓ circuit reset")
		probePassed++
	} else {
		fmt.Printf("  Sweep when healthy: ✗ FAIL - probed=%d recovered=%d state=%s\n", probed, recovered, db.State())
	}
	fmt.Println()

	// Test that lifetime counters survive a reset
	fmt.Println("Step 8: Lifetime metrics survive reset")
	fmt.Println("------------------------------------------")

	metricsPassed := 0
	st = b.Status()
	totalBefore := st.Metrics.TotalCalls
	failedBefore := st.Metrics.FailedCalls

	b.Reset()
	st = b.Status()

	if st.Metrics.TotalCalls == totalBefore && st.Metrics.FailedCalls == failedBefore {
		fmt.Printf("  Counters: ✓ total=%d failed=%d kept across reset\n", st.Metrics.TotalCalls, st.Metrics.FailedCalls)
		metricsPassed++
	} else {
		fmt.Println("  Counters: ✗ FAIL - reset cleared lifetime metrics")
	}

	if st.Metrics.ConsecutiveFailures == 0 && st.State == "closed" {
		fmt.Println("  Runtime state: ✓ cleared")
		metricsPassed++
	} else {
		fmt.Println("  Runtime state: ✗ FAIL - not cleared")
	}
	fmt.Println()

	// Summary
	fmt.Println("==========================================")
	fmt.Println("Test Summary")
	fmt.Println("==========================================")

	totalTests := 3 + 5 + 3 + 3 + 3 + 2
	totalPassed := closedPassed + tripPassed + fastFailPassed + recoveryPassed + probePassed + metricsPassed

	fmt.Printf("Total Tests: %d\n", totalTests)
	fmt.Printf("Tests Passed: %d\n", totalPassed)
	fmt.Printf("Tests Failed: %d\n", totalTests-totalPassed)
	fmt.Println()

	if totalPassed == totalTests {
		fmt.Println("✓ All breaker lifecycle tests completed successfully!")
		os.Exit(0)
	} else {
		fmt.Println("✗ Some tests failed. Please review the output above.")
		os.Exit(1)
	}
}
