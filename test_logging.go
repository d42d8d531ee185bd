//go:build ignore
// +build ignore

package main

import (
	"context"

	"CircuitLane/internal/conf"
	pkglog "CircuitLane/pkg/log"
)

func main() {
	// 创建日志配置
	logConf := &conf.Log{
		Level:  "debug",
		Format: "console", // 使用 console 格式以启用 Emoji Encoder
		Env:    "development",
	}

	// 创建 Zap logger
	zapLogger, err := pkglog.NewZapLogger(logConf)
	if err != nil {
		panic(err)
	}

	// 创建 Kratos adapter
	kratosLogger := pkglog.NewKratosAdapter(zapLogger)

	// 创建 LogHelper
	helper := pkglog.NewLogHelper(kratosLogger)

	// 测试各种日志类型
	println("=== 测试日志输出格式 ===\n")

	helper.Startup("CircuitLane service starting", "version", "1.0.0", "port", 8080)
	helper.API("Processing API request", "endpoint", "/api/v1/circuits", "method", "GET")
	helper.Auth("Authenticated request from key: admin (masked)", "key", "sk-12345***", "duration_ms", 2)
	helper.Request("POST", "/api/v1/circuits/payment-api/reset", 200, 12, "ip", "192.168.1.100", "user_agent", "curl/8.5.0")
	helper.Database("Audit log written", "table", "circuit_audit_logs", "duration_ms", 5)
	helper.Redis("Event published", "channel", "circuitlane:circuit-events", "event_type", "state_changed")
	helper.Circuit("Circuit breaker 'payment-api' created", "failure_threshold", 5, "timeout", "60s")
	helper.FastFail("Circuit breaker 'payment-api' is open, failing fast", "circuit", "payment-api", "recovery_in", 42)
	helper.Probe("Probing circuit 'payment-api'", "circuit", "payment-api", "attempt", 1)
	helper.Event("Circuit event published", "event_type", "circuit_opened", "circuit", "payment-api")
	helper.Alert("Circuit breaker 'payment-api' tripped open", "consecutive_failures", 5)
	helper.Scheduler("Recovery sweep finished", "probed", 2, "recovered", 1)
	helper.Performance("Operation completed", "operation", "reset_circuit", "duration_ms", 3)
	helper.Audit("Admin action", "operator", "admin", "action", "trip", "circuit", "payment-api")
	helper.Security("Invalid admin key", "ip", "10.0.0.1", "key", "sk-bad***")
	helper.Success("Request completed successfully", "request_id", "req-789")

	// 测试便捷方法
	helper.StateChange("payment-api", "closed", "open", "consecutive_failures", 5)
	helper.StateChange("payment-api", "open", "half_open")
	helper.Recovered("payment-api", 93500)

	// 测试 Context-Aware 方法
	ctx := pkglog.WithRequestContext(context.Background(), pkglog.GenerateRequestID(), "admin", "sk-12345***")
	pkglog.SetCircuit(ctx, "payment-api")
	helper.RequestWithContext(ctx, "POST", "/api/v1/circuits/payment-api/trip", 200, 8)
	helper.AdminAction(ctx, "trip", "payment-api", "previous_state", "closed")

	println("\n=== 日志输出完成 ===")
}
