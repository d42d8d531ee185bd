package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper 扩展 Kratos log.Helper，提供便捷的日志方法
// 通过在日志调用时自动添加 "type" 字段，触发 EmojiConsoleEncoder 的表情符号映射
type LogHelper struct {
	*log.Helper
}

// NewLogHelper 创建增强的日志辅助器
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

// API 记录 API 相关日志（表情符号: 🔗）
func (h *LogHelper) API(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "api")
	h.Infow(allKvs...)
}

// Auth 记录认证相关日志（表情符号: 🔓）
func (h *LogHelper) Auth(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "auth")
	h.Infow(allKvs...)
}

// Request 记录 HTTP 请求日志（表情符号: 🌐 或根据状态码）
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, url, status, durationMs)
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}

// Success 记录成功操作日志（表情符号: ✅）
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "success")
	h.Infow(allKvs...)
}

// Database 记录数据库操作日志（表情符号: 💾）
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "database")
	h.Debugw(allKvs...)
}

// Redis 记录 Redis 操作日志（表情符号: 📦）
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "redis")
	h.Debugw(allKvs...)
}

// Circuit 记录熔断器相关日志（表情符号: 🔌）
func (h *LogHelper) Circuit(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "circuit")
	h.Infow(allKvs...)
}

// FastFail 记录熔断拒绝日志（表情符号: 🚦）
func (h *LogHelper) FastFail(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "fast_fail")
	h.Warnw(allKvs...)
}

// Probe 记录恢复探测日志（表情符号: 🩺）
func (h *LogHelper) Probe(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "probe")
	h.Infow(allKvs...)
}

// Event 记录事件发布日志（表情符号: 📣）
func (h *LogHelper) Event(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "event")
	h.Infow(allKvs...)
}

// Alert 记录熔断告警日志（表情符号: 🚨）
func (h *LogHelper) Alert(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "alert")
	h.Warnw(allKvs...)
}

// Scheduler 记录调度器相关日志（表情符号: 🎯）
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "scheduler")
	h.Infow(allKvs...)
}

// Startup 记录启动相关日志（表情符号: 🚀）
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "startup")
	h.Infow(allKvs...)
}

// Performance 记录性能相关日志（表情符号: ⏱️）
func (h *LogHelper) Performance(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "performance")
	h.Infow(allKvs...)
}

// Audit 记录审计日志（表情符号: 📋）
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "audit")
	h.Infow(allKvs...)
}

// Security 记录安全相关日志（表情符号: 🔒）
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "security")
	h.Warnw(allKvs...)
}

// StateChange 记录熔断器状态变更日志（便捷方法）
// 进入 open 状态使用 Warn 级别，其余使用 Info 级别
func (h *LogHelper) StateChange(circuit, from, to string, kvs ...interface{}) {
	msg := fmt.Sprintf("Circuit breaker '%s' state changed: %s -> %s", circuit, from, to)
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "circuit", circuit, "from_state", from, "to_state", to, "type", "circuit")
	if to == "open" {
		h.Warnw(allKvs...)
		return
	}
	h.Infow(allKvs...)
}

// Recovered 记录熔断器恢复日志（便捷方法）
// openDurationMs: 本次熔断持续时间（毫秒）
func (h *LogHelper) Recovered(circuit string, openDurationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("Circuit breaker '%s' recovered after %s", circuit, formatDuration(openDurationMs))
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "circuit", circuit, "open_duration_ms", openDurationMs, "type", "success")
	h.Infow(allKvs...)
}

// ========== Context-Aware 日志方法 ==========
// 以下方法自动从 Context 提取追踪信息（Request ID, Key Name, Circuit 等）

// SlowRequest 记录慢请求警告（表情符号: 🐌）
// threshold: 慢请求阈值（毫秒），超过此值触发警告
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"key_name", reqCtx.KeyName,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
		"type", "slow_request",
	)
	h.Warnw(allKvs...)
}

// RequestWithContext 记录带 Context 的 HTTP 请求日志
// 自动从 Context 提取 Request ID 并检测慢请求
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s",
		method, url, status, durationMs, reqCtx.RequestID)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"request_id", reqCtx.RequestID,
		"key_name", reqCtx.KeyName,
		"circuit", reqCtx.Circuit,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)

	// 自动检测慢请求（阈值 1000ms）
	if durationMs > 1000 {
		h.SlowRequest(ctx, method, url, durationMs, 1000)
	}
}

// APIWithContext 记录带 Context 的 API 日志
func (h *LogHelper) APIWithContext(ctx context.Context, msg string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	fullMsg := fmt.Sprintf("[%s] %s", reqCtx.RequestID, msg)

	allKvs := append([]interface{}{"msg", fullMsg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"key_name", reqCtx.KeyName,
		"type", "api",
	)
	h.Infow(allKvs...)
}

// AdminAction 记录带 Context 的管理操作审计日志（便捷方法）
// action: reset / trip 等管理动作
func (h *LogHelper) AdminAction(ctx context.Context, action, circuit string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Admin %s on circuit breaker '%s'", reqCtx.RequestID, action, circuit)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"key_name", reqCtx.KeyName,
		"action", action,
		"circuit", circuit,
		"type", "audit",
	)
	h.Infow(allKvs...)
}
