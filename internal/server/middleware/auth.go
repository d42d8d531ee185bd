// Package middleware provides HTTP middleware for authentication, logging, and request processing.
package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"CircuitLane/internal/conf"
	pkglog "CircuitLane/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// adminKeyName is the operator name recorded for authenticated admin requests.
const adminKeyName = "admin"

// Auth 返回一个 HTTP 认证中间件
// 提取并验证管理 API Key，记录详细的认证日志
// 所有熔断器管理端点都要求有效的 Key
//
// 日志输出示例:
//
//	🔗 🔓 Authenticated request from key: admin (sk-12345***) in 2ms | {"type":"auth","api_key_masked":"...","duration_ms":2}
//	🔗    User-Agent: "curl/8.5.0" | {"type":"api","user_agent":"..."}
func Auth(cfg *conf.Auth, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				apiKey    string
				userAgent string
				requestID string
			)

			// 提取 Authorization header 和 User-Agent
			if tr, ok := transport.FromServerContext(ctx); ok {
				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()

					// 提取 Authorization header
					authHeader := httpReq.Header.Get("Authorization")
					if authHeader != "" {
						// 支持 "Bearer {token}" 格式
						apiKey = strings.TrimPrefix(authHeader, "Bearer ")
						apiKey = strings.TrimSpace(apiKey)
					}

					// 如果 Authorization header 为空，尝试从 X-API-Key header 获取
					if apiKey == "" {
						apiKey = httpReq.Header.Get("X-API-Key")
					}

					// 提取 User-Agent
					userAgent = httpReq.Header.Get("User-Agent")

					// 提取 Request ID（Logging 中间件会复用）
					requestID = httpReq.Header.Get("X-Request-ID")
				}
			}

			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}

			if apiKey == "" {
				logger.Security("Rejected request without admin key",
					"user_agent", userAgent)
				return nil, kerrors.New(401, "UNAUTHORIZED", "missing admin key")
			}

			// 脱敏 API Key（仅显示前 8 位）
			maskedKey := maskAPIKey(apiKey)

			if cfg == nil || cfg.AdminKey == "" ||
				subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.AdminKey)) != 1 {
				logger.Security("Rejected request with invalid admin key",
					"api_key_masked", maskedKey,
					"user_agent", userAgent)
				return nil, kerrors.New(401, "UNAUTHORIZED", "invalid admin key")
			}

			// 计算认证耗时
			authDuration := time.Since(startTime).Milliseconds()

			// 记录认证成功日志
			logger.Auth(
				"Authenticated request from key: "+adminKeyName+" ("+maskedKey+") in "+formatDuration(authDuration),
				"api_key_masked", maskedKey,
				"duration_ms", authDuration,
			)

			// 记录 User-Agent（独立一行，更易读）
			if userAgent != "" {
				logger.API(
					"   User-Agent: \""+userAgent+"\"",
					"user_agent", userAgent,
				)
			}

			// 将认证信息注入 Request Context（供后续日志与审计使用）
			ctx = pkglog.WithRequestContext(ctx, requestID, adminKeyName, maskedKey)

			// 执行后续处理
			return handler(ctx, req)
		}
	}
}

// maskAPIKey 脱敏 API Key，仅显示前 8 位
// 示例: "sk-1234567890abcdef" -> "sk-12345***"
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		// 如果 key 太短，全部脱敏
		return strings.Repeat("*", len(key))
	}

	// 显示前 8 位，其余用 *** 代替
	return key[:8] + "***"
}

// formatDuration 格式化持续时间为易读格式
// 示例: 5ms, 150ms, 2.5s
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	return fmt.Sprintf("%.1fs", seconds)
}
