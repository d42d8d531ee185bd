package log

import (
	"bytes"
	"context"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// createTestLogger 创建用于测试的日志记录器
func createTestLogger() (*LogHelper, *bytes.Buffer) {
	// 创建内存缓冲区捕获日志输出
	buf := &bytes.Buffer{}

	// 创建简单的编码器配置
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		TimeKey:     "time",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	}

	// 创建 Core
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)

	// 创建 Zap logger
	zapLogger := zap.New(core)

	// 创建 Kratos adapter
	kratosLogger := NewKratosAdapter(zapLogger)

	// 创建 LogHelper
	helper := NewLogHelper(kratosLogger)

	return helper, buf
}

func TestNewLogHelper(t *testing.T) {
	zapLogger := zap.NewNop()
	kratosLogger := NewKratosAdapter(zapLogger)
	helper := NewLogHelper(kratosLogger)

	if helper == nil {
		t.Fatal("NewLogHelper returned nil")
	}
}

func TestLogHelper_API(t *testing.T) {
	helper, buf := createTestLogger()

	helper.API("test API call", "endpoint", "/api/v1/circuits")

	output := buf.String()
	if output == "" {
		t.Error("API log produced no output")
	}

	// 验证输出包含 type:api 字段
	if !contains(output, "api") {
		t.Error("API log missing 'api' type field")
	}
}

func TestLogHelper_Auth(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Auth("authentication successful", "key_name", "ops")

	output := buf.String()
	if output == "" {
		t.Error("Auth log produced no output")
	}

	if !contains(output, "auth") {
		t.Error("Auth log missing 'auth' type field")
	}
}

func TestLogHelper_Request(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Request("POST", "/api/v1/circuits/payment-processor/reset", 200, 12)

	output := buf.String()
	if output == "" {
		t.Error("Request log produced no output")
	}

	// 验证输出包含关键字段
	if !contains(output, "POST") {
		t.Error("Request log missing method")
	}
	if !contains(output, "200") {
		t.Error("Request log missing status code")
	}
}

func TestLogHelper_Circuit(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Circuit("breaker created", "circuit", "llm-openai")

	output := buf.String()
	if output == "" {
		t.Error("Circuit log produced no output")
	}

	if !contains(output, "circuit") {
		t.Error("Circuit log missing 'circuit' type field")
	}
}

func TestLogHelper_FastFail(t *testing.T) {
	helper, buf := createTestLogger()

	helper.FastFail("call rejected", "circuit", "payment-processor")

	output := buf.String()
	if output == "" {
		t.Error("FastFail log produced no output")
	}

	if !contains(output, "fast_fail") {
		t.Error("FastFail log missing 'fast_fail' type field")
	}
	if !contains(output, "warn") {
		t.Error("FastFail log should use warn level")
	}
}

func TestLogHelper_Probe(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Probe("probing open circuit", "circuit", "vision-api")

	output := buf.String()
	if output == "" {
		t.Error("Probe log produced no output")
	}

	if !contains(output, "probe") {
		t.Error("Probe log missing 'probe' type field")
	}
}

func TestLogHelper_StateChange(t *testing.T) {
	helper, buf := createTestLogger()

	helper.StateChange("payment-processor", "closed", "open")

	output := buf.String()
	if !contains(output, "payment-processor") {
		t.Error("StateChange log missing circuit name")
	}
	if !contains(output, "warn") {
		t.Error("StateChange to open should use warn level")
	}

	buf.Reset()
	helper.StateChange("payment-processor", "half_open", "closed")
	output = buf.String()
	if !contains(output, "info") {
		t.Error("StateChange to closed should use info level")
	}
}

func TestLogHelper_Recovered(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Recovered("payment-processor", 2500)

	output := buf.String()
	if output == "" {
		t.Error("Recovered log produced no output")
	}

	// 验证耗时被格式化为秒
	if !contains(output, "2.5s") {
		t.Error("Recovered log missing formatted open duration")
	}
}

func TestLogHelper_Database(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Database("query executed", "table", "circuit_audit_logs")

	output := buf.String()
	if output == "" {
		t.Error("Database log produced no output")
	}

	if !contains(output, "database") {
		t.Error("Database log missing 'database' type field")
	}
}

func TestLogHelper_Redis(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Redis("event published", "channel", "circuitlane:events")

	output := buf.String()
	if output == "" {
		t.Error("Redis log produced no output")
	}

	if !contains(output, "redis") {
		t.Error("Redis log missing 'redis' type field")
	}
}

func TestLogHelper_AdminAction(t *testing.T) {
	helper, buf := createTestLogger()

	ctx := WithRequestContext(context.Background(), "req1234567", "ops", "key-1")
	helper.AdminAction(ctx, "reset", "payment-processor")

	output := buf.String()
	if output == "" {
		t.Error("AdminAction log produced no output")
	}

	// 验证包含关键信息
	if !contains(output, "req1234567") {
		t.Error("AdminAction log missing request ID")
	}
	if !contains(output, "reset") {
		t.Error("AdminAction log missing action")
	}
	if !contains(output, "payment-processor") {
		t.Error("AdminAction log missing circuit name")
	}
}

func TestLogHelper_AllTypes(t *testing.T) {
	// 测试所有日志类型方法都能正常调用
	helper, _ := createTestLogger()

	// 不应该 panic
	helper.Success("circuit recovered")
	helper.Event("state change published")
	helper.Alert("circuit opened")
	helper.Scheduler("probe sweep finished")
	helper.Startup("service started")
	helper.Performance("sweep took 4ms")
	helper.Audit("admin action")
	helper.Security("invalid admin key")
}

// contains 检查字符串是否包含子串
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > len(substr) && containsSubstring(s, substr))
}

func containsSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// TestMain 设置测试环境
func TestMain(m *testing.M) {
	// 运行测试
	code := m.Run()
	os.Exit(code)
}
