package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"CircuitLane/pkg/breaker"
	pkglog "CircuitLane/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuditLogger is a mock implementation of AuditLogger for testing.
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogStateChange(ctx context.Context, circuit, fromState, toState string, occurredAt time.Time) {
	m.Called(ctx, circuit, fromState, toState, occurredAt)
}

func (m *MockAuditLogger) LogAdminReset(ctx context.Context, circuit, operator, previousState string) {
	m.Called(ctx, circuit, operator, previousState)
}

func (m *MockAuditLogger) LogAdminTrip(ctx context.Context, circuit, operator, previousState string) {
	m.Called(ctx, circuit, operator, previousState)
}

// newTestBreakerConfig keeps thresholds small so tests trip quickly.
func newTestBreakerConfig() breaker.Config {
	return breaker.Config{
		FailureThreshold:      3,
		SuccessThreshold:      2,
		Timeout:               time.Minute,
		HalfOpenMaxCalls:      2,
		FailureRateThreshold:  0.5,
		WindowSize:            10,
		SlowCallThreshold:     time.Second,
		SlowCallRateThreshold: 0.5,
	}
}

// Helper function to create a test CircuitAdminUsecase
func newTestAdmin(audit *MockAuditLogger) (*CircuitAdminUsecase, *breaker.Registry) {
	logger := log.NewStdLogger(os.Stdout)
	registry := breaker.NewRegistry(breaker.WithDefaultConfig(newTestBreakerConfig()))
	return NewCircuitAdminUsecase(registry, audit, logger), registry
}

// tripBreaker records consecutive failures until the breaker opens.
func tripBreaker(b *breaker.CircuitBreaker) {
	for b.State() != breaker.StateOpen {
		b.RecordFailure(errors.New("dependency unavailable"))
	}
}

// Test ListCircuits - empty registry
func TestListCircuits_Empty(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, _ := newTestAdmin(audit)

	statuses := uc.ListCircuits(context.Background())
	assert.Empty(t, statuses)
}

// Test ListCircuits - snapshots come back sorted by name
func TestListCircuits_SortedByName(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, registry := newTestAdmin(audit)

	registry.GetOrCreate("payment-api")
	registry.GetOrCreate("auth-service")
	registry.GetOrCreate("reporting-db")

	statuses := uc.ListCircuits(context.Background())
	require.Len(t, statuses, 3)
	assert.Equal(t, "auth-service", statuses[0].Name)
	assert.Equal(t, "payment-api", statuses[1].Name)
	assert.Equal(t, "reporting-db", statuses[2].Name)
}

func TestGetCircuit_Success(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, registry := newTestAdmin(audit)

	registry.GetOrCreate("payment-api")

	st, err := uc.GetCircuit(context.Background(), "payment-api")
	require.NoError(t, err)
	assert.Equal(t, "payment-api", st.Name)
	assert.Equal(t, "closed", st.State)
}

// Test GetCircuit - unknown name maps to a 404 API error
func TestGetCircuit_NotFound(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, _ := newTestAdmin(audit)

	_, err := uc.GetCircuit(context.Background(), "ghost")
	require.Error(t, err)

	kerr := kerrors.FromError(err)
	assert.Equal(t, int32(404), kerr.Code)
	assert.Equal(t, "CIRCUIT_NOT_FOUND", kerr.Reason)
}

// Test ResetCircuit - open breaker closes, runtime counters clear,
// lifetime metrics survive
func TestResetCircuit_ReclosesOpenBreaker(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, registry := newTestAdmin(audit)

	b := registry.GetOrCreate("payment-api")
	tripBreaker(b)
	require.Equal(t, breaker.StateOpen, b.State())

	audit.On("LogAdminReset", mock.Anything, "payment-api", "system", "open").Return()

	st, err := uc.ResetCircuit(context.Background(), "payment-api")
	require.NoError(t, err)
	assert.Equal(t, "closed", st.State)
	assert.Equal(t, 0, st.Metrics.ConsecutiveFailures)
	assert.Equal(t, int64(3), st.Metrics.FailedCalls)
	audit.AssertExpectations(t)
}

func TestResetCircuit_NotFound(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, _ := newTestAdmin(audit)

	_, err := uc.ResetCircuit(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, int32(404), kerrors.FromError(err).Code)
	audit.AssertNotCalled(t, "LogAdminReset")
}

// Test ResetCircuit - the operator comes from the authenticated request context
func TestResetCircuit_RecordsOperatorFromContext(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, registry := newTestAdmin(audit)

	registry.GetOrCreate("payment-api")

	ctx := pkglog.WithRequestContext(context.Background(), "req-1", "admin", "sk-12345***")
	audit.On("LogAdminReset", mock.Anything, "payment-api", "admin", "closed").Return()

	_, err := uc.ResetCircuit(ctx, "payment-api")
	require.NoError(t, err)
	audit.AssertExpectations(t)
}

func TestTripCircuit_OpensClosedBreaker(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, registry := newTestAdmin(audit)

	b := registry.GetOrCreate("payment-api")
	audit.On("LogAdminTrip", mock.Anything, "payment-api", "system", "closed").Return()

	st, err := uc.TripCircuit(context.Background(), "payment-api")
	require.NoError(t, err)
	assert.Equal(t, "open", st.State)
	require.NotNil(t, st.RecoveryInSeconds)
	assert.InDelta(t, 60.0, *st.RecoveryInSeconds, 1.0)
	assert.Equal(t, breaker.StateOpen, b.State())
	audit.AssertExpectations(t)
}

func TestTripCircuit_NotFound(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, _ := newTestAdmin(audit)

	_, err := uc.TripCircuit(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, int32(404), kerrors.FromError(err).Code)
	audit.AssertNotCalled(t, "LogAdminTrip")
}

func TestLogOpenCircuitSummary(t *testing.T) {
	audit := new(MockAuditLogger)
	uc, registry := newTestAdmin(audit)

	registry.GetOrCreate("auth-service")
	assert.Equal(t, 0, uc.LogOpenCircuitSummary(context.Background()))

	tripBreaker(registry.GetOrCreate("payment-api"))
	assert.Equal(t, 1, uc.LogOpenCircuitSummary(context.Background()))
}
