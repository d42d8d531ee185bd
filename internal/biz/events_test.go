package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"CircuitLane/internal/model"
	"CircuitLane/pkg/breaker"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEventNotifier is a mock implementation of EventNotifier for testing.
type MockEventNotifier struct {
	mock.Mock
}

func (m *MockEventNotifier) NotifyStateChange(ctx context.Context, event *model.StateChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventNotifier) NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventNotifier) NotifyCircuitRecovered(ctx context.Context, event *model.CircuitRecoveredEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Helper function to create a test CircuitEventObserver
func newTestObserver(notifier *MockEventNotifier, audit *MockAuditLogger) *CircuitEventObserver {
	logger := log.NewStdLogger(os.Stdout)
	return NewCircuitEventObserver(nil, notifier, audit, logger)
}

// Test OnStateChange - every transition is published and audit-logged
func TestOnStateChange_NotifiesAndAudits(t *testing.T) {
	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	audit.On("LogStateChange", mock.Anything, "payment-api", "closed", "open", mock.Anything).Return()
	notifier.On("NotifyStateChange", mock.Anything, mock.MatchedBy(func(e *model.StateChangedEvent) bool {
		return e.Circuit == "payment-api" && e.FromState == "closed" && e.ToState == "open"
	})).Return(nil)
	notifier.On("NotifyCircuitOpened", mock.Anything, mock.MatchedBy(func(e *model.CircuitOpenedEvent) bool {
		return e.Circuit == "payment-api" && e.FromState == "closed"
	})).Return(nil)

	obs.OnStateChange("payment-api", breaker.StateClosed, breaker.StateOpen)

	notifier.AssertExpectations(t)
	audit.AssertExpectations(t)
}

// Test OnStateChange - a reopen inside the TTL window raises no second alert
func TestOnStateChange_DedupesOpenedAlert(t *testing.T) {
	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	audit.On("LogStateChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyCircuitOpened", mock.Anything, mock.Anything).Return(nil)

	obs.OnStateChange("payment-api", breaker.StateClosed, breaker.StateOpen)
	obs.OnStateChange("payment-api", breaker.StateOpen, breaker.StateHalfOpen)
	obs.OnStateChange("payment-api", breaker.StateHalfOpen, breaker.StateOpen)

	notifier.AssertNumberOfCalls(t, "NotifyStateChange", 3)
	notifier.AssertNumberOfCalls(t, "NotifyCircuitOpened", 1)
}

// Test OnStateChange - recovery reports how long the circuit was open and
// re-arms the alert
func TestOnStateChange_RecoveryReportsOpenDuration(t *testing.T) {
	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	obs.now = func() time.Time { return current }

	audit.On("LogStateChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyCircuitOpened", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyCircuitRecovered", mock.Anything, mock.MatchedBy(func(e *model.CircuitRecoveredEvent) bool {
		return e.Circuit == "payment-api" && e.OpenDuration == 90*time.Second && e.RecoveredAt.Equal(base.Add(90*time.Second))
	})).Return(nil)

	obs.OnStateChange("payment-api", breaker.StateClosed, breaker.StateOpen)

	current = base.Add(60 * time.Second)
	obs.OnStateChange("payment-api", breaker.StateOpen, breaker.StateHalfOpen)

	current = base.Add(90 * time.Second)
	obs.OnStateChange("payment-api", breaker.StateHalfOpen, breaker.StateClosed)

	notifier.AssertExpectations(t)

	// The dedup entry was cleared on recovery, so the next open alerts again.
	obs.OnStateChange("payment-api", breaker.StateClosed, breaker.StateOpen)
	notifier.AssertNumberOfCalls(t, "NotifyCircuitOpened", 2)
}

// Test OnStateChange - a failed probe keeps the original outage start
func TestOnStateChange_ReopenKeepsOutageStart(t *testing.T) {
	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	obs.now = func() time.Time { return current }

	audit.On("LogStateChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyCircuitOpened", mock.Anything, mock.Anything).Return(nil)
	notifier.On("NotifyCircuitRecovered", mock.Anything, mock.MatchedBy(func(e *model.CircuitRecoveredEvent) bool {
		return e.OpenDuration == 120*time.Second
	})).Return(nil)

	obs.OnStateChange("payment-api", breaker.StateClosed, breaker.StateOpen)

	current = base.Add(60 * time.Second)
	obs.OnStateChange("payment-api", breaker.StateOpen, breaker.StateHalfOpen)

	current = base.Add(65 * time.Second)
	obs.OnStateChange("payment-api", breaker.StateHalfOpen, breaker.StateOpen)

	current = base.Add(120 * time.Second)
	obs.OnStateChange("payment-api", breaker.StateOpen, breaker.StateHalfOpen)
	obs.OnStateChange("payment-api", breaker.StateHalfOpen, breaker.StateClosed)

	notifier.AssertExpectations(t)
}

// Test OnStateChange - entering half-open raises no alert and no recovery
func TestOnStateChange_HalfOpenIsQuiet(t *testing.T) {
	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	audit.On("LogStateChange", mock.Anything, "payment-api", "open", "half_open", mock.Anything).Return()
	notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(nil)

	obs.OnStateChange("payment-api", breaker.StateOpen, breaker.StateHalfOpen)

	notifier.AssertNotCalled(t, "NotifyCircuitOpened")
	notifier.AssertNotCalled(t, "NotifyCircuitRecovered")
	audit.AssertExpectations(t)
}

// Test OnStateChange - notifier failures are logged, never propagated
func TestOnStateChange_NotifierErrorsAreSwallowed(t *testing.T) {
	notifier := new(MockEventNotifier)
	audit := new(MockAuditLogger)
	obs := newTestObserver(notifier, audit)

	publishErr := errors.New("redis: connection refused")
	audit.On("LogStateChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	notifier.On("NotifyStateChange", mock.Anything, mock.Anything).Return(publishErr)
	notifier.On("NotifyCircuitOpened", mock.Anything, mock.Anything).Return(publishErr)

	assert.NotPanics(t, func() {
		obs.OnStateChange("payment-api", breaker.StateClosed, breaker.StateOpen)
	})
	audit.AssertExpectations(t)
}
