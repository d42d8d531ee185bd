package biz

import (
	"context"

	"CircuitLane/internal/model"
)

// EventNotifier defines the interface for publishing circuit breaker events
type EventNotifier interface {
	// NotifyStateChange publishes every state transition
	NotifyStateChange(ctx context.Context, event *model.StateChangedEvent) error

	// NotifyCircuitOpened sends notification when a circuit breaker trips open
	NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error

	// NotifyCircuitRecovered sends notification when a circuit breaker recovers
	NotifyCircuitRecovered(ctx context.Context, event *model.CircuitRecoveredEvent) error
}
