package biz

import (
	"context"
	"time"
)

// AuditLogger defines the interface for the durable audit trail of circuit
// breaker transitions and admin overrides.
type AuditLogger interface {
	// LogStateChange logs one state transition
	LogStateChange(ctx context.Context, circuit, fromState, toState string, occurredAt time.Time)

	// LogAdminReset logs an operator forcing a circuit closed
	LogAdminReset(ctx context.Context, circuit, operator, previousState string)

	// LogAdminTrip logs an operator forcing a circuit open
	LogAdminTrip(ctx context.Context, circuit, operator, previousState string)
}
