package model

import "time"

// StateChangedEvent is the payload published on every circuit breaker
// state transition.
type StateChangedEvent struct {
	Circuit    string    `json:"circuit"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CircuitOpenedEvent represents a circuit breaker tripping open
type CircuitOpenedEvent struct {
	Circuit   string    `json:"circuit"`
	FromState string    `json:"from_state"`
	OpenedAt  time.Time `json:"opened_at"`
}

// CircuitRecoveredEvent represents a circuit breaker closing again
type CircuitRecoveredEvent struct {
	Circuit      string        `json:"circuit"`
	OpenDuration time.Duration `json:"open_duration"`
	RecoveredAt  time.Time     `json:"recovered_at"`
}
