package model

// AuditEventType defines audit event type constants stored in the
// circuit_audit_logs action_type column.
type AuditEventType string

const (
	// AuditEventCircuitOpened is logged when a circuit breaker trips open
	AuditEventCircuitOpened AuditEventType = "CIRCUIT_OPENED"

	// AuditEventCircuitHalfOpen is logged when an open circuit starts probing
	AuditEventCircuitHalfOpen AuditEventType = "CIRCUIT_HALF_OPEN"

	// AuditEventCircuitRecovered is logged when a circuit breaker closes again
	AuditEventCircuitRecovered AuditEventType = "CIRCUIT_RECOVERED"

	// AuditEventAdminReset is logged when an operator forces a circuit closed
	AuditEventAdminReset AuditEventType = "ADMIN_RESET"

	// AuditEventAdminTrip is logged when an operator forces a circuit open
	AuditEventAdminTrip AuditEventType = "ADMIN_TRIP"
)

// String returns the string representation of AuditEventType
func (e AuditEventType) String() string {
	return string(e)
}
