package data

import (
	"context"
	"encoding/json"
	"time"

	"CircuitLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// CircuitAuditLog is the GORM model for the circuit_audit_logs table
type CircuitAuditLog struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	Circuit    string    `gorm:"column:circuit;type:varchar(190);not null;index"`
	ActionType string    `gorm:"column:action_type;type:varchar(50);not null"`
	Details    string    `gorm:"column:details;type:json"`                           // JSON string
	Operator   string    `gorm:"column:operator;type:varchar(100);default:'system'"` // "system" or the admin key name
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (CircuitAuditLog) TableName() string {
	return "circuit_audit_logs"
}

// AuditLoggerImpl implements biz.AuditLogger interface
type AuditLoggerImpl struct {
	db      *gorm.DB
	logChan chan *CircuitAuditLog
	logger  *log.Helper
}

// NewAuditLogger creates a new audit logger with async channel
func NewAuditLogger(db *gorm.DB, logger log.Logger) *AuditLoggerImpl {
	al := &AuditLoggerImpl{
		db:      db,
		logChan: make(chan *CircuitAuditLog, 1000), // Buffer size 1000 to prevent blocking
		logger:  log.NewHelper(logger),
	}

	// Keep the audit table in step with the model
	if err := db.AutoMigrate(&CircuitAuditLog{}); err != nil {
		al.logger.Errorw("msg", "failed to migrate circuit_audit_logs table", "error", err)
	}

	// Start background goroutine for async logging
	go al.start()

	return al
}

// start processes audit log events from channel
func (a *AuditLoggerImpl) start() {
	for event := range a.logChan {
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(event).Error; err != nil {
			a.logger.Errorw("msg", "failed to write audit log",
				"circuit", event.Circuit,
				"action_type", event.ActionType,
				"error", err)
		} else {
			a.logger.Debugw("msg", "audit log written",
				"circuit", event.Circuit,
				"action_type", event.ActionType)
		}
	}
}

// enqueue sends an event to the channel without blocking the caller.
func (a *AuditLoggerImpl) enqueue(event *CircuitAuditLog) {
	select {
	case a.logChan <- event:
		// Successfully queued
	default:
		a.logger.Warnw("msg", "audit log channel full, dropping event",
			"circuit", event.Circuit,
			"action_type", event.ActionType)
	}
}

// LogStateChange records one breaker transition. The action type follows the
// state entered, so open, half_open and closed map to CIRCUIT_OPENED,
// CIRCUIT_HALF_OPEN and CIRCUIT_RECOVERED.
func (a *AuditLoggerImpl) LogStateChange(ctx context.Context, circuit, fromState, toState string, occurredAt time.Time) {
	action, ok := actionForTransition(toState)
	if !ok {
		a.logger.Errorw("msg", "unknown breaker state in audit event",
			"circuit", circuit,
			"to_state", toState)
		return
	}

	details := map[string]interface{}{
		"from_state":  fromState,
		"to_state":    toState,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal audit log details", "error", err)
		return
	}

	a.enqueue(&CircuitAuditLog{
		Circuit:    circuit,
		ActionType: action.String(),
		Details:    string(detailsJSON),
		Operator:   "system",
	})
}

// LogAdminReset records a manual reset issued through the admin API.
func (a *AuditLoggerImpl) LogAdminReset(ctx context.Context, circuit, operator, previousState string) {
	a.logAdminAction(model.AuditEventAdminReset, circuit, operator, previousState)
}

// LogAdminTrip records a manual trip issued through the admin API.
func (a *AuditLoggerImpl) LogAdminTrip(ctx context.Context, circuit, operator, previousState string) {
	a.logAdminAction(model.AuditEventAdminTrip, circuit, operator, previousState)
}

func (a *AuditLoggerImpl) logAdminAction(action model.AuditEventType, circuit, operator, previousState string) {
	details := map[string]interface{}{
		"previous_state": previousState,
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal audit log details", "error", err)
		return
	}

	if operator == "" {
		operator = "system"
	}

	a.enqueue(&CircuitAuditLog{
		Circuit:    circuit,
		ActionType: action.String(),
		Details:    string(detailsJSON),
		Operator:   operator,
	})
}

// actionForTransition maps the state a breaker entered to the audit action
// describing the transition.
func actionForTransition(toState string) (model.AuditEventType, bool) {
	switch toState {
	case "open":
		return model.AuditEventCircuitOpened, true
	case "half_open":
		return model.AuditEventCircuitHalfOpen, true
	case "closed":
		return model.AuditEventCircuitRecovered, true
	default:
		return "", false
	}
}
