package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CircuitLane/internal/conf"
	"CircuitLane/internal/model"
	"CircuitLane/pkg/breaker"
	pkglog "CircuitLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// alertDedupCacheSize bounds the number of circuits tracked for alert dedup
	alertDedupCacheSize = 128

	// defaultAlertDedupTTL applies when breaker.events.dedup_ttl is not configured
	defaultAlertDedupTTL = 5 * time.Minute

	// eventPublishTimeout bounds notifier and audit calls made from listener goroutines
	eventPublishTimeout = 5 * time.Second
)

// CircuitEventObserver reacts to circuit breaker state transitions: it logs
// them, records them in the audit trail and fans them out through the
// EventNotifier. Opened alerts are deduplicated per circuit so a flapping
// dependency does not spam the alert channel.
type CircuitEventObserver struct {
	notifier EventNotifier
	audit    AuditLogger
	logger   *pkglog.LogHelper

	// dedup remembers circuits that already alerted within the TTL window
	dedup *expirable.LRU[string, time.Time]

	mu       sync.Mutex
	openedAt map[string]time.Time

	now func() time.Time
}

// NewCircuitEventObserver creates the observer wired to the configured
// notifier and audit trail.
func NewCircuitEventObserver(bc *conf.Bootstrap, notifier EventNotifier, audit AuditLogger, logger log.Logger) *CircuitEventObserver {
	ttl := defaultAlertDedupTTL
	if bc != nil && bc.Breaker != nil && bc.Breaker.Events != nil {
		if d := bc.Breaker.Events.DedupTTL.AsDuration(); d > 0 {
			ttl = d
		}
	}

	return &CircuitEventObserver{
		notifier: notifier,
		audit:    audit,
		logger:   pkglog.NewLogHelper(logger),
		dedup:    expirable.NewLRU[string, time.Time](alertDedupCacheSize, nil, ttl),
		openedAt: make(map[string]time.Time),
		now:      time.Now,
	}
}

// OnStateChange implements breaker.StateChangeFunc. The registry invokes it
// on its own goroutines, so blocking here never stalls a guarded call.
func (o *CircuitEventObserver) OnStateChange(circuit string, from, to breaker.State) {
	occurredAt := o.now()

	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()

	o.logger.StateChange(circuit, from.String(), to.String())
	o.audit.LogStateChange(ctx, circuit, from.String(), to.String(), occurredAt)

	if err := o.notifier.NotifyStateChange(ctx, &model.StateChangedEvent{
		Circuit:    circuit,
		FromState:  from.String(),
		ToState:    to.String(),
		OccurredAt: occurredAt,
	}); err != nil {
		o.logger.Warnw("msg", "failed to publish state change event",
			"circuit", circuit,
			"from_state", from.String(),
			"to_state", to.String(),
			"error", err.Error(),
		)
	}

	switch {
	case to == breaker.StateOpen:
		o.handleOpened(ctx, circuit, from, occurredAt)
	case to == breaker.StateClosed && from != breaker.StateClosed:
		o.handleRecovered(ctx, circuit, occurredAt)
	}
}

// handleOpened records when the outage began and raises one deduplicated
// alert per circuit per TTL window.
func (o *CircuitEventObserver) handleOpened(ctx context.Context, circuit string, from breaker.State, openedAt time.Time) {
	o.mu.Lock()
	// A failed probe reopens the circuit; keep the original outage start.
	if _, tracked := o.openedAt[circuit]; !tracked {
		o.openedAt[circuit] = openedAt
	}
	o.mu.Unlock()

	if _, dup := o.dedup.Get(circuit); dup {
		o.logger.Debugw("msg", "opened alert suppressed",
			"circuit", circuit,
			"type", "alert",
		)
		return
	}
	o.dedup.Add(circuit, openedAt)

	o.logger.Alert(fmt.Sprintf("Circuit breaker '%s' is OPEN, calls are failing fast", circuit),
		"circuit", circuit,
		"from_state", from.String(),
	)

	if err := o.notifier.NotifyCircuitOpened(ctx, &model.CircuitOpenedEvent{
		Circuit:   circuit,
		FromState: from.String(),
		OpenedAt:  openedAt,
	}); err != nil {
		o.logger.Warnw("msg", "failed to publish circuit opened event",
			"circuit", circuit,
			"error", err.Error(),
		)
	}
}

// handleRecovered clears outage tracking, re-arms the opened alert and
// reports how long the circuit was open.
func (o *CircuitEventObserver) handleRecovered(ctx context.Context, circuit string, recoveredAt time.Time) {
	o.mu.Lock()
	openedAt, tracked := o.openedAt[circuit]
	delete(o.openedAt, circuit)
	o.mu.Unlock()

	// The next open should alert again immediately.
	o.dedup.Remove(circuit)

	var openDuration time.Duration
	if tracked {
		openDuration = recoveredAt.Sub(openedAt)
	}

	o.logger.Recovered(circuit, openDuration.Milliseconds())

	if err := o.notifier.NotifyCircuitRecovered(ctx, &model.CircuitRecoveredEvent{
		Circuit:      circuit,
		OpenDuration: openDuration,
		RecoveredAt:  recoveredAt,
	}); err != nil {
		o.logger.Warnw("msg", "failed to publish circuit recovered event",
			"circuit", circuit,
			"error", err.Error(),
		)
	}
}
