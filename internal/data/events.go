package data

import (
	"context"
	"encoding/json"
	"fmt"

	"CircuitLane/internal/conf"
	"CircuitLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// defaultEventChannel is used when the events section is absent from config.
const defaultEventChannel = "circuitlane:circuit-events"

// eventEnvelope wraps every published payload with its kind so dashboard
// consumers can demultiplex a single channel.
type eventEnvelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RedisEventPublisher pushes circuit events onto a Redis pub/sub channel.
type RedisEventPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *log.Helper
}

// NewRedisEventPublisher creates a publisher bound to the configured channel.
func NewRedisEventPublisher(bc *conf.Bootstrap, rdb *redis.Client, logger log.Logger) *RedisEventPublisher {
	channel := defaultEventChannel
	if bc != nil && bc.Breaker != nil && bc.Breaker.Events != nil && bc.Breaker.Events.Channel != "" {
		channel = bc.Breaker.Events.Channel
	}

	return &RedisEventPublisher{
		rdb:     rdb,
		channel: channel,
		logger:  log.NewHelper(logger),
	}
}

// Channel returns the pub/sub channel events are published to.
func (p *RedisEventPublisher) Channel() string {
	return p.channel
}

// NotifyStateChange publishes one breaker transition.
func (p *RedisEventPublisher) NotifyStateChange(ctx context.Context, event *model.StateChangedEvent) error {
	return p.publish(ctx, "state_changed", event)
}

// NotifyCircuitOpened publishes an opened alert.
func (p *RedisEventPublisher) NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error {
	return p.publish(ctx, "circuit_opened", event)
}

// NotifyCircuitRecovered publishes a recovery notice.
func (p *RedisEventPublisher) NotifyCircuitRecovered(ctx context.Context, event *model.CircuitRecoveredEvent) error {
	return p.publish(ctx, "circuit_recovered", event)
}

func (p *RedisEventPublisher) publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(eventEnvelope{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.Debugw("msg", "circuit event published",
		"channel", p.channel,
		"event_type", eventType)
	return nil
}

// NoopEventNotifier is used when Redis is unavailable. Events still show up
// in the service log so a single-node deployment loses nothing.
type NoopEventNotifier struct {
	logger *log.Helper
}

// NewNoopEventNotifier creates a new noop notifier
func NewNoopEventNotifier(logger log.Logger) *NoopEventNotifier {
	return &NoopEventNotifier{
		logger: log.NewHelper(logger),
	}
}

// NotifyStateChange logs the transition (event publishing disabled)
func (s *NoopEventNotifier) NotifyStateChange(ctx context.Context, event *model.StateChangedEvent) error {
	s.logger.Debugw("msg", "state change (event publishing disabled)",
		"circuit", event.Circuit,
		"from_state", event.FromState,
		"to_state", event.ToState)
	return nil
}

// NotifyCircuitOpened logs the opened alert (event publishing disabled)
func (s *NoopEventNotifier) NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error {
	s.logger.Infow("msg", "circuit opened (event publishing disabled)",
		"circuit", event.Circuit,
		"from_state", event.FromState,
		"opened_at", event.OpenedAt)
	return nil
}

// NotifyCircuitRecovered logs the recovery notice (event publishing disabled)
func (s *NoopEventNotifier) NotifyCircuitRecovered(ctx context.Context, event *model.CircuitRecoveredEvent) error {
	s.logger.Infow("msg", "circuit recovered (event publishing disabled)",
		"circuit", event.Circuit,
		"open_duration", event.OpenDuration,
		"recovered_at", event.RecoveredAt)
	return nil
}
