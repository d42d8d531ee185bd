// Package biz contains business logic layer implementations.
// This layer holds the core business rules and domain models.
package biz

import (
	"CircuitLane/internal/conf"
	"CircuitLane/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewBreakerRegistry,
	NewCircuitEventObserver,
	NewCircuitAdminUsecase,
	NewHealthChecker,
	NewEventNotifier,
	// Import data layer providers
	data.NewAuditLogger,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(AuditLogger), new(*data.AuditLoggerImpl)),
)

// NewEventNotifier selects the event publishing backend. Redis being down or
// unconfigured must not take the admin API down with it, so a nil client
// degrades to the in-process noop notifier.
func NewEventNotifier(bc *conf.Bootstrap, d *data.Data, logger log.Logger) EventNotifier {
	rdb := d.GetRedisClient()
	if rdb == nil {
		log.NewHelper(logger).Warnw("msg", "redis unavailable, circuit events will not be published")
		return data.NewNoopEventNotifier(logger)
	}
	return data.NewRedisEventPublisher(bc, rdb, logger)
}
