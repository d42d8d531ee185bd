package biz

import (
	"context"
	"fmt"

	"CircuitLane/pkg/breaker"
	pkglog "CircuitLane/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// CircuitAdminUsecase implements the operator surface over the breaker
// registry: listings, detail snapshots and manual overrides.
type CircuitAdminUsecase struct {
	registry *breaker.Registry
	audit    AuditLogger
	logger   *pkglog.LogHelper
}

// NewCircuitAdminUsecase creates a new circuit admin use case.
func NewCircuitAdminUsecase(registry *breaker.Registry, audit AuditLogger, logger log.Logger) *CircuitAdminUsecase {
	return &CircuitAdminUsecase{
		registry: registry,
		audit:    audit,
		logger:   pkglog.NewLogHelper(logger),
	}
}

// newCircuitNotFoundError creates the API error returned for unknown circuit names.
func newCircuitNotFoundError(name string) error {
	return errors.New(
		404,
		"CIRCUIT_NOT_FOUND",
		fmt.Sprintf("circuit breaker %q not found", name),
	)
}

// operatorFrom extracts the acting operator from the request context.
// Falls back to "system" for calls without an authenticated admin key.
func operatorFrom(ctx context.Context) string {
	if name := pkglog.GetRequestContext(ctx).KeyName; name != "" {
		return name
	}
	return "system"
}

// ListCircuits returns status snapshots for every registered breaker,
// sorted by name.
func (uc *CircuitAdminUsecase) ListCircuits(ctx context.Context) []breaker.Status {
	return uc.registry.Statuses()
}

// GetCircuit returns the status snapshot for one breaker.
func (uc *CircuitAdminUsecase) GetCircuit(ctx context.Context, name string) (breaker.Status, error) {
	st, err := uc.registry.Status(name)
	if err != nil {
		if breaker.IsNotFound(err) {
			return breaker.Status{}, newCircuitNotFoundError(name)
		}
		return breaker.Status{}, err
	}
	return st, nil
}

// ResetCircuit forces a breaker back to closed and clears its runtime
// counters. Lifetime metrics survive the reset.
func (uc *CircuitAdminUsecase) ResetCircuit(ctx context.Context, name string) (breaker.Status, error) {
	b, ok := uc.registry.Get(name)
	if !ok {
		return breaker.Status{}, newCircuitNotFoundError(name)
	}

	previous := b.State()
	b.Reset()

	uc.audit.LogAdminReset(ctx, name, operatorFrom(ctx), previous.String())
	uc.logger.AdminAction(ctx, "reset", name,
		"previous_state", previous.String(),
	)

	return b.Status(), nil
}

// TripCircuit forces a breaker open. Tripping an already open breaker
// restarts its recovery timeout.
func (uc *CircuitAdminUsecase) TripCircuit(ctx context.Context, name string) (breaker.Status, error) {
	b, ok := uc.registry.Get(name)
	if !ok {
		return breaker.Status{}, newCircuitNotFoundError(name)
	}

	previous := b.State()
	b.ForceOpen()

	uc.audit.LogAdminTrip(ctx, name, operatorFrom(ctx), previous.String())
	uc.logger.AdminAction(ctx, "trip", name,
		"previous_state", previous.String(),
	)

	return b.Status(), nil
}

// LogOpenCircuitSummary writes one operational summary covering every
// breaker that is not closed. Quiet when everything is healthy.
func (uc *CircuitAdminUsecase) LogOpenCircuitSummary(ctx context.Context) int {
	statuses := uc.registry.Statuses()

	unhealthy := make([]string, 0)
	for _, st := range statuses {
		if st.State != breaker.StateClosed.String() {
			unhealthy = append(unhealthy, fmt.Sprintf("%s=%s", st.Name, st.State))
		}
	}

	if len(unhealthy) == 0 {
		uc.logger.Debugw("msg", "all circuits closed",
			"total", len(statuses),
			"type", "scheduler",
		)
		return 0
	}

	uc.logger.Scheduler(fmt.Sprintf("%d of %d circuits not closed", len(unhealthy), len(statuses)),
		"total", len(statuses),
		"unhealthy", unhealthy,
	)

	return len(unhealthy)
}
