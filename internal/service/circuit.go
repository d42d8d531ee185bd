package service

import (
	"context"

	"CircuitLane/internal/biz"
	"CircuitLane/pkg/breaker"
	pkglog "CircuitLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// ListCircuitsReply is the response body of the circuit listing endpoint.
type ListCircuitsReply struct {
	Circuits []breaker.Status `json:"circuits"`
	Total    int              `json:"total"`
}

// AdminActionReply echoes the breaker snapshot taken right after a manual
// reset or trip so the caller sees the state it produced.
type AdminActionReply struct {
	Circuit string         `json:"circuit"`
	Action  string         `json:"action"`
	Status  breaker.Status `json:"status"`
}

// CircuitService exposes the admin operations over the breaker registry.
type CircuitService struct {
	admin  *biz.CircuitAdminUsecase
	logger *log.Helper
}

// NewCircuitService creates a new CircuitService instance.
func NewCircuitService(admin *biz.CircuitAdminUsecase, logger log.Logger) *CircuitService {
	return &CircuitService{
		admin:  admin,
		logger: log.NewHelper(logger),
	}
}

// ListCircuits returns a snapshot of every registered breaker.
func (s *CircuitService) ListCircuits(ctx context.Context) (*ListCircuitsReply, error) {
	statuses := s.admin.ListCircuits(ctx)
	s.logger.Debugw("msg", "ListCircuits called", "total", len(statuses))

	return &ListCircuitsReply{
		Circuits: statuses,
		Total:    len(statuses),
	}, nil
}

// GetCircuit returns the snapshot of one breaker.
func (s *CircuitService) GetCircuit(ctx context.Context, name string) (*breaker.Status, error) {
	pkglog.SetCircuit(ctx, name)
	s.logger.Debugw("msg", "GetCircuit called", "circuit", name)

	status, err := s.admin.GetCircuit(ctx, name)
	if err != nil {
		s.logger.Warnw("msg", "failed to get circuit", "circuit", name, "error", err)
		return nil, err
	}

	return &status, nil
}

// ResetCircuit forces a breaker back to closed.
func (s *CircuitService) ResetCircuit(ctx context.Context, name string) (*AdminActionReply, error) {
	pkglog.SetCircuit(ctx, name)
	s.logger.Infow("msg", "ResetCircuit called", "circuit", name)

	status, err := s.admin.ResetCircuit(ctx, name)
	if err != nil {
		s.logger.Warnw("msg", "failed to reset circuit", "circuit", name, "error", err)
		return nil, err
	}

	return &AdminActionReply{
		Circuit: name,
		Action:  "reset",
		Status:  status,
	}, nil
}

// TripCircuit forces a breaker open.
func (s *CircuitService) TripCircuit(ctx context.Context, name string) (*AdminActionReply, error) {
	pkglog.SetCircuit(ctx, name)
	s.logger.Infow("msg", "TripCircuit called", "circuit", name)

	status, err := s.admin.TripCircuit(ctx, name)
	if err != nil {
		s.logger.Warnw("msg", "failed to trip circuit", "circuit", name, "error", err)
		return nil, err
	}

	return &AdminActionReply{
		Circuit: name,
		Action:  "trip",
		Status:  status,
	}, nil
}
