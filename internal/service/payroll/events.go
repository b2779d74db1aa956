package payroll

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/sse"
)

// Event names published on the company stream.
const (
	EventCycleComputed = "cycle.computed"
	EventCycleSettled  = "cycle.settled"
)

type eventingPayrollService struct {
	payroll.PayrollService
	events sse.Publisher
}

// WithEvents publishes cycle changes after they commit.
func WithEvents(svc payroll.PayrollService, events sse.Publisher) payroll.PayrollService {
	return &eventingPayrollService{PayrollService: svc, events: events}
}

func (s *eventingPayrollService) ComputeCycle(ctx context.Context, actor user.Actor, cycleID string) (payroll.ComputeResult, error) {
	result, err := s.PayrollService.ComputeCycle(ctx, actor, cycleID)
	if err != nil {
		return result, err
	}
	s.events.Publish(actor.CompanyID, sse.Event{Event: EventCycleComputed, Data: result})
	return result, nil
}

func (s *eventingPayrollService) SettleCycle(ctx context.Context, actor user.Actor, cycleID string) (payroll.SettlementResult, error) {
	result, err := s.PayrollService.SettleCycle(ctx, actor, cycleID)
	if err != nil {
		return result, err
	}
	s.events.Publish(actor.CompanyID, sse.Event{Event: EventCycleSettled, Data: result})
	return result, nil
}
