package loan

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/sse"
)

const (
	EventLoanApproved    = "loan.approved"
	EventLoanRejected    = "loan.rejected"
	EventAdvanceApproved = "advance.approved"
	EventAdvanceRejected = "advance.rejected"
)

type eventingLoanService struct {
	loan.LoanService
	events sse.Publisher
}

// WithEvents publishes approval decisions after they commit.
func WithEvents(svc loan.LoanService, events sse.Publisher) loan.LoanService {
	return &eventingLoanService{LoanService: svc, events: events}
}

func (s *eventingLoanService) ApproveLoan(ctx context.Context, actor user.Actor, req loan.ApproveRequest) (loan.LoanResponse, error) {
	resp, err := s.LoanService.ApproveLoan(ctx, actor, req)
	if err == nil {
		s.events.Publish(actor.CompanyID, sse.Event{Event: EventLoanApproved, Data: resp})
	}
	return resp, err
}

func (s *eventingLoanService) RejectLoan(ctx context.Context, actor user.Actor, req loan.RejectRequest) (loan.LoanResponse, error) {
	resp, err := s.LoanService.RejectLoan(ctx, actor, req)
	if err == nil {
		s.events.Publish(actor.CompanyID, sse.Event{Event: EventLoanRejected, Data: resp})
	}
	return resp, err
}

func (s *eventingLoanService) ApproveAdvance(ctx context.Context, actor user.Actor, req loan.ApproveRequest) (loan.AdvanceResponse, error) {
	resp, err := s.LoanService.ApproveAdvance(ctx, actor, req)
	if err == nil {
		s.events.Publish(actor.CompanyID, sse.Event{Event: EventAdvanceApproved, Data: resp})
	}
	return resp, err
}

func (s *eventingLoanService) RejectAdvance(ctx context.Context, actor user.Actor, req loan.RejectRequest) (loan.AdvanceResponse, error) {
	resp, err := s.LoanService.RejectAdvance(ctx, actor, req)
	if err == nil {
		s.events.Publish(actor.CompanyID, sse.Event{Event: EventAdvanceRejected, Data: resp})
	}
	return resp, err
}
