package loan

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

type LoanService interface {
	// Loan types
	CreateLoanType(ctx context.Context, actor user.Actor, req CreateLoanTypeRequest) (LoanTypeResponse, error)
	ListLoanTypes(ctx context.Context, actor user.Actor) ([]LoanTypeResponse, error)
	SeedDefaultLoanTypes(ctx context.Context, actor user.Actor) ([]LoanTypeResponse, error)

	// Loans
	ApplyLoan(ctx context.Context, actor user.Actor, req ApplyLoanRequest) (LoanResponse, error)
	ApproveLoan(ctx context.Context, actor user.Actor, req ApproveRequest) (LoanResponse, error)
	RejectLoan(ctx context.Context, actor user.Actor, req RejectRequest) (LoanResponse, error)
	GetLoan(ctx context.Context, actor user.Actor, id string) (LoanResponse, error)
	ListLoans(ctx context.Context, actor user.Actor, filter DebtFilter) ([]LoanResponse, error)
	ListLoanPostings(ctx context.Context, actor user.Actor, loanID string) ([]PostingResponse, error)

	// Advances
	RequestAdvance(ctx context.Context, actor user.Actor, req RequestAdvanceRequest) (AdvanceResponse, error)
	ApproveAdvance(ctx context.Context, actor user.Actor, req ApproveRequest) (AdvanceResponse, error)
	RejectAdvance(ctx context.Context, actor user.Actor, req RejectRequest) (AdvanceResponse, error)
	GetAdvance(ctx context.Context, actor user.Actor, id string) (AdvanceResponse, error)
	ListAdvances(ctx context.Context, actor user.Actor, filter DebtFilter) ([]AdvanceResponse, error)
	ListAdvancePostings(ctx context.Context, actor user.Actor, advanceID string) ([]PostingResponse, error)

	// Limit
	GetBorrowingLimit(ctx context.Context, actor user.Actor, employeeID string) (BorrowingLimitResponse, error)
}

// ObligationScheduler decides which debt installments a cycle collects.
type ObligationScheduler interface {
	DueObligations(ctx context.Context, companyID string, employeeID string, window payroll.Window) ([]Obligation, error)
}
