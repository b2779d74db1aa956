package loan

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

// LoanRepository defines data access for loan types, loans, salary
// advances and repayment postings.
type LoanRepository interface {
	// Loan types
	CreateLoanType(ctx context.Context, loanType LoanType) (LoanType, error)
	GetLoanTypeByID(ctx context.Context, id string, companyID string) (LoanType, error)
	ListLoanTypes(ctx context.Context, companyID string) ([]LoanType, error)

	// Loans
	CreateLoan(ctx context.Context, loan Loan) (Loan, error)
	GetLoanByID(ctx context.Context, id string, companyID string) (Loan, error)
	// GetLoanForUpdate holds a row lock on the loan until the surrounding
	// transaction ends.
	GetLoanForUpdate(ctx context.Context, id string, companyID string) (Loan, error)
	ListLoans(ctx context.Context, companyID string, filter DebtFilter) ([]Loan, error)
	// ListRepayableLoans returns approved or active loans with a balance,
	// ordered by ID.
	ListRepayableLoans(ctx context.Context, employeeID string, companyID string) ([]Loan, error)
	UpdateLoan(ctx context.Context, loan Loan) error

	// Advances
	CreateAdvance(ctx context.Context, advance SalaryAdvance) (SalaryAdvance, error)
	GetAdvanceByID(ctx context.Context, id string, companyID string) (SalaryAdvance, error)
	GetAdvanceForUpdate(ctx context.Context, id string, companyID string) (SalaryAdvance, error)
	ListAdvances(ctx context.Context, companyID string, filter DebtFilter) ([]SalaryAdvance, error)
	// ListRepayableAdvances returns approved advances not yet fully
	// deducted, ordered by ID.
	ListRepayableAdvances(ctx context.Context, employeeID string, companyID string) ([]SalaryAdvance, error)
	UpdateAdvance(ctx context.Context, advance SalaryAdvance) error

	// Postings
	CreatePosting(ctx context.Context, posting RepaymentPosting) (RepaymentPosting, error)
	// HasPostingInMonth reports whether the debt already has a posting in
	// the calendar month containing month.
	HasPostingInMonth(ctx context.Context, debtType payroll.DebtType, debtID string, month time.Time) (bool, error)
	ListPostingsByDebt(ctx context.Context, debtType payroll.DebtType, debtID string, companyID string) ([]RepaymentPosting, error)
	ListPostingsByRun(ctx context.Context, runID string) ([]RepaymentPosting, error)
}
