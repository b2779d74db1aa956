package loan

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ObligationScheduler derives the installments due in a cycle from the
// current balances and posting history. There is no stored schedule: the
// next installment is always min(installment, what is left).
type ObligationScheduler struct {
	loanRepo loan.LoanRepository
}

func NewObligationScheduler(loanRepo loan.LoanRepository) *ObligationScheduler {
	return &ObligationScheduler{loanRepo: loanRepo}
}

// DueObligations returns the employee's due loans followed by due advances,
// each ordered by ID. A debt that already has a posting in the calendar
// month of window.End is not due again.
func (s *ObligationScheduler) DueObligations(ctx context.Context, companyID string, employeeID string, window payroll.Window) ([]loan.Obligation, error) {
	var out []loan.Obligation

	loans, err := s.loanRepo.ListRepayableLoans(ctx, employeeID, companyID)
	if err != nil {
		return nil, err
	}
	for _, l := range loans {
		if !loanInWindow(l, window) {
			continue
		}
		posted, err := s.loanRepo.HasPostingInMonth(ctx, payroll.DebtTypeLoan, l.ID, window.End)
		if err != nil {
			return nil, err
		}
		if posted {
			continue
		}
		out = append(out, loan.Obligation{
			Debt:   payroll.DebtReference{Type: payroll.DebtTypeLoan, ID: l.ID},
			Amount: decimal.Min(l.MonthlyInstallment, l.RemainingBalance),
		})
	}

	advances, err := s.loanRepo.ListRepayableAdvances(ctx, employeeID, companyID)
	if err != nil {
		return nil, err
	}
	for _, a := range advances {
		if a.RepaymentStartDate == nil || window.End.Before(*a.RepaymentStartDate) {
			continue
		}
		posted, err := s.loanRepo.HasPostingInMonth(ctx, payroll.DebtTypeAdvance, a.ID, window.End)
		if err != nil {
			return nil, err
		}
		if posted {
			continue
		}
		out = append(out, loan.Obligation{
			Debt:   payroll.DebtReference{Type: payroll.DebtTypeAdvance, ID: a.ID},
			Amount: decimal.Min(a.MonthlyDeduction, a.Outstanding()),
		})
	}

	return out, nil
}

// loanInWindow reports whether the cycle overlaps the repayment period.
// A loan without an end date repays until its balance is zero.
func loanInWindow(l loan.Loan, window payroll.Window) bool {
	if l.RepaymentStartDate == nil || l.RepaymentStartDate.After(window.End) {
		return false
	}
	if l.RepaymentEndDate != nil && l.RepaymentEndDate.Before(window.Start) {
		return false
	}
	return true
}
