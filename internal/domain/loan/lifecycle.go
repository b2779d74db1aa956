package loan

import (
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Approve moves a pending loan to approved with repayments starting on start.
func (l Loan) Approve(actorID string, at time.Time, start time.Time) (Loan, error) {
	if l.Status != LoanStatusPending {
		return l, apperror.NewStateConflict("loan", l.ID, string(l.Status), "approve")
	}
	l.Status = LoanStatusApproved
	l.ApprovedBy = &actorID
	l.ApprovedAt = &at
	l.RepaymentStartDate = &start
	l.UpdatedAt = at
	return l, nil
}

// Reject moves a pending loan to rejected.
func (l Loan) Reject(actorID string, at time.Time, reason string) (Loan, error) {
	if l.Status != LoanStatusPending {
		return l, apperror.NewStateConflict("loan", l.ID, string(l.Status), "reject")
	}
	l.Status = LoanStatusRejected
	l.RejectedBy = &actorID
	l.RejectedAt = &at
	l.RejectionReason = &reason
	l.UpdatedAt = at
	return l, nil
}

// ApplyRepayment subtracts amount from the balance. The loan becomes active
// after its first repayment and completed when nothing remains.
func (l Loan) ApplyRepayment(amount decimal.Decimal, at time.Time) (Loan, error) {
	if !l.IsRepayable() {
		return l, apperror.NewStateConflict("loan", l.ID, string(l.Status), "post repayment to")
	}
	if amount.GreaterThan(l.RemainingBalance) {
		return l, apperror.NewStateConflict("loan", l.ID, string(l.Status), "post "+amount.StringFixed(2)+" against balance "+l.RemainingBalance.StringFixed(2)+" of")
	}
	l.RemainingBalance = l.RemainingBalance.Sub(amount)
	l.Status = LoanStatusActive
	if l.RemainingBalance.IsZero() {
		l.Status = LoanStatusCompleted
	}
	l.UpdatedAt = at
	return l, nil
}

// Approve moves a pending advance to approved with recovery starting on start.
func (a SalaryAdvance) Approve(actorID string, at time.Time, start time.Time) (SalaryAdvance, error) {
	if a.Status != AdvanceStatusPending {
		return a, apperror.NewStateConflict("salary advance", a.ID, string(a.Status), "approve")
	}
	a.Status = AdvanceStatusApproved
	a.ApprovedBy = &actorID
	a.ApprovedAt = &at
	a.RepaymentStartDate = &start
	a.UpdatedAt = at
	return a, nil
}

func (a SalaryAdvance) Reject(actorID string, at time.Time, reason string) (SalaryAdvance, error) {
	if a.Status != AdvanceStatusPending {
		return a, apperror.NewStateConflict("salary advance", a.ID, string(a.Status), "reject")
	}
	a.Status = AdvanceStatusRejected
	a.RejectedBy = &actorID
	a.RejectedAt = &at
	a.RejectionReason = &reason
	a.UpdatedAt = at
	return a, nil
}

// ApplyRepayment adds amount to the deducted total; the advance is marked
// deducted once the full amount has been recovered.
func (a SalaryAdvance) ApplyRepayment(amount decimal.Decimal, at time.Time) (SalaryAdvance, error) {
	if !a.IsRepayable() {
		return a, apperror.NewStateConflict("salary advance", a.ID, string(a.Status), "post repayment to")
	}
	if amount.GreaterThan(a.Outstanding()) {
		return a, apperror.NewStateConflict("salary advance", a.ID, string(a.Status), "post "+amount.StringFixed(2)+" against outstanding "+a.Outstanding().StringFixed(2)+" of")
	}
	a.DeductedAmount = a.DeductedAmount.Add(amount)
	if a.DeductedAmount.GreaterThanOrEqual(a.Amount) {
		a.Status = AdvanceStatusDeducted
	}
	a.UpdatedAt = at
	return a, nil
}
