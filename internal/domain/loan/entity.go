package loan

import (
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// LoanType - company loan product with its limits.
type LoanType struct {
	ID              string
	CompanyID       string
	Name            string
	MaxAmount       decimal.Decimal
	MaxTenureMonths int
	// InterestRate is a flat annual percentage charged on the disbursed amount.
	InterestRate decimal.Decimal
	Active       bool
	CreatedAt    time.Time
}

// LoanStatus enum
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusRejected  LoanStatus = "rejected"
)

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusActive, LoanStatusCompleted, LoanStatusRejected:
		return true
	}
	return false
}

// Loan is repaid in flat monthly installments until RemainingBalance is zero.
// Principal is the total repayable amount (disbursed + interest).
type Loan struct {
	ID                 string
	CompanyID          string
	EmployeeID         string
	LoanTypeID         string
	DisbursedAmount    decimal.Decimal
	InterestAmount     decimal.Decimal
	Principal          decimal.Decimal
	TenureMonths       int
	MonthlyInstallment decimal.Decimal
	RemainingBalance   decimal.Decimal
	Status             LoanStatus
	Purpose            *string
	RepaymentStartDate *time.Time
	RepaymentEndDate   *time.Time
	ApprovedBy         *string
	ApprovedAt         *time.Time
	RejectedBy         *string
	RejectedAt         *time.Time
	RejectionReason    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Repaid returns the amount collected so far.
func (l Loan) Repaid() decimal.Decimal {
	return l.Principal.Sub(l.RemainingBalance)
}

// IsRepayable reports whether the loan still collects installments.
func (l Loan) IsRepayable() bool {
	return (l.Status == LoanStatusApproved || l.Status == LoanStatusActive) &&
		l.RemainingBalance.GreaterThan(decimal.Zero)
}

// AdvanceStatus enum
type AdvanceStatus string

const (
	AdvanceStatusPending  AdvanceStatus = "pending"
	AdvanceStatusApproved AdvanceStatus = "approved"
	AdvanceStatusDeducted AdvanceStatus = "deducted"
	AdvanceStatusRejected AdvanceStatus = "rejected"
)

func (s AdvanceStatus) IsValid() bool {
	switch s {
	case AdvanceStatusPending, AdvanceStatusApproved, AdvanceStatusDeducted, AdvanceStatusRejected:
		return true
	}
	return false
}

// SalaryAdvance - salary paid ahead of time, recovered from later runs.
type SalaryAdvance struct {
	ID                 string
	CompanyID          string
	EmployeeID         string
	Amount             decimal.Decimal
	RepaymentMonths    int
	MonthlyDeduction   decimal.Decimal
	DeductedAmount     decimal.Decimal
	Status             AdvanceStatus
	Reason             *string
	RepaymentStartDate *time.Time
	ApprovedBy         *string
	ApprovedAt         *time.Time
	RejectedBy         *string
	RejectedAt         *time.Time
	RejectionReason    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Outstanding returns amount - deducted.
func (a SalaryAdvance) Outstanding() decimal.Decimal {
	return a.Amount.Sub(a.DeductedAmount)
}

func (a SalaryAdvance) IsRepayable() bool {
	return a.Status == AdvanceStatusApproved && a.DeductedAmount.LessThan(a.Amount)
}

// RepaymentPosting - append-only record of one repayment collected by a run.
type RepaymentPosting struct {
	ID         string
	Reference  string
	CompanyID  string
	DebtType   payroll.DebtType
	DebtID     string
	RunID      string
	CycleID    string
	EmployeeID string
	Amount     decimal.Decimal
	PostedDate time.Time
	CreatedAt  time.Time
}

// Month returns the first day of the posting's calendar month.
func (p RepaymentPosting) Month() time.Time {
	return MonthOf(p.PostedDate)
}

// MonthOf truncates t to the first day of its calendar month.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Obligation is one debt installment due in a cycle.
type Obligation struct {
	Debt   payroll.DebtReference
	Amount decimal.Decimal
}

// BorrowingLimit is the 33%-of-gross availability figure for an employee.
type BorrowingLimit struct {
	EmployeeID  string
	GrossSalary decimal.Decimal
	MaxLimit    decimal.Decimal
	Committed   decimal.Decimal
	Available   decimal.Decimal
}
