package loan

import (
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== LOAN TYPE DTOs ==========

type CreateLoanTypeRequest struct {
	Name            string          `json:"name"`
	MaxAmount       decimal.Decimal `json:"max_amount"`
	MaxTenureMonths int             `json:"max_tenure_months"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
}

func (r *CreateLoanTypeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs.Add("name", "is required")
	}
	if !validator.IsPositive(r.MaxAmount) {
		errs.Add("max_amount", "must be positive")
	}
	if r.MaxTenureMonths <= 0 || r.MaxTenureMonths > 120 {
		errs.Add("max_tenure_months", "must be between 1 and 120")
	}
	if r.InterestRate.IsNegative() || r.InterestRate.GreaterThan(decimal.NewFromInt(100)) {
		errs.Add("interest_rate", "must be between 0 and 100")
	}

	return errs.Err()
}

type LoanTypeResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	MaxAmount       decimal.Decimal `json:"max_amount"`
	MaxTenureMonths int             `json:"max_tenure_months"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	Active          bool            `json:"active"`
}

// ========== LOAN DTOs ==========

type ApplyLoanRequest struct {
	// EmployeeID defaults to the caller's own employee record.
	EmployeeID   string          `json:"employee_id,omitempty"`
	LoanTypeID   string          `json:"loan_type_id"`
	Amount       decimal.Decimal `json:"amount"`
	TenureMonths int             `json:"tenure_months"`
	Purpose      *string         `json:"purpose,omitempty"`
}

func (r *ApplyLoanRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.LoanTypeID) {
		errs.Add("loan_type_id", "is required")
	}
	if !validator.IsPositive(r.Amount) {
		errs.Add("amount", "must be positive")
	}
	if r.TenureMonths <= 0 {
		errs.Add("tenure_months", "must be positive")
	}

	return errs.Err()
}

type LoanResponse struct {
	ID                 string          `json:"id"`
	EmployeeID         string          `json:"employee_id"`
	LoanTypeID         string          `json:"loan_type_id"`
	DisbursedAmount    decimal.Decimal `json:"disbursed_amount"`
	InterestAmount     decimal.Decimal `json:"interest_amount"`
	Principal          decimal.Decimal `json:"principal"`
	TenureMonths       int             `json:"tenure_months"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	RemainingBalance   decimal.Decimal `json:"remaining_balance"`
	RepaidAmount       decimal.Decimal `json:"repaid_amount"`
	Status             string          `json:"status"`
	Purpose            *string         `json:"purpose,omitempty"`
	RepaymentStartDate *string         `json:"repayment_start_date,omitempty"`
	RepaymentEndDate   *string         `json:"repayment_end_date,omitempty"`
	ApprovedBy         *string         `json:"approved_by,omitempty"`
	ApprovedAt         *string         `json:"approved_at,omitempty"`
	RejectionReason    *string         `json:"rejection_reason,omitempty"`
	CreatedAt          string          `json:"created_at"`
}

// ========== ADVANCE DTOs ==========

type RequestAdvanceRequest struct {
	EmployeeID      string          `json:"employee_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	RepaymentMonths int             `json:"repayment_months"`
	Reason          *string         `json:"reason,omitempty"`
}

func (r *RequestAdvanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsPositive(r.Amount) {
		errs.Add("amount", "must be positive")
	}
	if r.RepaymentMonths <= 0 || r.RepaymentMonths > 12 {
		errs.Add("repayment_months", "must be between 1 and 12")
	}

	return errs.Err()
}

type AdvanceResponse struct {
	ID                 string          `json:"id"`
	EmployeeID         string          `json:"employee_id"`
	Amount             decimal.Decimal `json:"amount"`
	RepaymentMonths    int             `json:"repayment_months"`
	MonthlyDeduction   decimal.Decimal `json:"monthly_deduction"`
	DeductedAmount     decimal.Decimal `json:"deducted_amount"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	Status             string          `json:"status"`
	Reason             *string         `json:"reason,omitempty"`
	RepaymentStartDate *string         `json:"repayment_start_date,omitempty"`
	ApprovedBy         *string         `json:"approved_by,omitempty"`
	ApprovedAt         *string         `json:"approved_at,omitempty"`
	RejectionReason    *string         `json:"rejection_reason,omitempty"`
	CreatedAt          string          `json:"created_at"`
}

// ========== APPROVAL DTOs ==========

type ApproveRequest struct {
	ID                 string  `json:"-"`
	RepaymentStartDate *string `json:"repayment_start_date,omitempty"`
}

func (r *ApproveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs.Add("id", "is required")
	}
	if r.RepaymentStartDate != nil {
		if _, ok := validator.IsValidDate(*r.RepaymentStartDate); !ok {
			errs.Add("repayment_start_date", "must be a date in YYYY-MM-DD format")
		}
	}

	return errs.Err()
}

type RejectRequest struct {
	ID     string `json:"-"`
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs.Add("id", "is required")
	}
	if validator.IsEmpty(r.Reason) {
		errs.Add("reason", "is required")
	}

	return errs.Err()
}

// DebtFilter narrows loan and advance listings.
type DebtFilter struct {
	EmployeeID *string
	Status     *string
}

// ========== POSTING / LIMIT DTOs ==========

type PostingResponse struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"`
	DebtType   string          `json:"debt_type"`
	DebtID     string          `json:"debt_id"`
	RunID      string          `json:"run_id"`
	CycleID    string          `json:"cycle_id"`
	Amount     decimal.Decimal `json:"amount"`
	PostedDate string          `json:"posted_date"`
}

type BorrowingLimitResponse struct {
	EmployeeID                  string          `json:"employee_id"`
	GrossSalary                 decimal.Decimal `json:"gross_salary"`
	MaxLimit                    decimal.Decimal `json:"max_limit"`
	CommittedMonthlyObligations decimal.Decimal `json:"committed_monthly_obligations"`
	AvailableAmount             decimal.Decimal `json:"available_amount"`
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(validator.DateLayout)
	return &s
}

func timestampString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func (t LoanType) ToResponse() LoanTypeResponse {
	return LoanTypeResponse{
		ID:              t.ID,
		Name:            t.Name,
		MaxAmount:       t.MaxAmount,
		MaxTenureMonths: t.MaxTenureMonths,
		InterestRate:    t.InterestRate,
		Active:          t.Active,
	}
}

func (l Loan) ToResponse() LoanResponse {
	return LoanResponse{
		ID:                 l.ID,
		EmployeeID:         l.EmployeeID,
		LoanTypeID:         l.LoanTypeID,
		DisbursedAmount:    l.DisbursedAmount,
		InterestAmount:     l.InterestAmount,
		Principal:          l.Principal,
		TenureMonths:       l.TenureMonths,
		MonthlyInstallment: l.MonthlyInstallment,
		RemainingBalance:   l.RemainingBalance,
		RepaidAmount:       l.Repaid(),
		Status:             string(l.Status),
		Purpose:            l.Purpose,
		RepaymentStartDate: dateString(l.RepaymentStartDate),
		RepaymentEndDate:   dateString(l.RepaymentEndDate),
		ApprovedBy:         l.ApprovedBy,
		ApprovedAt:         timestampString(l.ApprovedAt),
		RejectionReason:    l.RejectionReason,
		CreatedAt:          l.CreatedAt.Format(time.RFC3339),
	}
}

func (a SalaryAdvance) ToResponse() AdvanceResponse {
	return AdvanceResponse{
		ID:                 a.ID,
		EmployeeID:         a.EmployeeID,
		Amount:             a.Amount,
		RepaymentMonths:    a.RepaymentMonths,
		MonthlyDeduction:   a.MonthlyDeduction,
		DeductedAmount:     a.DeductedAmount,
		Outstanding:        a.Outstanding(),
		Status:             string(a.Status),
		Reason:             a.Reason,
		RepaymentStartDate: dateString(a.RepaymentStartDate),
		ApprovedBy:         a.ApprovedBy,
		ApprovedAt:         timestampString(a.ApprovedAt),
		RejectionReason:    a.RejectionReason,
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
	}
}

func (p RepaymentPosting) ToResponse() PostingResponse {
	return PostingResponse{
		ID:         p.ID,
		Reference:  p.Reference,
		DebtType:   string(p.DebtType),
		DebtID:     p.DebtID,
		RunID:      p.RunID,
		CycleID:    p.CycleID,
		Amount:     p.Amount,
		PostedDate: p.PostedDate.Format(validator.DateLayout),
	}
}

func (b BorrowingLimit) ToResponse() BorrowingLimitResponse {
	return BorrowingLimitResponse{
		EmployeeID:                  b.EmployeeID,
		GrossSalary:                 b.GrossSalary,
		MaxLimit:                    b.MaxLimit,
		CommittedMonthlyObligations: b.Committed,
		AvailableAmount:             b.Available,
	}
}
