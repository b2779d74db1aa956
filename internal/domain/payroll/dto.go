package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== COMPONENT DTOs ==========

type CreateComponentRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Taxable     *bool  `json:"taxable,omitempty"`
	Pensionable *bool  `json:"pensionable,omitempty"`
}

func (r *CreateComponentRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidComponentCode(r.Code) {
		errs.Add("code", "must be 2-32 upper-case letters, digits or underscores")
	}
	if validator.IsEmpty(r.Name) {
		errs.Add("name", "is required")
	}
	category := ComponentCategory(r.Category)
	if !category.IsValid() {
		errs.Add("category", "must be one of basic, allowance, statutory_deduction, debt_deduction")
	}
	if r.Pensionable != nil && *r.Pensionable && category != CategoryAllowance {
		errs.Add("pensionable", "only allowances can be pensionable")
	}

	return errs.Err()
}

type ComponentResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Taxable     bool   `json:"taxable"`
	Pensionable bool   `json:"pensionable"`
}

// ========== STRUCTURE DTOs ==========

type AssignStructureRequest struct {
	EmployeeID    string          `json:"-"`
	ComponentID   string          `json:"component_id"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate string          `json:"effective_date"`
	EndDate       *string         `json:"end_date,omitempty"`
}

func (r *AssignStructureRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "is required")
	}
	if validator.IsEmpty(r.ComponentID) {
		errs.Add("component_id", "is required")
	}
	if !validator.IsPositive(r.Amount) {
		errs.Add("amount", "must be positive")
	}
	effective, ok := validator.IsValidDate(r.EffectiveDate)
	if !ok {
		errs.Add("effective_date", "must be a date in YYYY-MM-DD format")
	}
	if r.EndDate != nil {
		end, valid := validator.IsValidDate(*r.EndDate)
		if !valid {
			errs.Add("end_date", "must be a date in YYYY-MM-DD format")
		} else if ok && end.Before(effective) {
			errs.Add("end_date", "must not be before effective_date")
		}
	}

	return errs.Err()
}

type StructureResponse struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	ComponentID   string          `json:"component_id"`
	ComponentCode string          `json:"component_code"`
	ComponentName string          `json:"component_name"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate string          `json:"effective_date"`
	EndDate       *string         `json:"end_date,omitempty"`
	Active        bool            `json:"active"`
}

// ========== CYCLE DTOs ==========

type CreateCycleRequest struct {
	Label       string `json:"label"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	PaymentDate string `json:"payment_date"`
}

func (r *CreateCycleRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Label) {
		errs.Add("label", "is required")
	}
	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs.Add("start_date", "must be a date in YYYY-MM-DD format")
	}
	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs.Add("end_date", "must be a date in YYYY-MM-DD format")
	}
	payment, paymentOK := validator.IsValidDate(r.PaymentDate)
	if !paymentOK {
		errs.Add("payment_date", "must be a date in YYYY-MM-DD format")
	}
	if startOK && endOK && end.Before(start) {
		errs.Add("end_date", "must not be before start_date")
	}
	if startOK && paymentOK && payment.Before(start) {
		errs.Add("payment_date", "must not be before start_date")
	}

	return errs.Err()
}

type CycleResponse struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	PaymentDate string  `json:"payment_date"`
	Status      string  `json:"status"`
	ComputedAt  *string `json:"computed_at,omitempty"`
	LockedAt    *string `json:"locked_at,omitempty"`
	LockedBy    *string `json:"locked_by,omitempty"`
}

// SkippedEmployee explains why an active employee got no run.
type SkippedEmployee struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

type ComputeResult struct {
	Cycle       CycleResponse     `json:"cycle"`
	RunsWritten int               `json:"runs_written"`
	RunsRemoved int               `json:"runs_removed"`
	Skipped     []SkippedEmployee `json:"skipped,omitempty"`
}

type SettlementResult struct {
	Cycle       CycleResponse   `json:"cycle"`
	RunsPaid    int             `json:"runs_paid"`
	Postings    int             `json:"postings"`
	TotalRepaid decimal.Decimal `json:"total_repaid"`
}

// ========== RUN DTOs ==========

type RunResponse struct {
	ID               string          `json:"id"`
	CycleID          string          `json:"cycle_id"`
	EmployeeID       string          `json:"employee_id"`
	EmployeeName     string          `json:"employee_name,omitempty"`
	EmployeeCode     string          `json:"employee_code,omitempty"`
	Basic            decimal.Decimal `json:"basic"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	TotalDeductions  decimal.Decimal `json:"total_deductions"`
	Gross            decimal.Decimal `json:"gross"`
	Net              decimal.Decimal `json:"net"`
	PensionEmployer  decimal.Decimal `json:"pension_employer"`
	SettlementStatus string          `json:"settlement_status"`
}

type LineItemResponse struct {
	ComponentCode string          `json:"component_code"`
	ComponentName string          `json:"component_name"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	DebtType      *string         `json:"debt_type,omitempty"`
	DebtID        *string         `json:"debt_id,omitempty"`
}

// PostingLine is a repayment posted from a run, shown on the payslip.
type PostingLine struct {
	Reference  string          `json:"reference"`
	DebtType   string          `json:"debt_type"`
	DebtID     string          `json:"debt_id"`
	Amount     decimal.Decimal `json:"amount"`
	PostedDate string          `json:"posted_date"`
}

type PayslipResponse struct {
	Run        RunResponse        `json:"run"`
	Cycle      CycleResponse      `json:"cycle"`
	Earnings   []LineItemResponse `json:"earnings"`
	Deductions []LineItemResponse `json:"deductions"`
	Postings   []PostingLine      `json:"postings"`
}

type CycleSummaryResponse struct {
	Cycle                CycleResponse   `json:"cycle"`
	TotalEmployees       int             `json:"total_employees"`
	TotalBasic           decimal.Decimal `json:"total_basic"`
	TotalGross           decimal.Decimal `json:"total_gross"`
	TotalDeductions      decimal.Decimal `json:"total_deductions"`
	TotalNet             decimal.Decimal `json:"total_net"`
	TotalPensionEmployee decimal.Decimal `json:"total_pension_employee"`
	TotalPensionEmployer decimal.Decimal `json:"total_pension_employer"`
	TotalTax             decimal.Decimal `json:"total_tax"`
	TotalDebtRecovery    decimal.Decimal `json:"total_debt_recovery"`
	PendingCount         int             `json:"pending_count"`
	PaidCount            int             `json:"paid_count"`
}

func formatDate(t time.Time) string {
	return t.Format(validator.DateLayout)
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// ToResponse maps a cycle to its API shape.
func (c Cycle) ToResponse() CycleResponse {
	return CycleResponse{
		ID:          c.ID,
		Label:       c.Label,
		StartDate:   formatDate(c.StartDate),
		EndDate:     formatDate(c.EndDate),
		PaymentDate: formatDate(c.PaymentDate),
		Status:      string(c.Status),
		ComputedAt:  formatTimestamp(c.ComputedAt),
		LockedAt:    formatTimestamp(c.LockedAt),
		LockedBy:    c.LockedBy,
	}
}

func (c Component) ToResponse() ComponentResponse {
	return ComponentResponse{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Category:    string(c.Category),
		Taxable:     c.Taxable,
		Pensionable: c.Pensionable,
	}
}

func (s CompensationStructure) ToResponse() StructureResponse {
	resp := StructureResponse{
		ID:            s.ID,
		EmployeeID:    s.EmployeeID,
		ComponentID:   s.ComponentID,
		Amount:        s.Amount,
		EffectiveDate: formatDate(s.EffectiveDate),
		Active:        s.Active,
	}
	if s.EndDate != nil {
		end := formatDate(*s.EndDate)
		resp.EndDate = &end
	}
	if s.Component != nil {
		resp.ComponentCode = s.Component.Code
		resp.ComponentName = s.Component.Name
		resp.Category = string(s.Component.Category)
	}
	return resp
}

func (r Run) ToResponse() RunResponse {
	resp := RunResponse{
		ID:               r.ID,
		CycleID:          r.CycleID,
		EmployeeID:       r.EmployeeID,
		Basic:            r.Basic,
		TotalEarnings:    r.TotalEarnings,
		TotalDeductions:  r.TotalDeductions,
		Gross:            r.Gross,
		Net:              r.Net,
		PensionEmployer:  r.PensionEmployer,
		SettlementStatus: string(r.SettlementStatus),
	}
	if r.EmployeeName != nil {
		resp.EmployeeName = *r.EmployeeName
	}
	if r.EmployeeCode != nil {
		resp.EmployeeCode = *r.EmployeeCode
	}
	return resp
}

func (l LineItem) ToResponse() LineItemResponse {
	resp := LineItemResponse{
		ComponentCode: l.ComponentCode,
		ComponentName: l.ComponentName,
		Category:      string(l.ComponentCategory),
		Amount:        l.Amount,
	}
	if l.Debt != nil {
		debtType := string(l.Debt.Type)
		debtID := l.Debt.ID
		resp.DebtType = &debtType
		resp.DebtID = &debtID
	}
	return resp
}
