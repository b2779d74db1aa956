package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComponentCategory enum
type ComponentCategory string

const (
	CategoryBasic              ComponentCategory = "basic"
	CategoryAllowance          ComponentCategory = "allowance"
	CategoryStatutoryDeduction ComponentCategory = "statutory_deduction"
	CategoryDebtDeduction      ComponentCategory = "debt_deduction"
)

func (c ComponentCategory) IsValid() bool {
	switch c {
	case CategoryBasic, CategoryAllowance, CategoryStatutoryDeduction, CategoryDebtDeduction:
		return true
	}
	return false
}

// IsEarning reports whether the category adds to gross pay.
func (c ComponentCategory) IsEarning() bool {
	return c == CategoryBasic || c == CategoryAllowance
}

// System component codes. Payroll writes its computed deductions against
// these catalog entries, so every company catalog must carry them.
const (
	CodePension          = "PENSION"
	CodeIncomeTax        = "PAYE"
	CodeLoanRepayment    = "LOAN_REPAYMENT"
	CodeAdvanceRepayment = "ADVANCE_REPAYMENT"
)

// Component - Master compensation component. Immutable once a run
// references it.
type Component struct {
	ID          string
	CompanyID   string
	Code        string
	Name        string
	Category    ComponentCategory
	Taxable     bool
	Pensionable bool
	CreatedAt   time.Time
}

// CompensationStructure - one amount of one component for one employee.
type CompensationStructure struct {
	ID            string
	EmployeeID    string
	ComponentID   string
	Amount        decimal.Decimal
	EffectiveDate time.Time
	EndDate       *time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Joined fields
	Component *Component
}

// AppliesAt reports whether the row is in force on day.
func (s CompensationStructure) AppliesAt(day time.Time) bool {
	if !s.Active {
		return false
	}
	if s.EffectiveDate.After(day) {
		return false
	}
	if s.EndDate != nil && s.EndDate.Before(day) {
		return false
	}
	return true
}

// CycleStatus enum
type CycleStatus string

const (
	CycleStatusOpen       CycleStatus = "open"
	CycleStatusProcessing CycleStatus = "processing"
	CycleStatusLocked     CycleStatus = "locked"
)

// Cycle - one pay period.
type Cycle struct {
	ID          string
	CompanyID   string
	Label       string
	StartDate   time.Time
	EndDate     time.Time
	PaymentDate time.Time
	Status      CycleStatus
	ComputedAt  *time.Time
	ComputedBy  *string
	LockedAt    *time.Time
	LockedBy    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Window is the date range a cycle covers, inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

func (c Cycle) Window() Window {
	return Window{Start: c.StartDate, End: c.EndDate}
}

// SettlementStatus enum
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementPaid    SettlementStatus = "paid"
)

// Run - computed earnings/deductions/net for one employee in one cycle.
type Run struct {
	ID               string
	CycleID          string
	EmployeeID       string
	CompanyID        string
	Basic            decimal.Decimal
	TotalEarnings    decimal.Decimal
	TotalDeductions  decimal.Decimal
	Gross            decimal.Decimal
	Net              decimal.Decimal
	PensionEmployer  decimal.Decimal
	SettlementStatus SettlementStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// SameFigures reports whether o carries the same amounts and settlement
// status as r.
func (r Run) SameFigures(o Run) bool {
	return r.Basic.Equal(o.Basic) &&
		r.TotalEarnings.Equal(o.TotalEarnings) &&
		r.TotalDeductions.Equal(o.TotalDeductions) &&
		r.Gross.Equal(o.Gross) &&
		r.Net.Equal(o.Net) &&
		r.PensionEmployer.Equal(o.PensionEmployer) &&
		r.SettlementStatus == o.SettlementStatus
}

// DebtType enum
type DebtType string

const (
	DebtTypeLoan    DebtType = "loan"
	DebtTypeAdvance DebtType = "advance"
)

// DebtReference points a line item at the loan or advance it collects.
type DebtReference struct {
	Type DebtType
	ID   string
}

// LineItem - one earning or deduction line of a run.
type LineItem struct {
	ID          string
	RunID       string
	ComponentID string
	Position    int
	Amount      decimal.Decimal
	Debt        *DebtReference

	// Joined fields
	ComponentCode     string
	ComponentName     string
	ComponentCategory ComponentCategory
}

// IsDeduction reports whether the line reduces net pay.
func (l LineItem) IsDeduction() bool {
	return !l.ComponentCategory.IsEarning()
}

// ResolvedSalary is the SalaryResolver output.
type ResolvedSalary struct {
	EmployeeID            string
	BasicComponent        *Component
	Basic                 decimal.Decimal
	AllowancesTotal       decimal.Decimal
	PensionableAllowances decimal.Decimal
	Breakdown             []AllowanceLine
}

// AllowanceLine is one allowance component in a resolved salary.
type AllowanceLine struct {
	Component Component
	Amount    decimal.Decimal
}

// Gross returns basic + allowances.
func (r ResolvedSalary) Gross() decimal.Decimal {
	return r.Basic.Add(r.AllowancesTotal)
}

// PensionBasis returns basic + pensionable allowances (housing, transport).
func (r ResolvedSalary) PensionBasis() decimal.Decimal {
	return r.Basic.Add(r.PensionableAllowances)
}
