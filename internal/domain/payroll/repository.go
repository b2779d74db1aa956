package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll.
// All lookups include companyID to prevent cross-company data access.
type PayrollRepository interface {
	// Components
	CreateComponent(ctx context.Context, component Component) (Component, error)
	GetComponentByID(ctx context.Context, id string, companyID string) (Component, error)
	GetComponentByCode(ctx context.Context, code string, companyID string) (Component, error)
	ListComponents(ctx context.Context, companyID string) ([]Component, error)

	// Compensation structures
	CreateStructure(ctx context.Context, structure CompensationStructure) (CompensationStructure, error)
	GetStructureByID(ctx context.Context, id string, companyID string) (CompensationStructure, error)
	// ListStructures returns the employee's rows with Component joined,
	// newest effective date first. activeOnly filters out deactivated rows.
	ListStructures(ctx context.Context, employeeID string, companyID string, activeOnly bool) ([]CompensationStructure, error)
	DeactivateStructure(ctx context.Context, id string, companyID string) error

	// Cycles
	CreateCycle(ctx context.Context, cycle Cycle) (Cycle, error)
	GetCycleByID(ctx context.Context, id string, companyID string) (Cycle, error)
	// GetCycleForUpdate reads the cycle and holds a row lock until the
	// surrounding transaction ends.
	GetCycleForUpdate(ctx context.Context, id string, companyID string) (Cycle, error)
	ListCycles(ctx context.Context, companyID string) ([]Cycle, error)
	HasOverlappingCycle(ctx context.Context, companyID string, start, end time.Time) (bool, error)
	UpdateCycle(ctx context.Context, cycle Cycle) error
	// LockCompanyPayroll serializes compute and settle per company for the
	// rest of the transaction.
	LockCompanyPayroll(ctx context.Context, companyID string) error

	// Runs
	GetRunByID(ctx context.Context, id string, companyID string) (Run, error)
	ListRunsByCycle(ctx context.Context, cycleID string, companyID string) ([]Run, error)
	// UpsertRun writes the run keyed by (cycle, employee). The returned
	// run keeps the ID of an existing row.
	UpsertRun(ctx context.Context, run Run) (Run, error)
	DeleteRun(ctx context.Context, id string) error
	MarkRunsPaid(ctx context.Context, cycleID string) (int, error)

	// Line items
	ReplaceLineItems(ctx context.Context, runID string, items []LineItem) error
	ListLineItems(ctx context.Context, runID string) ([]LineItem, error)
	ListLineItemsByCycle(ctx context.Context, cycleID string) ([]LineItem, error)
}
