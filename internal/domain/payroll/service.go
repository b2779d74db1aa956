package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

type PayrollService interface {
	// Components
	CreateComponent(ctx context.Context, actor user.Actor, req CreateComponentRequest) (ComponentResponse, error)
	ListComponents(ctx context.Context, actor user.Actor) ([]ComponentResponse, error)
	SeedDefaultComponents(ctx context.Context, actor user.Actor) ([]ComponentResponse, error)

	// Structures
	AssignStructure(ctx context.Context, actor user.Actor, req AssignStructureRequest) (StructureResponse, error)
	ListStructures(ctx context.Context, actor user.Actor, employeeID string) ([]StructureResponse, error)
	DeactivateStructure(ctx context.Context, actor user.Actor, id string) error

	// Cycles
	CreateCycle(ctx context.Context, actor user.Actor, req CreateCycleRequest) (CycleResponse, error)
	GetCycle(ctx context.Context, actor user.Actor, id string) (CycleResponse, error)
	ListCycles(ctx context.Context, actor user.Actor) ([]CycleResponse, error)
	ComputeCycle(ctx context.Context, actor user.Actor, cycleID string) (ComputeResult, error)
	SettleCycle(ctx context.Context, actor user.Actor, cycleID string) (SettlementResult, error)
	GetCycleSummary(ctx context.Context, actor user.Actor, cycleID string) (CycleSummaryResponse, error)

	// Runs
	ListRuns(ctx context.Context, actor user.Actor, cycleID string) ([]RunResponse, error)
	GetPayslip(ctx context.Context, actor user.Actor, runID string) (PayslipResponse, error)
}

// SalaryResolver reduces an employee's compensation structure to the
// amounts payroll works with.
type SalaryResolver interface {
	Resolve(ctx context.Context, companyID string, employeeID string, asOf time.Time) (ResolvedSalary, error)
}
