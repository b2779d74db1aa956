package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Reasons reported in ComputeResult.Skipped.
const (
	SkipReasonNoBasic   = "no basic component"
	SkipReasonZeroGross = "zero gross"
)

// Coordinator computes every run of a cycle inside one transaction.
type Coordinator struct {
	tx           database.Transactor
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	resolver     payroll.SalaryResolver
	tax          *TaxEngine
	scheduler    loan.ObligationScheduler
	logger       *slog.Logger
	now          func() time.Time
}

func NewCoordinator(
	tx database.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	resolver payroll.SalaryResolver,
	tax *TaxEngine,
	scheduler loan.ObligationScheduler,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		tx:           tx,
		payrollRepo:  payrollRepo,
		employeeRepo: employeeRepo,
		resolver:     resolver,
		tax:          tax,
		scheduler:    scheduler,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// systemComponents are the catalog entries compute writes deductions to.
type systemComponents struct {
	pension payroll.Component
	tax     payroll.Component
	loan    payroll.Component
	advance payroll.Component
}

func (c *Coordinator) loadSystemComponents(ctx context.Context, companyID string) (systemComponents, error) {
	var sc systemComponents
	targets := []struct {
		code string
		dst  *payroll.Component
	}{
		{payroll.CodePension, &sc.pension},
		{payroll.CodeIncomeTax, &sc.tax},
		{payroll.CodeLoanRepayment, &sc.loan},
		{payroll.CodeAdvanceRepayment, &sc.advance},
	}
	for _, t := range targets {
		component, err := c.payrollRepo.GetComponentByCode(ctx, t.code, companyID)
		if err != nil {
			if errors.Is(err, payroll.ErrComponentNotFound) {
				return sc, fmt.Errorf("%w: %s", payroll.ErrSystemComponentMissing, t.code)
			}
			return sc, err
		}
		*t.dst = component
	}
	return sc, nil
}

// ComputeCycle (re)computes the run of every active employee. Existing runs
// keep their ID and have their line items rewritten; runs of employees who
// no longer qualify are removed. The first compute moves the cycle to
// processing.
func (c *Coordinator) ComputeCycle(ctx context.Context, actor user.Actor, cycleID string) (result payroll.ComputeResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCycleOperation("compute", start, err) }()

	err = c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := c.payrollRepo.LockCompanyPayroll(ctx, actor.CompanyID); err != nil {
			return err
		}
		cycle, err := c.payrollRepo.GetCycleForUpdate(ctx, cycleID, actor.CompanyID)
		if err != nil {
			return err
		}
		if err := cycle.EnsureComputable(); err != nil {
			return err
		}

		system, err := c.loadSystemComponents(ctx, actor.CompanyID)
		if err != nil {
			return err
		}
		employees, err := c.employeeRepo.GetActiveByCompanyID(ctx, actor.CompanyID)
		if err != nil {
			return err
		}
		existing, err := c.payrollRepo.ListRunsByCycle(ctx, cycle.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		stale := make(map[string]string, len(existing)) // employee ID -> run ID
		for _, run := range existing {
			stale[run.EmployeeID] = run.ID
		}

		result = payroll.ComputeResult{}
		for _, emp := range employees {
			written, skipReason, err := c.computeEmployee(ctx, cycle, emp, system)
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.ID, err)
			}
			if !written {
				result.Skipped = append(result.Skipped, payroll.SkippedEmployee{EmployeeID: emp.ID, Reason: skipReason})
				c.logger.DebugContext(ctx, "employee skipped", "cycle_id", cycle.ID, "employee_id", emp.ID, "reason", skipReason)
				continue
			}
			delete(stale, emp.ID)
			result.RunsWritten++
		}

		for _, runID := range stale {
			if err := c.payrollRepo.DeleteRun(ctx, runID); err != nil {
				return err
			}
			result.RunsRemoved++
		}

		at := c.now()
		if cycle.Status == payroll.CycleStatusOpen {
			cycle, err = cycle.StartProcessing(actor.UserID, at)
		} else {
			cycle, err = cycle.MarkRecomputed(actor.UserID, at)
		}
		if err != nil {
			return err
		}
		if err := c.payrollRepo.UpdateCycle(ctx, cycle); err != nil {
			return err
		}

		result.Cycle = cycle.ToResponse()
		return nil
	})
	if err != nil {
		return payroll.ComputeResult{}, err
	}

	metrics.AddRunsComputed(result.RunsWritten)
	c.logger.InfoContext(ctx, "payroll cycle computed",
		"cycle_id", cycleID,
		"company_id", actor.CompanyID,
		"runs", result.RunsWritten,
		"removed", result.RunsRemoved,
		"skipped", len(result.Skipped),
		"duration", time.Since(start),
	)
	return result, nil
}

// computeEmployee writes one run. It reports false with a reason when the
// employee has no basic component or no gross pay for the cycle.
func (c *Coordinator) computeEmployee(ctx context.Context, cycle payroll.Cycle, emp employee.Employee, system systemComponents) (bool, string, error) {
	salary, err := c.resolver.Resolve(ctx, cycle.CompanyID, emp.ID, cycle.EndDate)
	if err != nil {
		return false, "", err
	}
	if salary.BasicComponent == nil {
		return false, SkipReasonNoBasic, nil
	}
	gross := salary.Gross()
	if !gross.IsPositive() {
		return false, SkipReasonZeroGross, nil
	}

	var items []payroll.LineItem
	add := func(component payroll.Component, amount decimal.Decimal, debt *payroll.DebtReference) {
		items = append(items, payroll.LineItem{
			ComponentID:       component.ID,
			Amount:            amount,
			Debt:              debt,
			ComponentCode:     component.Code,
			ComponentName:     component.Name,
			ComponentCategory: component.Category,
		})
	}

	if salary.BasicComponent != nil && salary.Basic.IsPositive() {
		add(*salary.BasicComponent, salary.Basic, nil)
	}
	for _, line := range salary.Breakdown {
		add(line.Component, line.Amount, nil)
	}

	deductions := decimal.Zero
	pensionEmployer := decimal.Zero
	if emp.WithholdsStatutory() {
		withholding := c.tax.Compute(TaxInput{Gross: gross, PensionBasis: salary.PensionBasis()})
		pensionEmployer = withholding.PensionEmployer
		if withholding.PensionEmployee.IsPositive() {
			add(system.pension, withholding.PensionEmployee, nil)
			deductions = deductions.Add(withholding.PensionEmployee)
		}
		if withholding.MonthlyTax.IsPositive() {
			add(system.tax, withholding.MonthlyTax, nil)
			deductions = deductions.Add(withholding.MonthlyTax)
		}
	}

	obligations, err := c.scheduler.DueObligations(ctx, cycle.CompanyID, emp.ID, cycle.Window())
	if err != nil {
		return false, "", err
	}
	for _, ob := range obligations {
		debt := ob.Debt
		component := system.loan
		if debt.Type == payroll.DebtTypeAdvance {
			component = system.advance
		}
		add(component, ob.Amount, &debt)
		deductions = deductions.Add(ob.Amount)
	}

	net := gross.Sub(deductions)
	if net.IsNegative() {
		return false, "", fmt.Errorf("%w: gross %s, deductions %s", payroll.ErrNegativeNetPay, gross.StringFixed(2), deductions.StringFixed(2))
	}

	run, err := c.payrollRepo.UpsertRun(ctx, payroll.Run{
		CycleID:          cycle.ID,
		EmployeeID:       emp.ID,
		CompanyID:        cycle.CompanyID,
		Basic:            salary.Basic,
		TotalEarnings:    gross,
		TotalDeductions:  deductions,
		Gross:            gross,
		Net:              net,
		PensionEmployer:  pensionEmployer,
		SettlementStatus: payroll.SettlementPending,
	})
	if err != nil {
		return false, "", err
	}

	for i := range items {
		items[i].RunID = run.ID
		items[i].Position = i + 1
		items[i].ID = lineItemID(run.ID, items[i])
	}
	if err := c.payrollRepo.ReplaceLineItems(ctx, run.ID, items); err != nil {
		return false, "", err
	}
	return true, "", nil
}

// lineItemID is stable across recomputations of the same inputs.
func lineItemID(runID string, item payroll.LineItem) string {
	debtID := ""
	if item.Debt != nil {
		debtID = item.Debt.ID
	}
	return ids.Derived(runID, fmt.Sprintf("%d:%s:%s", item.Position, item.ComponentID, debtID))
}
