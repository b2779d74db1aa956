package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCycleScenario(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.assignScenarioSalary(t, "emp-1")
	l := env.addLoan(t, "emp-1", "100000", "20000", "20000", "2026-01-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")

	res, err := env.coordinator.ComputeCycle(context.Background(), env.owner, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RunsWritten)
	assert.Equal(t, string(payroll.CycleStatusProcessing), res.Cycle.Status)

	runs, err := env.payrollRepo.ListRunsByCycle(context.Background(), cycle.ID, testCompany)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]

	assert.True(t, run.Gross.Equal(dec("300000")), run.Gross.String())
	assert.True(t, run.Basic.Equal(dec("199950")))
	assert.True(t, run.TotalEarnings.Equal(dec("300000")))
	// 22,416 pension + 32,859.31 tax + 20,000 loan
	assert.True(t, run.TotalDeductions.Equal(dec("75275.31")), run.TotalDeductions.String())
	assert.True(t, run.Net.Equal(dec("224724.69")), run.Net.String())
	assert.True(t, run.PensionEmployer.Equal(dec("28020")), run.PensionEmployer.String())
	assert.Equal(t, payroll.SettlementPending, run.SettlementStatus)

	items, err := env.payrollRepo.ListLineItems(context.Background(), run.ID)
	require.NoError(t, err)

	var codes []string
	for _, item := range items {
		codes = append(codes, item.ComponentCode)
	}
	assert.Equal(t, []string{
		"BASIC", "HOUSING", "MEAL", "TRANSPORT", "UTILITY",
		payroll.CodePension, payroll.CodeIncomeTax, payroll.CodeLoanRepayment,
	}, codes)

	loanLine := items[len(items)-1]
	require.NotNil(t, loanLine.Debt)
	assert.Equal(t, payroll.DebtTypeLoan, loanLine.Debt.Type)
	assert.Equal(t, l.ID, loanLine.Debt.ID)
	assert.True(t, loanLine.Amount.Equal(dec("20000")))

	// compute does not touch debt balances
	assert.True(t, env.getLoan(t, l.ID).RemainingBalance.Equal(dec("20000")))
}

func TestComputeCycleIsStable(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.addEmployee("emp-2", "E002", employee.SalaryTypeFixed)
	env.assignScenarioSalary(t, "emp-1")
	env.assign(t, "emp-2", "BASIC", "150000", "2026-01-01")
	env.addLoan(t, "emp-2", "50000", "10000", "50000", "2026-02-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")
	ctx := context.Background()

	clock := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	env.store.SetClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	_, err := env.coordinator.ComputeCycle(ctx, env.owner, cycle.ID)
	require.NoError(t, err)
	firstRuns, err := env.payrollRepo.ListRunsByCycle(ctx, cycle.ID, testCompany)
	require.NoError(t, err)
	firstItems, err := env.payrollRepo.ListLineItemsByCycle(ctx, cycle.ID)
	require.NoError(t, err)

	res, err := env.coordinator.ComputeCycle(ctx, env.owner, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RunsWritten)
	assert.Equal(t, string(payroll.CycleStatusProcessing), res.Cycle.Status)

	secondRuns, err := env.payrollRepo.ListRunsByCycle(ctx, cycle.ID, testCompany)
	require.NoError(t, err)
	secondItems, err := env.payrollRepo.ListLineItemsByCycle(ctx, cycle.ID)
	require.NoError(t, err)

	require.Len(t, secondRuns, len(firstRuns))
	for i := range firstRuns {
		assert.Equal(t, firstRuns[i].ID, secondRuns[i].ID)
		assert.True(t, firstRuns[i].Net.Equal(secondRuns[i].Net))
		assert.True(t, firstRuns[i].TotalDeductions.Equal(secondRuns[i].TotalDeductions))
		assert.Equal(t, firstRuns[i].UpdatedAt, secondRuns[i].UpdatedAt)
	}
	assert.Equal(t, firstItems, secondItems)
}

func TestComputeCycleSkipsZeroGross(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.addEmployee("emp-2", "E002", employee.SalaryTypeFixed)
	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")

	res, err := env.coordinator.ComputeCycle(context.Background(), env.owner, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RunsWritten)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "emp-2", res.Skipped[0].EmployeeID)
}

func TestComputeCycleSkipsEmployeeWithoutBasic(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.assign(t, "emp-1", "HOUSING", "56250", "2026-01-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")
	ctx := context.Background()

	res, err := env.coordinator.ComputeCycle(ctx, env.owner, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RunsWritten)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "emp-1", res.Skipped[0].EmployeeID)
	assert.Equal(t, SkipReasonNoBasic, res.Skipped[0].Reason)

	runs, err := env.payrollRepo.ListRunsByCycle(ctx, cycle.ID, testCompany)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestComputeCycleRemovesRunsNoLongerEligible(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.addEmployee("emp-2", "E002", employee.SalaryTypeFixed)
	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")
	basic := env.assign(t, "emp-2", "BASIC", "100000", "2026-01-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")
	ctx := context.Background()

	_, err := env.coordinator.ComputeCycle(ctx, env.owner, cycle.ID)
	require.NoError(t, err)

	require.NoError(t, env.payrollRepo.DeactivateStructure(ctx, basic.ID, testCompany))
	res, err := env.coordinator.ComputeCycle(ctx, env.owner, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RunsWritten)
	assert.Equal(t, 1, res.RunsRemoved)

	runs, err := env.payrollRepo.ListRunsByCycle(ctx, cycle.ID, testCompany)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "emp-1", runs[0].EmployeeID)
}

func TestComputeCycleVariableSalaryHasNoStatutoryWithholding(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeVariable)
	env.assignScenarioSalary(t, "emp-1")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")

	_, err := env.coordinator.ComputeCycle(context.Background(), env.owner, cycle.ID)
	require.NoError(t, err)

	runs, err := env.payrollRepo.ListRunsByCycle(context.Background(), cycle.ID, testCompany)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].TotalDeductions.IsZero())
	assert.True(t, runs[0].Net.Equal(dec("300000")))
	assert.True(t, runs[0].PensionEmployer.IsZero())
}

func TestComputeCycleRejectsLockedCycle(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")
	ctx := context.Background()

	_, err := env.coordinator.ComputeCycle(ctx, env.owner, cycle.ID)
	require.NoError(t, err)
	_, err = env.reconciler.SettleCycle(ctx, env.owner, cycle.ID)
	require.NoError(t, err)

	_, err = env.coordinator.ComputeCycle(ctx, env.owner, cycle.ID)
	assert.ErrorIs(t, err, apperror.ErrStateConflict)
}

func TestComputeCycleFailsWholeCycleOnAmbiguousBasic(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.addEmployee("emp-2", "E002", employee.SalaryTypeFixed)
	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")

	extra, err := env.payrollRepo.CreateComponent(context.Background(), payroll.Component{
		CompanyID: testCompany, Code: "BASIC_2", Name: "Second Basic", Category: payroll.CategoryBasic,
	})
	require.NoError(t, err)
	env.components[extra.Code] = extra
	env.assign(t, "emp-2", "BASIC", "100000", "2026-01-01")
	env.assign(t, "emp-2", "BASIC_2", "100000", "2026-01-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")

	_, err = env.coordinator.ComputeCycle(context.Background(), env.owner, cycle.ID)
	assert.ErrorIs(t, err, payroll.ErrMultipleBasicComponents)

	runs, err := env.payrollRepo.ListRunsByCycle(context.Background(), cycle.ID, testCompany)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Equal(t, payroll.CycleStatusOpen, env.getCycle(t, cycle.ID).Status)
}

func TestComputeCycleRequiresSystemComponents(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coordinator.ComputeCycle(context.Background(), env.owner, "missing")
	assert.ErrorIs(t, err, payroll.ErrCycleNotFound)

	// a company without the default catalog cannot compute
	other := env.owner
	other.CompanyID = "co-2"
	c, err := env.payrollRepo.CreateCycle(context.Background(), payroll.Cycle{
		CompanyID: "co-2", StartDate: date("2026-03-01"), EndDate: date("2026-03-31"), Status: payroll.CycleStatusOpen,
	})
	require.NoError(t, err)
	_, err = env.coordinator.ComputeCycle(context.Background(), other, c.ID)
	assert.ErrorIs(t, err, payroll.ErrSystemComponentMissing)
}

func TestComputeCycleRejectsNegativeNet(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeVariable)
	env.assign(t, "emp-1", "BASIC", "10000", "2026-01-01")
	env.addLoan(t, "emp-1", "50000", "20000", "50000", "2026-01-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")

	_, err := env.coordinator.ComputeCycle(context.Background(), env.owner, cycle.ID)
	assert.ErrorIs(t, err, payroll.ErrNegativeNetPay)
}

func TestComputeCycleCollectsDueAdvance(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeVariable)
	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")
	env.addAdvance(t, "emp-1", "25000", "10000", "2026-03-01")
	env.addAdvance(t, "emp-1", "25000", "10000", "2026-04-01")
	cycle := env.addCycle(t, "2026-03-01", "2026-03-31")

	_, err := env.coordinator.ComputeCycle(context.Background(), env.owner, cycle.ID)
	require.NoError(t, err)

	runs, err := env.payrollRepo.ListRunsByCycle(context.Background(), cycle.ID, testCompany)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].TotalDeductions.Equal(dec("10000")), runs[0].TotalDeductions.String())
}
