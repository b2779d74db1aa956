package payroll

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	loansvc "github.com/cmlabs-hris/payroll-backend-go/internal/service/loan"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testCompany = "co-1"

type testEnv struct {
	store        *memory.Store
	payrollRepo  payroll.PayrollRepository
	loanRepo     loan.LoanRepository
	employeeRepo employee.EmployeeRepository
	coordinator  *Coordinator
	reconciler   *Reconciler
	service      payroll.PayrollService
	components   map[string]payroll.Component
	owner        user.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	payrollRepo := memory.NewPayrollRepository(store)
	loanRepo := memory.NewLoanRepository(store)
	employeeRepo := memory.NewEmployeeRepository(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	resolver := NewSalaryResolver(payrollRepo)
	coordinator := NewCoordinator(store, payrollRepo, employeeRepo, resolver,
		NewTaxEngine(DefaultTaxRules()), loansvc.NewObligationScheduler(loanRepo), logger)
	reconciler := NewReconciler(store, payrollRepo, loanRepo, logger)

	env := &testEnv{
		store:        store,
		payrollRepo:  payrollRepo,
		loanRepo:     loanRepo,
		employeeRepo: employeeRepo,
		coordinator:  coordinator,
		reconciler:   reconciler,
		service:      NewPayrollService(store, payrollRepo, employeeRepo, loanRepo, coordinator, reconciler, logger),
		components:   make(map[string]payroll.Component),
		owner:        user.Actor{UserID: "user-owner", CompanyID: testCompany, Role: user.RoleOwner},
	}

	ctx := context.Background()
	for _, c := range fixtures.GetDefaultComponents(testCompany) {
		created, err := payrollRepo.CreateComponent(ctx, c)
		require.NoError(t, err)
		env.components[created.Code] = created
	}
	return env
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func (e *testEnv) addEmployee(id, code string, salaryType employee.SalaryType) {
	e.store.PutEmployee(employee.Employee{
		ID:               id,
		CompanyID:        testCompany,
		EmployeeCode:     code,
		FullName:         "Employee " + code,
		EmploymentType:   employee.EmploymentTypePermanent,
		EmploymentStatus: employee.EmploymentStatusActive,
		SalaryType:       salaryType,
		HireDate:         date("2024-01-01"),
	})
}

func (e *testEnv) assign(t *testing.T, employeeID, code, amount, effective string) payroll.CompensationStructure {
	t.Helper()
	s, err := e.payrollRepo.CreateStructure(context.Background(), payroll.CompensationStructure{
		EmployeeID:    employeeID,
		ComponentID:   e.components[code].ID,
		Amount:        decimal.RequireFromString(amount),
		EffectiveDate: date(effective),
		Active:        true,
	})
	require.NoError(t, err)
	return s
}

// assignScenarioSalary gives employeeID 300,000 split 66.65/18.75/8/3.75/2.85.
func (e *testEnv) assignScenarioSalary(t *testing.T, employeeID string) {
	e.assign(t, employeeID, "BASIC", "199950", "2026-01-01")
	e.assign(t, employeeID, "HOUSING", "56250", "2026-01-01")
	e.assign(t, employeeID, "TRANSPORT", "24000", "2026-01-01")
	e.assign(t, employeeID, "UTILITY", "11250", "2026-01-01")
	e.assign(t, employeeID, "MEAL", "8550", "2026-01-01")
}

func (e *testEnv) addCycle(t *testing.T, start, end string) payroll.Cycle {
	t.Helper()
	c, err := e.payrollRepo.CreateCycle(context.Background(), payroll.Cycle{
		CompanyID:   testCompany,
		Label:       start,
		StartDate:   date(start),
		EndDate:     date(end),
		PaymentDate: date(end),
		Status:      payroll.CycleStatusOpen,
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) addLoan(t *testing.T, employeeID, principal, installment, remaining, start string) loan.Loan {
	t.Helper()
	startDate := date(start)
	l, err := e.loanRepo.CreateLoan(context.Background(), loan.Loan{
		CompanyID:          testCompany,
		EmployeeID:         employeeID,
		DisbursedAmount:    decimal.RequireFromString(principal),
		InterestAmount:     decimal.Zero,
		Principal:          decimal.RequireFromString(principal),
		MonthlyInstallment: decimal.RequireFromString(installment),
		RemainingBalance:   decimal.RequireFromString(remaining),
		Status:             loan.LoanStatusActive,
		RepaymentStartDate: &startDate,
	})
	require.NoError(t, err)
	return l
}

func (e *testEnv) addAdvance(t *testing.T, employeeID, amount, monthly, start string) loan.SalaryAdvance {
	t.Helper()
	startDate := date(start)
	a, err := e.loanRepo.CreateAdvance(context.Background(), loan.SalaryAdvance{
		CompanyID:          testCompany,
		EmployeeID:         employeeID,
		Amount:             decimal.RequireFromString(amount),
		MonthlyDeduction:   decimal.RequireFromString(monthly),
		DeductedAmount:     decimal.Zero,
		Status:             loan.AdvanceStatusApproved,
		RepaymentStartDate: &startDate,
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) getLoan(t *testing.T, id string) loan.Loan {
	t.Helper()
	l, err := e.loanRepo.GetLoanByID(context.Background(), id, testCompany)
	require.NoError(t, err)
	return l
}

func (e *testEnv) getCycle(t *testing.T, id string) payroll.Cycle {
	t.Helper()
	c, err := e.payrollRepo.GetCycleByID(context.Background(), id, testCompany)
	require.NoError(t, err)
	return c
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
