package loan

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
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testCompany = "co-1"

// grossResolver resolves every employee to a flat basic salary.
type grossResolver map[string]decimal.Decimal

func (g grossResolver) Resolve(ctx context.Context, companyID string, employeeID string, asOf time.Time) (payroll.ResolvedSalary, error) {
	return payroll.ResolvedSalary{
		EmployeeID:            employeeID,
		Basic:                 g[employeeID],
		AllowancesTotal:       decimal.Zero,
		PensionableAllowances: decimal.Zero,
	}, nil
}

type testEnv struct {
	store    *memory.Store
	loanRepo loan.LoanRepository
	service  *LoanServiceImpl
	salaries grossResolver
	owner    user.Actor
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	loanRepo := memory.NewLoanRepository(store)
	salaries := grossResolver{}

	svc := NewLoanService(store, loanRepo, memory.NewEmployeeRepository(store),
		NewLimitCalculator(loanRepo, salaries), slog.New(slog.NewTextHandler(io.Discard, nil)))

	env := &testEnv{
		store:    store,
		loanRepo: loanRepo,
		service:  svc.(*LoanServiceImpl),
		salaries: salaries,
		owner:    user.Actor{UserID: "user-owner", CompanyID: testCompany, Role: user.RoleOwner},
		clock:    date("2026-03-10"),
	}
	env.service.now = func() time.Time { return env.clock }
	return env
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func employeeActor(employeeID string) user.Actor {
	return user.Actor{UserID: "user-" + employeeID, EmployeeID: &employeeID, CompanyID: testCompany, Role: user.RoleEmployee}
}

func (e *testEnv) addEmployee(id string, gross string) {
	e.store.PutEmployee(employee.Employee{
		ID:               id,
		CompanyID:        testCompany,
		EmployeeCode:     id,
		FullName:         "Employee " + id,
		EmploymentType:   employee.EmploymentTypePermanent,
		EmploymentStatus: employee.EmploymentStatusActive,
		SalaryType:       employee.SalaryTypeFixed,
		HireDate:         date("2024-01-01"),
	})
	e.salaries[id] = dec(gross)
}

func (e *testEnv) addLoanType(t *testing.T, name, maxAmount string, maxTenure int, rate string) loan.LoanType {
	t.Helper()
	lt, err := e.loanRepo.CreateLoanType(context.Background(), loan.LoanType{
		CompanyID:       testCompany,
		Name:            name,
		MaxAmount:       dec(maxAmount),
		MaxTenureMonths: maxTenure,
		InterestRate:    dec(rate),
		Active:          true,
	})
	require.NoError(t, err)
	return lt
}

// addLoan stores a loan directly; start may be empty for an unscheduled loan.
func (e *testEnv) addLoan(t *testing.T, employeeID string, status loan.LoanStatus, installment, remaining, start string) loan.Loan {
	t.Helper()
	l := loan.Loan{
		CompanyID:          testCompany,
		EmployeeID:         employeeID,
		DisbursedAmount:    dec(remaining),
		InterestAmount:     decimal.Zero,
		Principal:          dec(remaining),
		TenureMonths:       12,
		MonthlyInstallment: dec(installment),
		RemainingBalance:   dec(remaining),
		Status:             status,
	}
	if start != "" {
		s := date(start)
		l.RepaymentStartDate = &s
	}
	created, err := e.loanRepo.CreateLoan(context.Background(), l)
	require.NoError(t, err)
	return created
}

func (e *testEnv) addAdvance(t *testing.T, employeeID, amount, monthly, deducted, start string) loan.SalaryAdvance {
	t.Helper()
	a := loan.SalaryAdvance{
		CompanyID:        testCompany,
		EmployeeID:       employeeID,
		Amount:           dec(amount),
		RepaymentMonths:  3,
		MonthlyDeduction: dec(monthly),
		DeductedAmount:   dec(deducted),
		Status:           loan.AdvanceStatusApproved,
	}
	if start != "" {
		s := date(start)
		a.RepaymentStartDate = &s
	}
	created, err := e.loanRepo.CreateAdvance(context.Background(), a)
	require.NoError(t, err)
	return created
}

func (e *testEnv) post(t *testing.T, debtType payroll.DebtType, debtID, employeeID, amount, posted string) {
	t.Helper()
	_, err := e.loanRepo.CreatePosting(context.Background(), loan.RepaymentPosting{
		Reference:  "ref-" + debtID + "-" + posted,
		CompanyID:  testCompany,
		DebtType:   debtType,
		DebtID:     debtID,
		RunID:      "run-" + posted,
		CycleID:    "cycle-" + posted,
		EmployeeID: employeeID,
		Amount:     dec(amount),
		PostedDate: date(posted),
	})
	require.NoError(t, err)
}
