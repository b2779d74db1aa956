package loan

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// DefaultLimitRatio caps monthly debt repayments at 33% of gross salary.
var DefaultLimitRatio = decimal.RequireFromString("0.33")

// LimitCalculator answers the borrowing-limit query.
type LimitCalculator struct {
	loanRepo loan.LoanRepository
	resolver payroll.SalaryResolver
	ratio    decimal.Decimal
}

func NewLimitCalculator(loanRepo loan.LoanRepository, resolver payroll.SalaryResolver) *LimitCalculator {
	return &LimitCalculator{loanRepo: loanRepo, resolver: resolver, ratio: DefaultLimitRatio}
}

// BorrowingLimit returns gross, the 33% ceiling, the installments already
// committed to repayable loans and what is left. Available can be negative
// when existing loans already exceed the ceiling.
func (c *LimitCalculator) BorrowingLimit(ctx context.Context, companyID string, employeeID string, asOf time.Time) (loan.BorrowingLimit, error) {
	salary, err := c.resolver.Resolve(ctx, companyID, employeeID, asOf)
	if err != nil {
		return loan.BorrowingLimit{}, err
	}
	loans, err := c.loanRepo.ListRepayableLoans(ctx, employeeID, companyID)
	if err != nil {
		return loan.BorrowingLimit{}, err
	}

	committed := decimal.Zero
	for _, l := range loans {
		committed = committed.Add(l.MonthlyInstallment)
	}

	gross := salary.Gross()
	ceiling := gross.Mul(c.ratio).Round(2)
	return loan.BorrowingLimit{
		EmployeeID:  employeeID,
		GrossSalary: gross,
		MaxLimit:    ceiling,
		Committed:   committed,
		Available:   ceiling.Sub(committed),
	}, nil
}

// CheckAdvance fails with a LimitExceededError when monthly on top of the
// committed installments would exceed the ceiling.
func (c *LimitCalculator) CheckAdvance(ctx context.Context, companyID string, employeeID string, monthly decimal.Decimal, asOf time.Time) (loan.BorrowingLimit, error) {
	limit, err := c.BorrowingLimit(ctx, companyID, employeeID, asOf)
	if err != nil {
		return loan.BorrowingLimit{}, err
	}
	if monthly.Add(limit.Committed).GreaterThan(limit.MaxLimit) {
		return limit, &loan.LimitExceededError{Limit: limit, Requested: monthly}
	}
	return limit, nil
}
