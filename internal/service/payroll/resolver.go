package payroll

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// SalaryResolver reads an employee's compensation structure. It never
// writes.
type SalaryResolver struct {
	payrollRepo payroll.PayrollRepository
}

func NewSalaryResolver(payrollRepo payroll.PayrollRepository) *SalaryResolver {
	return &SalaryResolver{payrollRepo: payrollRepo}
}

// Resolve reduces the rows in force on asOf to basic and allowance totals.
// For each component only the row with the latest effective date counts.
// Deduction components never contribute to gross.
func (r *SalaryResolver) Resolve(ctx context.Context, companyID string, employeeID string, asOf time.Time) (payroll.ResolvedSalary, error) {
	rows, err := r.payrollRepo.ListStructures(ctx, employeeID, companyID, true)
	if err != nil {
		return payroll.ResolvedSalary{}, err
	}

	// rows are newest first, so the first row seen per component wins
	seen := make(map[string]bool)
	var current []payroll.CompensationStructure
	for _, row := range rows {
		if row.Component == nil || !row.AppliesAt(asOf) || seen[row.ComponentID] {
			continue
		}
		seen[row.ComponentID] = true
		current = append(current, row)
	}

	out := payroll.ResolvedSalary{
		EmployeeID:            employeeID,
		Basic:                 decimal.Zero,
		AllowancesTotal:       decimal.Zero,
		PensionableAllowances: decimal.Zero,
	}

	for _, row := range current {
		component := *row.Component
		switch component.Category {
		case payroll.CategoryBasic:
			if out.BasicComponent != nil {
				return payroll.ResolvedSalary{}, fmt.Errorf("%w: employee %s has %s and %s",
					payroll.ErrMultipleBasicComponents, employeeID, out.BasicComponent.Code, component.Code)
			}
			out.BasicComponent = &component
			out.Basic = row.Amount
		case payroll.CategoryAllowance:
			out.AllowancesTotal = out.AllowancesTotal.Add(row.Amount)
			if component.Pensionable {
				out.PensionableAllowances = out.PensionableAllowances.Add(row.Amount)
			}
			out.Breakdown = append(out.Breakdown, payroll.AllowanceLine{Component: component, Amount: row.Amount})
		}
	}

	sort.Slice(out.Breakdown, func(i, j int) bool {
		if out.Breakdown[i].Component.Name != out.Breakdown[j].Component.Name {
			return out.Breakdown[i].Component.Name < out.Breakdown[j].Component.Name
		}
		return out.Breakdown[i].Component.ID < out.Breakdown[j].Component.ID
	})

	return out, nil
}
