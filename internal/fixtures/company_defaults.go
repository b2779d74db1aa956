package fixtures

import (
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// ==========================================
// DEFAULT COMPENSATION COMPONENTS
// ==========================================

// GetDefaultComponents returns the standard component catalog for a new
// company. The four system deductions must exist before a cycle can be
// computed.
func GetDefaultComponents(companyID string) []payroll.Component {
	return []payroll.Component{
		// Earnings
		{CompanyID: companyID, Code: "BASIC", Name: "Basic Salary", Category: payroll.CategoryBasic, Taxable: true},
		{CompanyID: companyID, Code: "HOUSING", Name: "Housing Allowance", Category: payroll.CategoryAllowance, Taxable: true, Pensionable: true},
		{CompanyID: companyID, Code: "TRANSPORT", Name: "Transport Allowance", Category: payroll.CategoryAllowance, Taxable: true, Pensionable: true},
		{CompanyID: companyID, Code: "UTILITY", Name: "Utility Allowance", Category: payroll.CategoryAllowance, Taxable: true},
		{CompanyID: companyID, Code: "MEAL", Name: "Meal Allowance", Category: payroll.CategoryAllowance, Taxable: true},

		// System deductions
		{CompanyID: companyID, Code: payroll.CodePension, Name: "Pension (Employee)", Category: payroll.CategoryStatutoryDeduction},
		{CompanyID: companyID, Code: payroll.CodeIncomeTax, Name: "Income Tax (PAYE)", Category: payroll.CategoryStatutoryDeduction},
		{CompanyID: companyID, Code: payroll.CodeLoanRepayment, Name: "Loan Repayment", Category: payroll.CategoryDebtDeduction},
		{CompanyID: companyID, Code: payroll.CodeAdvanceRepayment, Name: "Salary Advance Recovery", Category: payroll.CategoryDebtDeduction},
	}
}

// ==========================================
// DEFAULT LOAN TYPES
// ==========================================

// GetDefaultLoanTypes returns standard loan products for a new company.
func GetDefaultLoanTypes(companyID string) []loan.LoanType {
	return []loan.LoanType{
		{
			CompanyID:       companyID,
			Name:            "Personal Loan",
			MaxAmount:       decimal.NewFromInt(1_000_000),
			MaxTenureMonths: 12,
			InterestRate:    decimal.Zero,
			Active:          true,
		},
		{
			CompanyID:       companyID,
			Name:            "Housing Loan",
			MaxAmount:       decimal.NewFromInt(5_000_000),
			MaxTenureMonths: 36,
			InterestRate:    decimal.NewFromInt(5),
			Active:          true,
		},
		{
			CompanyID:       companyID,
			Name:            "Emergency Loan",
			MaxAmount:       decimal.NewFromInt(300_000),
			MaxTenureMonths: 6,
			InterestRate:    decimal.Zero,
			Active:          true,
		},
	}
}
