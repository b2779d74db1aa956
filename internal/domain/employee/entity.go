package employee

import "time"

// Employee is the payroll view of an employee record. Employee CRUD is owned
// by the HR service; payroll only reads these rows.
type Employee struct {
	ID                    string
	CompanyID             string
	EmployeeCode          string
	FullName              string
	EmploymentType        EmploymentType
	EmploymentStatus      EmploymentStatus
	SalaryType            SalaryType
	BankName              string
	BankAccountHolderName *string
	BankAccountNumber     string
	HireDate              time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type EmploymentType string

const (
	EmploymentTypePermanent  EmploymentType = "permanent"
	EmploymentTypeProbation  EmploymentType = "probation"
	EmploymentTypeContract   EmploymentType = "contract"
	EmploymentTypeInternship EmploymentType = "internship"
	EmploymentTypeFreelance  EmploymentType = "freelance"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// SalaryType decides statutory withholding: only fixed-salary employees
// have pension and income tax withheld by payroll.
type SalaryType string

const (
	SalaryTypeFixed    SalaryType = "fixed"
	SalaryTypeVariable SalaryType = "variable"
)

// WithholdsStatutory reports whether pension and tax are withheld for e.
func (e Employee) WithholdsStatutory() bool {
	return e.SalaryType == SalaryTypeFixed
}
