package payroll

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScenarioSalary(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.assignScenarioSalary(t, "emp-1")

	salary, err := NewSalaryResolver(env.payrollRepo).Resolve(context.Background(), testCompany, "emp-1", date("2026-03-31"))
	require.NoError(t, err)

	assert.True(t, salary.Basic.Equal(dec("199950")))
	assert.True(t, salary.AllowancesTotal.Equal(dec("100050")))
	assert.True(t, salary.Gross().Equal(dec("300000")))
	assert.True(t, salary.PensionBasis().Equal(dec("280200")))
	require.NotNil(t, salary.BasicComponent)
	assert.Equal(t, "BASIC", salary.BasicComponent.Code)

	var names []string
	for _, line := range salary.Breakdown {
		names = append(names, line.Component.Name)
	}
	assert.Equal(t, []string{"Housing Allowance", "Meal Allowance", "Transport Allowance", "Utility Allowance"}, names)
}

func TestResolveUsesLatestEffectiveRow(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")
	env.assign(t, "emp-1", "BASIC", "120000", "2026-03-01")
	env.assign(t, "emp-1", "BASIC", "150000", "2026-05-01")

	resolver := NewSalaryResolver(env.payrollRepo)

	salary, err := resolver.Resolve(context.Background(), testCompany, "emp-1", date("2026-03-31"))
	require.NoError(t, err)
	assert.True(t, salary.Basic.Equal(dec("120000")), salary.Basic.String())

	salary, err = resolver.Resolve(context.Background(), testCompany, "emp-1", date("2026-02-28"))
	require.NoError(t, err)
	assert.True(t, salary.Basic.Equal(dec("100000")), salary.Basic.String())
}

func TestResolveIgnoresInactiveAndDeductionRows(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)
	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")
	housing := env.assign(t, "emp-1", "HOUSING", "20000", "2026-01-01")
	env.assign(t, "emp-1", payroll.CodePension, "5000", "2026-01-01")
	require.NoError(t, env.payrollRepo.DeactivateStructure(context.Background(), housing.ID, testCompany))

	salary, err := NewSalaryResolver(env.payrollRepo).Resolve(context.Background(), testCompany, "emp-1", date("2026-03-31"))
	require.NoError(t, err)
	assert.True(t, salary.Gross().Equal(dec("100000")), salary.Gross().String())
	assert.Empty(t, salary.Breakdown)
}

func TestResolveRejectsTwoBasicComponents(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)

	extra, err := env.payrollRepo.CreateComponent(context.Background(), payroll.Component{
		CompanyID: testCompany, Code: "BASIC_2", Name: "Second Basic", Category: payroll.CategoryBasic,
	})
	require.NoError(t, err)
	env.components[extra.Code] = extra

	env.assign(t, "emp-1", "BASIC", "100000", "2026-01-01")
	env.assign(t, "emp-1", "BASIC_2", "50000", "2026-01-01")

	_, err = NewSalaryResolver(env.payrollRepo).Resolve(context.Background(), testCompany, "emp-1", date("2026-03-31"))
	assert.ErrorIs(t, err, payroll.ErrMultipleBasicComponents)
}

func TestResolveWithoutStructureIsZero(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", employee.SalaryTypeFixed)

	salary, err := NewSalaryResolver(env.payrollRepo).Resolve(context.Background(), testCompany, "emp-1", date("2026-03-31"))
	require.NoError(t, err)
	assert.True(t, salary.Gross().IsZero())
	assert.Nil(t, salary.BasicComponent)
}
