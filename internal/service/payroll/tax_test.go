package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAnnualTaxBracketBoundaries(t *testing.T) {
	engine := NewTaxEngine(DefaultTaxRules())

	tests := []struct {
		name    string
		taxable string
		want    string
	}{
		{"zero", "0", "0"},
		{"first bracket full", "300000", "21000"},
		{"second bracket full", "600000", "54000"},
		{"third bracket full", "1100000", "129000"},
		{"fourth bracket full", "1600000", "224000"},
		{"fifth bracket full", "3200000", "560000"},
		{"into top bracket", "4200000", "800000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := engine.AnnualTax(d(tt.taxable))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestComputeScenario(t *testing.T) {
	engine := NewTaxEngine(DefaultTaxRules())

	// 300,000 split 66.65/18.75/8/3.75/2.85: basic 199,950, housing 56,250,
	// transport 24,000, utility 11,250, meal 8,550.
	res := engine.Compute(TaxInput{Gross: d("300000"), PensionBasis: d("280200")})

	assert.True(t, res.PensionEmployee.Equal(d("22416")), res.PensionEmployee.String())
	assert.True(t, res.PensionEmployer.Equal(d("28020")), res.PensionEmployer.String())
	assert.True(t, res.HousingFund.IsZero())
	assert.True(t, res.AnnualGross.Equal(d("3600000")))
	assert.True(t, res.ConsolidatedRelief.Equal(d("920000")))
	assert.True(t, res.TaxableIncome.Equal(d("2411008")), res.TaxableIncome.String())
	assert.True(t, res.AnnualTax.Equal(d("394311.68")), res.AnnualTax.String())
	assert.True(t, res.MonthlyTax.Equal(d("32859.31")), res.MonthlyTax.String())
	require.Len(t, res.Brackets, 5)
	assert.True(t, res.Brackets[4].Taxable.Equal(d("811008")))
}

func TestComputePensionOf22580(t *testing.T) {
	engine := NewTaxEngine(DefaultTaxRules())

	res := engine.Compute(TaxInput{Gross: d("300000"), PensionBasis: d("282250")})
	assert.True(t, res.PensionEmployee.Equal(d("22580")), res.PensionEmployee.String())
	assert.True(t, res.TaxableIncome.Equal(d("2409040")), res.TaxableIncome.String())
	assert.True(t, res.AnnualTax.Equal(d("393898.4")), res.AnnualTax.String())
	assert.True(t, res.MonthlyTax.Equal(d("32824.87")), res.MonthlyTax.String())
	assert.True(t, res.TotalWithheld().Equal(d("55404.87")))
}

func TestComputeReliefFloor(t *testing.T) {
	engine := NewTaxEngine(DefaultTaxRules())

	// Annual gross 600,000: 1% is 6,000 so the 200,000 floor applies.
	res := engine.Compute(TaxInput{Gross: d("50000"), PensionBasis: d("50000")})
	assert.True(t, res.ConsolidatedRelief.Equal(d("320000")), res.ConsolidatedRelief.String())
	// 600,000 - 48,000 - 320,000
	assert.True(t, res.TaxableIncome.Equal(d("232000")), res.TaxableIncome.String())
	assert.True(t, res.AnnualTax.Equal(d("16240")), res.AnnualTax.String())
	assert.True(t, res.MonthlyTax.Equal(d("1353.33")), res.MonthlyTax.String())
}

func TestComputeLowIncomeHasNoTax(t *testing.T) {
	engine := NewTaxEngine(DefaultTaxRules())

	res := engine.Compute(TaxInput{Gross: d("15000"), PensionBasis: d("15000")})
	assert.True(t, res.TaxableIncome.IsZero())
	assert.True(t, res.MonthlyTax.IsZero())
	assert.Empty(t, res.Brackets)
}

func TestComputeIsMonotonic(t *testing.T) {
	engine := NewTaxEngine(DefaultTaxRules())

	prev := decimal.Zero
	for gross := int64(0); gross <= 2_000_000; gross += 12_500 {
		g := decimal.NewFromInt(gross)
		res := engine.Compute(TaxInput{Gross: g, PensionBasis: g})
		assert.True(t, res.MonthlyTax.GreaterThanOrEqual(prev), "tax decreased at gross %d", gross)
		prev = res.MonthlyTax
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	engine := NewTaxEngine(DefaultTaxRules())
	in := TaxInput{Gross: d("412345.67"), PensionBasis: d("300000")}

	first := engine.Compute(in)
	engine.Compute(TaxInput{Gross: d("1"), PensionBasis: d("1")})
	second := engine.Compute(in)

	assert.True(t, first.MonthlyTax.Equal(second.MonthlyTax))
	assert.True(t, first.PensionEmployee.Equal(second.PensionEmployee))
}
