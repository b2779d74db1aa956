package payroll

import (
	"github.com/shopspring/decimal"
)

// Bracket is one band of the progressive schedule. A zero Width means the
// band is unbounded.
type Bracket struct {
	Width decimal.Decimal
	Rate  decimal.Decimal
}

// TaxRules holds the withholding parameters for one jurisdiction-year.
type TaxRules struct {
	Jurisdiction string
	Year         int

	PensionEmployeeRate decimal.Decimal
	PensionEmployerRate decimal.Decimal
	HousingFundRate     decimal.Decimal

	ReliefFloor      decimal.Decimal
	ReliefFloorRate  decimal.Decimal
	ReliefGrossRate  decimal.Decimal
	PeriodsPerYear   int64
	CurrencyDecimals int32

	Brackets []Bracket
}

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s).Div(decimal.NewFromInt(100))
}

// DefaultTaxRules returns the PAYE schedule with consolidated relief.
func DefaultTaxRules() TaxRules {
	return TaxRules{
		Jurisdiction:        "NG",
		Year:                2024,
		PensionEmployeeRate: pct("8"),
		PensionEmployerRate: pct("10"),
		HousingFundRate:     decimal.Zero,
		ReliefFloor:         decimal.NewFromInt(200_000),
		ReliefFloorRate:     pct("1"),
		ReliefGrossRate:     pct("20"),
		PeriodsPerYear:      12,
		CurrencyDecimals:    2,
		Brackets: []Bracket{
			{Width: decimal.NewFromInt(300_000), Rate: pct("7")},
			{Width: decimal.NewFromInt(300_000), Rate: pct("11")},
			{Width: decimal.NewFromInt(500_000), Rate: pct("15")},
			{Width: decimal.NewFromInt(500_000), Rate: pct("19")},
			{Width: decimal.NewFromInt(1_600_000), Rate: pct("21")},
			{Width: decimal.Zero, Rate: pct("24")},
		},
	}
}

type TaxInput struct {
	Gross        decimal.Decimal
	PensionBasis decimal.Decimal
}

// BracketCharge is the tax charged in one band.
type BracketCharge struct {
	Rate    decimal.Decimal
	Taxable decimal.Decimal
	Tax     decimal.Decimal
}

type TaxResult struct {
	PensionEmployee    decimal.Decimal
	PensionEmployer    decimal.Decimal
	HousingFund        decimal.Decimal
	AnnualGross        decimal.Decimal
	AnnualPension      decimal.Decimal
	ConsolidatedRelief decimal.Decimal
	TaxableIncome      decimal.Decimal
	AnnualTax          decimal.Decimal
	MonthlyTax         decimal.Decimal
	Brackets           []BracketCharge
}

// TotalWithheld is what comes off the employee's pay.
func (r TaxResult) TotalWithheld() decimal.Decimal {
	return r.PensionEmployee.Add(r.HousingFund).Add(r.MonthlyTax)
}

// TaxEngine computes statutory withholding. It holds no state besides its
// rules, so one engine is shared by every computation.
type TaxEngine struct {
	rules TaxRules
}

func NewTaxEngine(rules TaxRules) *TaxEngine {
	return &TaxEngine{rules: rules}
}

func (e *TaxEngine) Rules() TaxRules {
	return e.rules
}

func (e *TaxEngine) Compute(in TaxInput) TaxResult {
	r := e.rules
	periods := decimal.NewFromInt(r.PeriodsPerYear)
	round := func(d decimal.Decimal) decimal.Decimal { return d.Round(r.CurrencyDecimals) }

	gross := decimal.Max(in.Gross, decimal.Zero)
	basis := decimal.Max(in.PensionBasis, decimal.Zero)

	res := TaxResult{
		PensionEmployee: round(basis.Mul(r.PensionEmployeeRate)),
		PensionEmployer: round(basis.Mul(r.PensionEmployerRate)),
		HousingFund:     round(gross.Mul(r.HousingFundRate)),
	}

	res.AnnualGross = gross.Mul(periods)
	res.AnnualPension = res.PensionEmployee.Mul(periods)
	res.ConsolidatedRelief = decimal.Max(r.ReliefFloor, res.AnnualGross.Mul(r.ReliefFloorRate)).
		Add(res.AnnualGross.Mul(r.ReliefGrossRate))
	res.TaxableIncome = decimal.Max(decimal.Zero,
		res.AnnualGross.Sub(res.AnnualPension).Sub(res.ConsolidatedRelief))

	res.AnnualTax, res.Brackets = e.AnnualTax(res.TaxableIncome)
	res.MonthlyTax = round(res.AnnualTax.Div(periods))
	return res
}

// AnnualTax applies the brackets in order to taxable annual income.
func (e *TaxEngine) AnnualTax(taxable decimal.Decimal) (decimal.Decimal, []BracketCharge) {
	total := decimal.Zero
	remaining := taxable
	var charges []BracketCharge

	for _, b := range e.rules.Brackets {
		if !remaining.IsPositive() {
			break
		}
		slice := remaining
		if b.Width.IsPositive() && b.Width.LessThan(remaining) {
			slice = b.Width
		}
		tax := slice.Mul(b.Rate)
		charges = append(charges, BracketCharge{Rate: b.Rate, Taxable: slice, Tax: tax})
		total = total.Add(tax)
		remaining = remaining.Sub(slice)
	}
	return total, charges
}
