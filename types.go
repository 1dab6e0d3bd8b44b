package main

import (
	"github.com/shopspring/decimal"
)

// Cohort identifies a child age band for free childcare hours
type Cohort int

const (
	CohortYoung Cohort = iota // 9 months to 3 years
	CohortMid                 // 3 to 4 years
)

func (c Cohort) String() string {
	switch c {
	case CohortYoung:
		return "9 months - 3 years"
	case CohortMid:
		return "3 - 4 years"
	default:
		return "Unknown"
	}
}

// ShortName returns the key used in config files and API payloads
func (c Cohort) ShortName() string {
	switch c {
	case CohortYoung:
		return "young"
	case CohortMid:
		return "mid"
	default:
		return "unknown"
	}
}

// TaxpayerInputs holds everything the user types into the calculator.
// Money is annual GBP, percentages are 0-100 and counts are whole children.
type TaxpayerInputs struct {
	Salary                 decimal.Decimal `yaml:"salary" json:"salary"`
	Bonus                  decimal.Decimal `yaml:"bonus" json:"bonus"`
	EmployeePensionPercent decimal.Decimal `yaml:"employee_pension_percent" json:"employee_pension_percent"`
	EmployerPensionPercent decimal.Decimal `yaml:"employer_pension_percent" json:"employer_pension_percent"`
	ElectricCarSacrifice   decimal.Decimal `yaml:"electric_car_sacrifice" json:"electric_car_sacrifice"`
	BikeToWorkSacrifice    decimal.Decimal `yaml:"bike_to_work_sacrifice" json:"bike_to_work_sacrifice"`
	NurseryCostPerHour     decimal.Decimal `yaml:"nursery_cost_per_hour" json:"nursery_cost_per_hour"`
	NurseryHoursPerWeek    decimal.Decimal `yaml:"nursery_hours_per_week" json:"nursery_hours_per_week"`
	ChildrenYoung          int             `yaml:"children_young" json:"children_young"` // 9 months to 3 years
	ChildrenMid            int             `yaml:"children_mid" json:"children_mid"`     // 3 to 4 years
}

var hundred = decimal.NewFromInt(100)

// Clamped returns a copy with every field forced into its domain:
// negative money and counts become zero, percentages are held in [0,100].
func (in TaxpayerInputs) Clamped() TaxpayerInputs {
	return TaxpayerInputs{
		Salary:                 nonNegative(in.Salary),
		Bonus:                  nonNegative(in.Bonus),
		EmployeePensionPercent: clampPercent(in.EmployeePensionPercent),
		EmployerPensionPercent: clampPercent(in.EmployerPensionPercent),
		ElectricCarSacrifice:   nonNegative(in.ElectricCarSacrifice),
		BikeToWorkSacrifice:    nonNegative(in.BikeToWorkSacrifice),
		NurseryCostPerHour:     nonNegative(in.NurseryCostPerHour),
		NurseryHoursPerWeek:    nonNegative(in.NurseryHoursPerWeek),
		ChildrenYoung:          max(in.ChildrenYoung, 0),
		ChildrenMid:            max(in.ChildrenMid, 0),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampPercent(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}

// CohortEntitlement is the childcare breakdown for one age cohort
type CohortEntitlement struct {
	Cohort                Cohort          `json:"-"`
	Name                  string          `json:"name"`
	Children              int             `json:"children"`
	FreeHoursPerWeek      decimal.Decimal `json:"free_hours_per_week"`       // Per child
	TotalFreeHoursPerWeek decimal.Decimal `json:"total_free_hours_per_week"` // Across all children in the cohort
	PaidHoursPerWeek      decimal.Decimal `json:"paid_hours_per_week"`       // Per child
	AnnualCost            decimal.Decimal `json:"annual_cost"`
}

// DeductionResult is the itemised output of one pipeline run.
// It is built once by Compute and never modified afterwards.
type DeductionResult struct {
	TaxYear                 string            `json:"tax_year"`
	GrossIncome             decimal.Decimal   `json:"gross_income"`
	SalarySacrifice         decimal.Decimal   `json:"salary_sacrifice"`
	EmployeePension         decimal.Decimal   `json:"employee_pension"`
	EmployerPension         decimal.Decimal   `json:"employer_pension"` // Reported only, never deducted
	TaxableIncome           decimal.Decimal   `json:"taxable_income"`
	PersonalAllowance       decimal.Decimal   `json:"personal_allowance"`
	IncomeTax               decimal.Decimal   `json:"income_tax"`
	MarginalTaxRate         decimal.Decimal   `json:"marginal_tax_rate"` // Band rate of the next taxable pound
	NationalInsurance       decimal.Decimal   `json:"national_insurance"`
	Young                   CohortEntitlement `json:"young"`
	Mid                     CohortEntitlement `json:"mid"`
	NurseryCost             decimal.Decimal   `json:"nursery_cost"`
	BelowChildcareThreshold bool              `json:"below_childcare_threshold"`
	TakeHome                decimal.Decimal   `json:"take_home"`
}

// MonthlyTakeHome returns take-home pay per calendar month
func (r DeductionResult) MonthlyTakeHome() decimal.Decimal {
	return r.TakeHome.Div(decimal.NewFromInt(12))
}

// TotalDeductions returns everything taken out of gross pay
func (r DeductionResult) TotalDeductions() decimal.Decimal {
	return r.GrossIncome.Sub(r.TakeHome)
}

// EffectiveDeductionRate returns total deductions as a fraction of gross income
func (r DeductionResult) EffectiveDeductionRate() decimal.Decimal {
	if !r.GrossIncome.IsPositive() {
		return decimal.Zero
	}
	return r.TotalDeductions().Div(r.GrossIncome)
}

// TotalPension returns employee plus employer contributions
func (r DeductionResult) TotalPension() decimal.Decimal {
	return r.EmployeePension.Add(r.EmployerPension)
}
