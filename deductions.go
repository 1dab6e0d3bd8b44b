package main

import (
	"github.com/shopspring/decimal"
)

// Calculator runs the deduction pipeline against one tax year's rules.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	taxYear   string
	taxBands  Schedule
	niBands   Schedule
	tax       TaxConfig
	childcare ChildcareConfig
}

// NewCalculator copies the schedules out of config so later edits to config
// cannot change results.
func NewCalculator(config *Config) *Calculator {
	return &Calculator{
		taxYear:   config.TaxYear,
		taxBands:  append(Schedule(nil), config.TaxBands...),
		niBands:   append(Schedule(nil), config.NIBands...),
		tax:       config.Tax,
		childcare: config.Childcare,
	}
}

// TaxYear returns the label of the rules this calculator applies
func (c *Calculator) TaxYear() string {
	return c.taxYear
}

// Compute turns raw inputs into an itemised DeductionResult.
// Inputs outside their domain are clamped rather than rejected.
func (c *Calculator) Compute(raw TaxpayerInputs) DeductionResult {
	in := raw.Clamped()

	grossIncome := in.Salary.Add(in.Bonus)
	salarySacrifice := in.ElectricCarSacrifice.Add(in.BikeToWorkSacrifice)

	// Employer contributions are reported but never reduce pay or taxable income
	employeePension := grossIncome.Mul(in.EmployeePensionPercent).Div(hundred)
	employerPension := grossIncome.Mul(in.EmployerPensionPercent).Div(hundred)

	// Pension and sacrifice come off before tax and NI. Every later step
	// uses this one figure.
	taxableIncome := grossIncome.Sub(employeePension).Sub(salarySacrifice)

	incomeTax := CalculateIncomeTax(taxableIncome, c.taxBands, c.tax)
	allowance := EffectivePersonalAllowance(taxableIncome, c.tax)
	nationalInsurance := CalculateLiability(taxableIncome, c.niBands)

	young := ResolveChildcare(ChildcareRequest{
		Cohort:              CohortYoung,
		TaxableIncome:       taxableIncome,
		NurseryCostPerHour:  in.NurseryCostPerHour,
		NurseryHoursPerWeek: in.NurseryHoursPerWeek,
		Children:            in.ChildrenYoung,
	}, c.childcare)
	mid := ResolveChildcare(ChildcareRequest{
		Cohort:              CohortMid,
		TaxableIncome:       taxableIncome,
		NurseryCostPerHour:  in.NurseryCostPerHour,
		NurseryHoursPerWeek: in.NurseryHoursPerWeek,
		Children:            in.ChildrenMid,
	}, c.childcare)
	nurseryCost := young.AnnualCost.Add(mid.AnnualCost)

	takeHome := grossIncome.
		Sub(employeePension).
		Sub(incomeTax).
		Sub(nationalInsurance).
		Sub(salarySacrifice).
		Sub(nurseryCost)

	return DeductionResult{
		TaxYear:                 c.taxYear,
		GrossIncome:             grossIncome,
		SalarySacrifice:         salarySacrifice,
		EmployeePension:         employeePension,
		EmployerPension:         employerPension,
		TaxableIncome:           taxableIncome,
		PersonalAllowance:       allowance,
		IncomeTax:               incomeTax,
		MarginalTaxRate:         MarginalRate(taxableIncome, c.taxBands, allowance),
		NationalInsurance:       nationalInsurance,
		Young:                   young,
		Mid:                     mid,
		NurseryCost:             nurseryCost,
		BelowChildcareThreshold: IsBelowChildcareThreshold(taxableIncome, c.childcare),
		TakeHome:                takeHome,
	}
}

// Compute is a convenience wrapper for one-off calculations
func Compute(inputs TaxpayerInputs, config *Config) DeductionResult {
	return NewCalculator(config).Compute(inputs)
}

// WithSalary returns a copy of the inputs with a different salary
func (in TaxpayerInputs) WithSalary(salary decimal.Decimal) TaxpayerInputs {
	in.Salary = salary
	return in
}
