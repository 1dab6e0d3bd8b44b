package main

import (
	"github.com/shopspring/decimal"
)

// ChildcareRequest is what the resolver needs for one cohort
type ChildcareRequest struct {
	Cohort              Cohort
	TaxableIncome       decimal.Decimal
	NurseryCostPerHour  decimal.Decimal
	NurseryHoursPerWeek decimal.Decimal
	Children            int
}

// IsBelowChildcareThreshold reports whether income qualifies for the
// income-gated free hours. The limit itself does not qualify.
func IsBelowChildcareThreshold(taxableIncome decimal.Decimal, cc ChildcareConfig) bool {
	return taxableIncome.LessThan(cc.GetIncomeThreshold())
}

// FreeHoursPerWeek returns the funded hours per child per week for a cohort
func FreeHoursPerWeek(cohort Cohort, eligible bool, cc ChildcareConfig) decimal.Decimal {
	if eligible {
		return cc.GetEligibleFreeHours()
	}
	if cohort == CohortMid && cc.GetRule() == ChildcareRuleCohort {
		// 3-4 year olds keep the universal entitlement at any income
		return cc.GetUniversalMidHours()
	}
	return decimal.Zero
}

// ResolveChildcare returns free hours, paid hours and annual nursery cost for one cohort
func ResolveChildcare(req ChildcareRequest, cc ChildcareConfig) CohortEntitlement {
	children := max(req.Children, 0)
	eligible := IsBelowChildcareThreshold(req.TaxableIncome, cc)
	free := FreeHoursPerWeek(req.Cohort, eligible, cc)
	count := decimal.NewFromInt(int64(children))

	paid := decimal.Max(decimal.Zero, nonNegative(req.NurseryHoursPerWeek).Sub(free))
	annualCost := paid.
		Mul(nonNegative(req.NurseryCostPerHour)).
		Mul(cc.GetSchoolWeeksPerYear()).
		Mul(count)

	return CohortEntitlement{
		Cohort:                req.Cohort,
		Name:                  req.Cohort.String(),
		Children:              children,
		FreeHoursPerWeek:      free,
		TotalFreeHoursPerWeek: free.Mul(count),
		PaidHoursPerWeek:      paid,
		AnnualCost:            annualCost,
	}
}
