package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBelowChildcareThreshold(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare

	assert.True(t, IsBelowChildcareThreshold(d("0"), cc))
	assert.True(t, IsBelowChildcareThreshold(d("99999"), cc))
	assert.True(t, IsBelowChildcareThreshold(d("99999.99"), cc))
	assert.False(t, IsBelowChildcareThreshold(d("100000"), cc), "the limit itself does not qualify")
	assert.False(t, IsBelowChildcareThreshold(d("150000"), cc))
}

func TestFreeHoursPerWeek_CohortRule(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare
	require.Equal(t, ChildcareRuleCohort, cc.GetRule())

	tests := []struct {
		name     string
		cohort   Cohort
		eligible bool
		hours    string
	}{
		{"young eligible", CohortYoung, true, "30"},
		{"young not eligible", CohortYoung, false, "0"},
		{"mid eligible", CohortMid, true, "30"},
		{"mid not eligible keeps universal hours", CohortMid, false, "15"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hours := FreeHoursPerWeek(tc.cohort, tc.eligible, cc)
			assert.True(t, hours.Equal(d(tc.hours)), "expected %s hours, got %s", tc.hours, hours)
		})
	}
}

func TestFreeHoursPerWeek_FlatRule(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare
	cc.Rule = ChildcareRuleFlat

	for _, cohort := range []Cohort{CohortYoung, CohortMid} {
		assert.True(t, FreeHoursPerWeek(cohort, true, cc).Equal(d("30")), cohort.String())
		assert.True(t, FreeHoursPerWeek(cohort, false, cc).IsZero(), cohort.String())
	}
}

func TestChildcareConfig_UnknownRuleFallsBackToCohort(t *testing.T) {
	cc := ChildcareConfig{Rule: "something-else"}
	assert.Equal(t, ChildcareRuleCohort, cc.GetRule())
	assert.True(t, cc.GetSchoolWeeksPerYear().Equal(d("38")))
	assert.True(t, cc.GetIncomeThreshold().Equal(d("100000")))
}

func TestResolveChildcare_ThresholdEdge(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare
	req := ChildcareRequest{
		Cohort:              CohortYoung,
		NurseryCostPerHour:  d("10"),
		NurseryHoursPerWeek: d("40"),
		Children:            1,
	}

	req.TaxableIncome = d("99999")
	below := ResolveChildcare(req, cc)
	// 10 paid hours × £10 × 38 weeks
	assert.True(t, below.FreeHoursPerWeek.Equal(d("30")))
	assert.True(t, below.PaidHoursPerWeek.Equal(d("10")))
	assert.True(t, below.AnnualCost.Equal(d("3800")), "got %s", below.AnnualCost)

	req.TaxableIncome = d("100000")
	at := ResolveChildcare(req, cc)
	// 40 paid hours × £10 × 38 weeks
	assert.True(t, at.FreeHoursPerWeek.IsZero())
	assert.True(t, at.AnnualCost.Equal(d("15200")), "got %s", at.AnnualCost)

	assert.True(t, at.AnnualCost.GreaterThan(below.AnnualCost))
}

func TestResolveChildcare_MidCohortNeverBelowUniversalHours(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare

	for _, income := range []string{"0", "50000", "99999", "100000", "250000"} {
		ent := ResolveChildcare(ChildcareRequest{
			Cohort:              CohortMid,
			TaxableIncome:       d(income),
			NurseryCostPerHour:  d("8"),
			NurseryHoursPerWeek: d("40"),
			Children:            1,
		}, cc)
		assert.True(t, ent.FreeHoursPerWeek.GreaterThanOrEqual(d("15")), "income %s: %s hours", income, ent.FreeHoursPerWeek)
	}
}

func TestResolveChildcare_RequestedBelowFreeHours(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare

	ent := ResolveChildcare(ChildcareRequest{
		Cohort:              CohortYoung,
		TaxableIncome:       d("40000"),
		NurseryCostPerHour:  d("12"),
		NurseryHoursPerWeek: d("20"),
		Children:            2,
	}, cc)

	assert.True(t, ent.PaidHoursPerWeek.IsZero(), "paid hours never go negative")
	assert.True(t, ent.AnnualCost.IsZero())
	assert.True(t, ent.TotalFreeHoursPerWeek.Equal(d("60")))
}

func TestResolveChildcare_ZeroChildren(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare

	for _, children := range []int{0, -3} {
		ent := ResolveChildcare(ChildcareRequest{
			Cohort:              CohortYoung,
			TaxableIncome:       d("150000"),
			NurseryCostPerHour:  d("12"),
			NurseryHoursPerWeek: d("50"),
			Children:            children,
		}, cc)
		assert.Equal(t, 0, ent.Children)
		assert.True(t, ent.AnnualCost.IsZero(), "children=%d cost %s", children, ent.AnnualCost)
		assert.True(t, ent.TotalFreeHoursPerWeek.IsZero())
	}
}

func TestResolveChildcare_CostScalesWithChildren(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare
	base := ChildcareRequest{
		Cohort:              CohortMid,
		TaxableIncome:       d("120000"),
		NurseryCostPerHour:  d("9.75"),
		NurseryHoursPerWeek: d("45"),
		Children:            1,
	}
	one := ResolveChildcare(base, cc)

	for _, n := range []int{2, 3, 5} {
		req := base
		req.Children = n
		many := ResolveChildcare(req, cc)
		expected := one.AnnualCost.Mul(decimal.NewFromInt(int64(n)))
		assert.True(t, many.AnnualCost.Equal(expected), "%d children: expected %s, got %s", n, expected, many.AnnualCost)
	}
}

func TestResolveChildcare_NegativeRatesClamped(t *testing.T) {
	cc := mustDefaultConfig(t).Childcare

	ent := ResolveChildcare(ChildcareRequest{
		Cohort:              CohortYoung,
		TaxableIncome:       d("150000"),
		NurseryCostPerHour:  d("-10"),
		NurseryHoursPerWeek: d("-40"),
		Children:            1,
	}, cc)
	assert.True(t, ent.PaidHoursPerWeek.IsZero())
	assert.True(t, ent.AnnualCost.IsZero())
}

func TestCohortNames(t *testing.T) {
	assert.Equal(t, "9 months - 3 years", CohortYoung.String())
	assert.Equal(t, "3 - 4 years", CohortMid.String())
	assert.Equal(t, "young", CohortYoung.ShortName())
	assert.Equal(t, "mid", CohortMid.ShortName())
	assert.Equal(t, "Unknown", Cohort(9).String())
}
