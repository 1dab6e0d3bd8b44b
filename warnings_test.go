package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warningCodes(warnings []Warning) []string {
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestWarnings_NoneForOrdinaryResult(t *testing.T) {
	config := mustDefaultConfig(t)
	result := Compute(TaxpayerInputs{Salary: d("50000"), EmployeePensionPercent: d("5")}, config)

	assert.Empty(t, Warnings(result, config))
}

func TestWarnings_AllowanceTaper(t *testing.T) {
	config := mustDefaultConfig(t)

	tests := []struct {
		salary string
		warn   bool
	}{
		{"100000", false},
		{"100001", true},
		{"110000", true},
		{"125140", true},
		{"125141", false},
	}

	for _, tc := range tests {
		t.Run(tc.salary, func(t *testing.T) {
			warnings := Warnings(Compute(salaryInputs(tc.salary), config), config)
			if tc.warn {
				assert.Contains(t, warningCodes(warnings), "allowance_taper")
			} else {
				assert.NotContains(t, warningCodes(warnings), "allowance_taper")
			}
		})
	}

	warnings := Warnings(Compute(salaryInputs("110000"), config), config)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnAllowanceTaper, warnings[0].Kind)
	assert.True(t, warnings[0].Amount.Equal(d("5000")), "lost allowance %s", warnings[0].Amount)
}

func TestWarnings_PensionAnnualAllowance(t *testing.T) {
	config := mustDefaultConfig(t)
	result := Compute(TaxpayerInputs{
		Salary:                 d("200000"),
		EmployeePensionPercent: d("25"),
		EmployerPensionPercent: d("10"),
	}, config)

	warnings := Warnings(result, config)
	require.Contains(t, warningCodes(warnings), "pension_annual_allowance")
	for _, w := range warnings {
		if w.Kind == WarnPensionAnnualAllowance {
			// 50,000 + 20,000 against a 60,000 allowance
			assert.True(t, w.Amount.Equal(d("10000")))
		}
	}
}

func TestWarnings_ChildcareThreshold(t *testing.T) {
	config := mustDefaultConfig(t)
	in := TaxpayerInputs{
		Salary:              d("102000"),
		NurseryCostPerHour:  d("10"),
		NurseryHoursPerWeek: d("40"),
		ChildrenMid:         1,
	}

	warnings := Warnings(Compute(in, config), config)
	assert.Contains(t, warningCodes(warnings), "childcare_threshold")

	// Without children the limit is irrelevant
	in.ChildrenMid = 0
	assert.NotContains(t, warningCodes(Warnings(Compute(in, config), config)), "childcare_threshold")

	// Well over the limit nothing can be recovered cheaply
	in.ChildrenMid = 1
	in.Salary = d("140000")
	assert.NotContains(t, warningCodes(Warnings(Compute(in, config), config)), "childcare_threshold")
}

func TestWarnings_NegativeTakeHome(t *testing.T) {
	config := mustDefaultConfig(t)
	result := Compute(TaxpayerInputs{
		Salary:              d("20000"),
		NurseryCostPerHour:  d("15"),
		NurseryHoursPerWeek: d("50"),
		ChildrenYoung:       3,
	}, config)
	require.True(t, result.TakeHome.IsNegative())

	warnings := Warnings(result, config)
	require.Equal(t, []string{"negative_take_home"}, warningCodes(warnings))
	assert.True(t, warnings[0].Amount.Equal(result.TakeHome.Neg()))
}

func TestWarnings_DoNotChangeResult(t *testing.T) {
	config := mustDefaultConfig(t)
	result := Compute(salaryInputs("115000"), config)
	before := result.TakeHome

	_ = Warnings(result, config)
	assert.True(t, result.TakeHome.Equal(before))
}

func TestWarningKind_String(t *testing.T) {
	assert.Equal(t, "pension_annual_allowance", WarnPensionAnnualAllowance.String())
	assert.Equal(t, "allowance_taper", WarnAllowanceTaper.String())
	assert.Equal(t, "childcare_threshold", WarnChildcareThreshold.String())
	assert.Equal(t, "negative_take_home", WarnNegativeTakeHome.String())
	assert.Equal(t, "unknown", WarningKind(42).String())
}
