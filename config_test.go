package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultConfig(t *testing.T) {
	config, err := LoadDefaultConfig()
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "2024/25", config.TaxYear)
	require.Len(t, config.TaxBands, 4)
	require.Len(t, config.NIBands, 3)

	assert.True(t, config.TaxBands[1].Rate.Equal(d("0.2")), "percent rates are converted")
	assert.True(t, config.TaxBands[3].Rate.Equal(d("0.45")))
	assert.Nil(t, config.TaxBands[3].Upper)
	assert.True(t, config.Tax.TaperingRate.Equal(d("0.5")))
	assert.True(t, config.NIBands[1].Rate.Equal(d("0.12")))

	assert.Equal(t, ChildcareRuleCohort, config.Childcare.Rule)
	assert.True(t, config.Inputs.Salary.Equal(d("50000")))
	assert.Equal(t, 10*time.Minute, config.Server.CacheTTL)
	assert.Equal(t, 4, config.Sweep.Workers)
}

func TestSaveAndLoadConfig_RoundTrip(t *testing.T) {
	config := mustDefaultConfig(t)
	config.Childcare.Rule = ChildcareRuleFlat
	config.Inputs.ChildrenYoung = 2
	config.Server.CacheTTL = 90 * time.Second

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ChildcareRuleFlat, loaded.Childcare.Rule)
	assert.Equal(t, 2, loaded.Inputs.ChildrenYoung)
	assert.Equal(t, 90*time.Second, loaded.Server.CacheTTL)
	require.Len(t, loaded.TaxBands, len(config.TaxBands))
	for i := range config.TaxBands {
		assert.True(t, loaded.TaxBands[i].Rate.Equal(config.TaxBands[i].Rate), "band %d rate", i)
		assert.True(t, loaded.TaxBands[i].Lower.Equal(config.TaxBands[i].Lower), "band %d lower", i)
	}

	// Same config, same answer
	in := TaxpayerInputs{Salary: d("83000"), EmployeePensionPercent: d("4")}
	assert.True(t, Compute(in, loaded).TakeHome.Equal(Compute(in, config).TakeHome))
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, "partial.yaml", `
tax_year: "2025/26"
childcare:
  rule: flat
inputs:
  salary: 72000
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "2025/26", config.TaxYear)
	assert.Equal(t, ChildcareRuleFlat, config.Childcare.Rule)
	assert.True(t, config.Inputs.Salary.Equal(d("72000")))
	assert.Len(t, config.TaxBands, 4, "bands come from the defaults")
}

func TestLoadConfig_ReplacesSchedule(t *testing.T) {
	path := writeFile(t, "flat.yaml", `
tax_bands:
  - name: Allowance
    lower: 0
    upper: 10000
    rate: 0
  - name: Flat
    lower: 10000
    rate: 25%
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, config.TaxBands, 2)

	tax := CalculateIncomeTax(d("30000"), config.TaxBands, config.Tax)
	assert.True(t, tax.Equal(d("5000")), "got %s", tax)
}

func TestLoadConfig_RejectsInvalidSchedule(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"gap between bands", `
tax_bands:
  - {name: A, lower: 0, upper: 10000, rate: 0}
  - {name: B, lower: 12000, rate: 0.2}
`},
		{"does not start at zero", `
ni_bands:
  - {name: A, lower: 100, upper: 10000, rate: 0}
  - {name: B, lower: 10000, rate: 0.1}
`},
		{"unbounded band not last", `
tax_bands:
  - {name: A, lower: 0, rate: 0}
  - {name: B, lower: 10000, rate: 0.2}
`},
		{"last band bounded", `
tax_bands:
  - {name: A, lower: 0, upper: 10000, rate: 0}
`},
		{"rate above one", `
tax_bands:
  - {name: A, lower: 0, upper: 10000, rate: 0}
  - {name: B, lower: 10000, rate: 150%}
`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "bad.yaml", tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_RejectsBadTaxYear(t *testing.T) {
	for _, label := range []string{"2024/26", "2024-25", "twenty/25", ""} {
		t.Run(label, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", "tax_year: \""+label+"\"\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "tax_year")
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeFile(t, "broken.yaml", "tax_bands: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfigOrDefault_MissingFile(t *testing.T) {
	config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "2024/25", config.TaxYear)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TAKEHOME_ADDR", ":9999")
	t.Setenv("TAKEHOME_REDIS_ADDR", "redis:6379")

	config, err := LoadConfig(writeFile(t, "config.yaml", "tax_year: \"2024/25\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", config.Server.Addr)
	assert.Equal(t, "redis:6379", config.Server.RedisAddr)
}

func TestLoadInputs(t *testing.T) {
	path := writeFile(t, "inputs.yaml", `
salary: 64000
bonus: 3500.50
employee_pension_percent: 7.5
children_young: 1
`)

	in, err := LoadInputs(path)
	require.NoError(t, err)
	assert.True(t, in.Salary.Equal(d("64000")))
	assert.True(t, in.Bonus.Equal(d("3500.5")))
	assert.True(t, in.EmployeePensionPercent.Equal(d("7.5")))
	assert.Equal(t, 1, in.ChildrenYoung)
	assert.True(t, in.NurseryCostPerHour.IsZero())

	_, err = LoadInputs(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigGetters_ZeroMeansDefault(t *testing.T) {
	path := writeFile(t, "zeros.yaml", `
tax:
  personal_allowance: 0
  tapering_threshold: 0
  tapering_rate: 0
childcare:
  income_threshold: 0
  school_weeks_per_year: 0
  eligible_free_hours: 0
  universal_mid_hours: 0
  warning_margin: 0
pension:
  annual_allowance: 0
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.Tax.GetPersonalAllowance().Equal(d("12570")))
	assert.True(t, config.Tax.GetTaperingThreshold().Equal(d("100000")))
	assert.True(t, config.Tax.GetTaperingRate().Equal(d("0.5")))
	assert.True(t, config.Childcare.GetIncomeThreshold().Equal(d("100000")))
	assert.True(t, config.Childcare.GetSchoolWeeksPerYear().Equal(d("38")))
	assert.True(t, config.Childcare.GetEligibleFreeHours().Equal(d("30")))
	assert.True(t, config.Childcare.GetUniversalMidHours().Equal(d("15")))
	assert.True(t, config.Childcare.GetWarningMargin().Equal(d("5000")))
	assert.True(t, config.Pension.GetAnnualAllowance().Equal(d("60000")))
}

func TestPreprocessPercentages(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"rate: 20%", "rate: 0.2"},
		{"tapering_rate: 50%", "tapering_rate: 0.5"},
		{"rate: 12.5%", "rate: 0.125"},
		{"rate: 0.4", "rate: 0.4"},
		{"employee_pension_percent: 5", "employee_pension_percent: 5"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, preprocessPercentages(tc.in))
	}
}

func TestSchedule_Validate(t *testing.T) {
	upper := decimal.NewFromInt(1000)
	valid := Schedule{
		{Name: "Zero", Lower: decimal.Zero, Upper: &upper, Rate: decimal.Zero},
		{Name: "Rest", Lower: upper, Rate: d("0.1")},
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Schedule{}.Validate())

	negative := Schedule{{Name: "Neg", Lower: decimal.Zero, Rate: d("-0.1")}}
	assert.Error(t, negative.Validate())

	lower := decimal.NewFromInt(500)
	inverted := Schedule{
		{Name: "Inverted", Lower: decimal.Zero, Upper: &lower, Rate: decimal.Zero},
		{Name: "Back", Lower: upper, Rate: d("0.1")},
	}
	assert.Error(t, inverted.Validate())
}

func TestBand_Width(t *testing.T) {
	config := mustDefaultConfig(t)

	width, bounded := config.TaxBands[1].Width()
	assert.True(t, bounded)
	assert.True(t, width.Equal(d("37700")))

	_, bounded = config.TaxBands[3].Width()
	assert.False(t, bounded)
}
