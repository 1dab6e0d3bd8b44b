package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default-config.yaml
var defaultConfigYAML string

// Band is one marginal-rate slice of a tax or National Insurance schedule.
// Upper is nil for the final, unbounded band.
type Band struct {
	Name  string           `yaml:"name" json:"name"`
	Lower decimal.Decimal  `yaml:"lower" json:"lower"`
	Upper *decimal.Decimal `yaml:"upper,omitempty" json:"upper,omitempty"`
	Rate  decimal.Decimal  `yaml:"rate" json:"rate"`
}

// Width returns Upper-Lower, or false when the band is unbounded
func (b Band) Width() (decimal.Decimal, bool) {
	if b.Upper == nil {
		return decimal.Zero, false
	}
	return b.Upper.Sub(b.Lower), true
}

// Schedule is an ordered, contiguous list of bands starting at zero
type Schedule []Band

// Validate checks that bands start at zero, are contiguous and ascending,
// and that only the last band is unbounded.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return errors.New("schedule has no bands")
	}
	if !s[0].Lower.IsZero() {
		return fmt.Errorf("band %q must start at 0, starts at %s", s[0].Name, s[0].Lower)
	}
	for i, band := range s {
		if band.Rate.IsNegative() || band.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("band %q has rate %s outside [0,1]", band.Name, band.Rate)
		}
		last := i == len(s)-1
		if band.Upper == nil && !last {
			return fmt.Errorf("band %q is unbounded but is not the last band", band.Name)
		}
		if band.Upper != nil && last {
			return fmt.Errorf("last band %q must be unbounded", band.Name)
		}
		if band.Upper != nil && band.Upper.LessThanOrEqual(band.Lower) {
			return fmt.Errorf("band %q upper %s is not above lower %s", band.Name, band.Upper, band.Lower)
		}
		if i > 0 && !band.Lower.Equal(*s[i-1].Upper) {
			return fmt.Errorf("band %q starts at %s but previous band ends at %s",
				band.Name, band.Lower, s[i-1].Upper)
		}
	}
	return nil
}

// TaxConfig holds UK tax configuration including personal allowance tapering
// These values are set by HMRC and may change with each tax year
type TaxConfig struct {
	// Personal Allowance is the amount you can earn tax-free (2024/25: £12,570)
	PersonalAllowance decimal.Decimal `yaml:"personal_allowance" json:"personal_allowance"`
	// TaperingThreshold is the income level above which personal allowance starts to reduce (2024/25: £100,000)
	TaperingThreshold decimal.Decimal `yaml:"tapering_threshold" json:"tapering_threshold"`
	// TaperingRate is how much allowance is lost per £1 over threshold (2024/25: £0.50, so £1 lost per £2 earned)
	TaperingRate decimal.Decimal `yaml:"tapering_rate" json:"tapering_rate"`
}

// GetPersonalAllowance returns the personal allowance, using default if not set
func (tc TaxConfig) GetPersonalAllowance() decimal.Decimal {
	if !tc.PersonalAllowance.IsPositive() {
		return decimal.NewFromInt(12570) // 2024/25 default
	}
	return tc.PersonalAllowance
}

// GetTaperingThreshold returns the tapering threshold, using default if not set
func (tc TaxConfig) GetTaperingThreshold() decimal.Decimal {
	if !tc.TaperingThreshold.IsPositive() {
		return decimal.NewFromInt(100000) // 2024/25 default
	}
	return tc.TaperingThreshold
}

// GetTaperingRate returns the tapering rate, using default if not set
func (tc TaxConfig) GetTaperingRate() decimal.Decimal {
	if !tc.TaperingRate.IsPositive() {
		return decimal.RequireFromString("0.5") // £1 lost per £2 over threshold
	}
	return tc.TaperingRate
}

// GetAllowanceRemovedThreshold returns the income at which personal allowance is fully removed
func (tc TaxConfig) GetAllowanceRemovedThreshold() decimal.Decimal {
	return tc.GetTaperingThreshold().Add(tc.GetPersonalAllowance().Div(tc.GetTaperingRate()))
}

// Childcare free-hours rules
const (
	ChildcareRuleCohort = "cohort" // Per-cohort hours, universal 15 hours for 3-4 year olds
	ChildcareRuleFlat   = "flat"   // Same income-gated hours for every cohort
)

// ChildcareConfig holds the funded childcare rules (England, 2024/25)
type ChildcareConfig struct {
	Rule               string          `yaml:"rule" json:"rule"`
	IncomeThreshold    decimal.Decimal `yaml:"income_threshold" json:"income_threshold"`           // Eligible strictly below this
	SchoolWeeksPerYear decimal.Decimal `yaml:"school_weeks_per_year" json:"school_weeks_per_year"` // Funded hours apply term-time only
	EligibleFreeHours  decimal.Decimal `yaml:"eligible_free_hours" json:"eligible_free_hours"`     // Per child per week when eligible
	UniversalMidHours  decimal.Decimal `yaml:"universal_mid_hours" json:"universal_mid_hours"`     // 3-4 year olds regardless of income
	WarningMargin      decimal.Decimal `yaml:"warning_margin" json:"warning_margin"`               // How far above the threshold to warn
}

// GetRule returns the configured free-hours rule, defaulting to cohort
func (cc ChildcareConfig) GetRule() string {
	if cc.Rule == ChildcareRuleFlat {
		return ChildcareRuleFlat
	}
	return ChildcareRuleCohort
}

func (cc ChildcareConfig) GetIncomeThreshold() decimal.Decimal {
	if !cc.IncomeThreshold.IsPositive() {
		return decimal.NewFromInt(100000)
	}
	return cc.IncomeThreshold
}

func (cc ChildcareConfig) GetSchoolWeeksPerYear() decimal.Decimal {
	if !cc.SchoolWeeksPerYear.IsPositive() {
		return decimal.NewFromInt(38)
	}
	return cc.SchoolWeeksPerYear
}

func (cc ChildcareConfig) GetEligibleFreeHours() decimal.Decimal {
	if !cc.EligibleFreeHours.IsPositive() {
		return decimal.NewFromInt(30)
	}
	return cc.EligibleFreeHours
}

func (cc ChildcareConfig) GetUniversalMidHours() decimal.Decimal {
	if !cc.UniversalMidHours.IsPositive() {
		return decimal.NewFromInt(15)
	}
	return cc.UniversalMidHours
}

func (cc ChildcareConfig) GetWarningMargin() decimal.Decimal {
	if !cc.WarningMargin.IsPositive() {
		return decimal.NewFromInt(5000)
	}
	return cc.WarningMargin
}

// PensionConfig holds pension contribution limits used for warnings
type PensionConfig struct {
	// AnnualAllowance is the yearly cap on tax-relieved contributions (2024/25: £60,000)
	AnnualAllowance decimal.Decimal `yaml:"annual_allowance" json:"annual_allowance"`
}

// GetAnnualAllowance returns the pension annual allowance, using default if not set
func (pc PensionConfig) GetAnnualAllowance() decimal.Decimal {
	if !pc.AnnualAllowance.IsPositive() {
		return decimal.NewFromInt(60000)
	}
	return pc.AnnualAllowance
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Addr      string        `yaml:"addr" json:"addr"`
	RedisAddr string        `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"` // Empty = in-memory cache
	CacheTTL  time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// SweepConfig holds the default salary range for sweeps
type SweepConfig struct {
	SalaryMin decimal.Decimal `yaml:"salary_min" json:"salary_min"`
	SalaryMax decimal.Decimal `yaml:"salary_max" json:"salary_max"`
	Step      decimal.Decimal `yaml:"step" json:"step"`
	Workers   int             `yaml:"workers" json:"workers"`
}

// Config holds the complete configuration for one tax year
type Config struct {
	TaxYear   string          `yaml:"tax_year" json:"tax_year"`
	TaxBands  Schedule        `yaml:"tax_bands" json:"tax_bands"`
	NIBands   Schedule        `yaml:"ni_bands" json:"ni_bands"`
	Tax       TaxConfig       `yaml:"tax" json:"tax"`
	Childcare ChildcareConfig `yaml:"childcare" json:"childcare"`
	Pension   PensionConfig   `yaml:"pension" json:"pension"`
	Inputs    TaxpayerInputs  `yaml:"inputs" json:"inputs"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Sweep     SweepConfig     `yaml:"sweep" json:"sweep"`
}

// Validate checks the tax year label and both schedules
func (c *Config) Validate() error {
	if _, err := ParseTaxYearLabel(c.TaxYear); err != nil {
		return fmt.Errorf("tax_year: %w", err)
	}
	if err := c.TaxBands.Validate(); err != nil {
		return fmt.Errorf("tax_bands: %w", err)
	}
	if err := c.NIBands.Validate(); err != nil {
		return fmt.Errorf("ni_bands: %w", err)
	}
	return nil
}

// applyEnvOverrides lets deployment settings come from the environment
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("TAKEHOME_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if addr := os.Getenv("TAKEHOME_REDIS_ADDR"); addr != "" {
		c.Server.RedisAddr = addr
	}
}

// LoadDefaultConfig loads the 2024/25 configuration compiled into the binary
func LoadDefaultConfig() (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(preprocessPercentages(defaultConfigYAML)), &config); err != nil {
		return nil, fmt.Errorf("parse embedded default config: %w", err)
	}
	return &config, nil
}

// LoadConfig loads configuration from a YAML file on top of the embedded defaults.
// Any section missing from the file keeps its default value.
func LoadConfig(filename string) (*Config, error) {
	config, err := LoadDefaultConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(preprocessPercentages(string(data))), config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}

	config.applyEnvOverrides()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return config, nil
}

// LoadConfigOrDefault is LoadConfig that falls back to the embedded defaults
// when the file does not exist.
func LoadConfigOrDefault(filename string) (*Config, error) {
	config, err := LoadConfig(filename)
	if errors.Is(err, os.ErrNotExist) {
		config, err = LoadDefaultConfig()
		if err != nil {
			return nil, err
		}
		config.applyEnvOverrides()
		return config, nil
	}
	return config, err
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	header := []byte(`# Take-home pay calculator configuration
#
# Money is annual GBP. Rates may be written as decimals (0.2) or percentages (20%).
# The last band of each schedule has no upper bound.
# Figures are approximate and not a substitute for HMRC calculations.

`)
	return os.WriteFile(filename, append(header, data...), 0644)
}

// LoadInputs reads a YAML file holding only TaxpayerInputs
func LoadInputs(filename string) (TaxpayerInputs, error) {
	var inputs TaxpayerInputs
	data, err := os.ReadFile(filename)
	if err != nil {
		return inputs, fmt.Errorf("read inputs %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, &inputs); err != nil {
		return inputs, fmt.Errorf("parse inputs %s: %w", filename, err)
	}
	return inputs, nil
}

// SaveInputs writes inputs in the format LoadInputs reads
func SaveInputs(inputs TaxpayerInputs, filename string) error {
	data, err := yaml.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

// preprocessPercentages converts rate values like "20%" to decimal "0.2".
// Only keys ending in "rate" are touched; input percentages are already 0-100.
func preprocessPercentages(content string) string {
	re := regexp.MustCompile(`(rate:\s*)(\d+\.?\d*)%`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) >= 3 {
			num, err := decimal.NewFromString(parts[2])
			if err == nil {
				return parts[1] + num.Div(hundred).String()
			}
		}
		return match
	})
}

// TaxYearLabel returns the UK tax year label for the year it starts in (2024 -> "2024/25")
func TaxYearLabel(startYear int) string {
	return strconv.Itoa(startYear) + "/" + fmt.Sprintf("%02d", (startYear+1)%100)
}

// ParseTaxYearLabel returns the starting year of a label such as "2024/25"
func ParseTaxYearLabel(label string) (int, error) {
	start, _, ok := strings.Cut(label, "/")
	if !ok {
		return 0, fmt.Errorf("tax year %q is not in YYYY/YY form", label)
	}
	year, err := strconv.Atoi(start)
	if err != nil {
		return 0, fmt.Errorf("tax year %q: %w", label, err)
	}
	if TaxYearLabel(year) != label {
		return 0, fmt.Errorf("tax year %q does not span consecutive years", label)
	}
	return year, nil
}
