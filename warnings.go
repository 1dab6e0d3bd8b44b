package main

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WarningKind classifies a warning shown alongside a result
type WarningKind int

const (
	WarnPensionAnnualAllowance WarningKind = iota // Employee + employer contributions over the annual allowance
	WarnAllowanceTaper                            // Taxable income inside the Personal Allowance taper
	WarnChildcareThreshold                        // Just over the free-hours income limit
	WarnNegativeTakeHome                          // Deductions exceed pay
)

func (w WarningKind) String() string {
	switch w {
	case WarnPensionAnnualAllowance:
		return "pension_annual_allowance"
	case WarnAllowanceTaper:
		return "allowance_taper"
	case WarnChildcareThreshold:
		return "childcare_threshold"
	case WarnNegativeTakeHome:
		return "negative_take_home"
	default:
		return "unknown"
	}
}

// Warning is a user-facing note about a result. Warnings never change the figures.
type Warning struct {
	Kind    WarningKind     `json:"-"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Amount  decimal.Decimal `json:"amount"` // The excess or shortfall the warning refers to
}

// Warnings inspects a result against the thresholds in config
func Warnings(result DeductionResult, config *Config) []Warning {
	var warnings []Warning
	add := func(kind WarningKind, amount decimal.Decimal, format string, args ...any) {
		warnings = append(warnings, Warning{
			Kind:    kind,
			Code:    kind.String(),
			Message: fmt.Sprintf(format, args...),
			Amount:  amount,
		})
	}

	annualAllowance := config.Pension.GetAnnualAllowance()
	if result.TotalPension().GreaterThan(annualAllowance) {
		excess := result.TotalPension().Sub(annualAllowance)
		add(WarnPensionAnnualAllowance, excess,
			"Pension contributions of £%s exceed the £%s annual allowance by £%s; the excess may be taxed",
			result.TotalPension().StringFixed(0), annualAllowance.StringFixed(0), excess.StringFixed(0))
	}

	threshold := config.Tax.GetTaperingThreshold()
	removedAt := config.Tax.GetAllowanceRemovedThreshold()
	if result.TaxableIncome.GreaterThan(threshold) && result.TaxableIncome.LessThanOrEqual(removedAt) {
		lost := config.Tax.GetPersonalAllowance().Sub(result.PersonalAllowance)
		add(WarnAllowanceTaper, lost,
			"Taxable income is in the £%s-£%s taper zone; £%s of Personal Allowance is lost",
			threshold.StringFixed(0), removedAt.StringFixed(0), lost.StringFixed(0))
	}

	limit := config.Childcare.GetIncomeThreshold()
	hasChildren := result.Young.Children+result.Mid.Children > 0
	if hasChildren && !result.BelowChildcareThreshold &&
		result.TaxableIncome.LessThan(limit.Add(config.Childcare.GetWarningMargin())) {
		over := result.TaxableIncome.Sub(limit)
		add(WarnChildcareThreshold, over,
			"Taxable income is £%s at or over the £%s childcare limit; extra pension or salary sacrifice would restore free hours",
			over.StringFixed(0), limit.StringFixed(0))
	}

	if result.TakeHome.IsNegative() {
		add(WarnNegativeTakeHome, result.TakeHome.Neg(),
			"Deductions exceed pay by £%s", result.TakeHome.Neg().StringFixed(0))
	}

	return warnings
}
