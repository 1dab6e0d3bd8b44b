package main

import (
	"github.com/shopspring/decimal"
)

// Note: Personal Allowance tapering settings are configurable via TaxConfig in config.go
// Default values for 2024/25:
// - PersonalAllowance: £12,570
// - TaperingThreshold: £100,000
// - TaperingRate: 0.5 (£1 lost per £2 over threshold)
// - AllowanceFullyRemoved: £125,140 (calculated from above)

// EffectivePersonalAllowance returns the Personal Allowance left after tapering
// for the given taxable income. It never goes below zero.
func EffectivePersonalAllowance(taxableIncome decimal.Decimal, taxConfig TaxConfig) decimal.Decimal {
	allowance := taxConfig.GetPersonalAllowance()
	threshold := taxConfig.GetTaperingThreshold()
	if taxableIncome.LessThanOrEqual(threshold) {
		return allowance
	}

	reduction := taxableIncome.Sub(threshold).Mul(taxConfig.GetTaperingRate())
	return allowance.Sub(decimal.Min(allowance, reduction))
}

// CalculateLiability walks the schedule from the lowest band upwards and
// returns the total owed on income. Each band takes at most its own width,
// so income sitting exactly on a boundary belongs to the lower band.
func CalculateLiability(income decimal.Decimal, schedule Schedule) decimal.Decimal {
	return walkBands(income, schedule, nil)
}

// CalculateLiabilityWithAllowance is CalculateLiability with the lowest band's
// width replaced by the (tapered) Personal Allowance. Allowance beyond the
// band's own width is discarded rather than carried into the next band.
func CalculateLiabilityWithAllowance(income decimal.Decimal, schedule Schedule, allowance decimal.Decimal) decimal.Decimal {
	allowance = nonNegative(allowance)
	return walkBands(income, schedule, &allowance)
}

func walkBands(income decimal.Decimal, schedule Schedule, firstBandWidth *decimal.Decimal) decimal.Decimal {
	remaining := nonNegative(income)
	total := decimal.Zero

	for i, band := range schedule {
		if !remaining.IsPositive() {
			break
		}

		amountInBand := remaining
		if width, bounded := band.Width(); bounded {
			if i == 0 && firstBandWidth != nil {
				width = decimal.Min(width, *firstBandWidth)
			}
			amountInBand = decimal.Min(remaining, width)
		} else if i == 0 && firstBandWidth != nil {
			amountInBand = decimal.Min(remaining, *firstBandWidth)
		}

		total = total.Add(amountInBand.Mul(band.Rate))
		remaining = remaining.Sub(amountInBand)
	}

	return total
}

// CalculateIncomeTax applies the Personal Allowance taper and then the tax schedule
func CalculateIncomeTax(taxableIncome decimal.Decimal, schedule Schedule, taxConfig TaxConfig) decimal.Decimal {
	allowance := EffectivePersonalAllowance(taxableIncome, taxConfig)
	return CalculateLiabilityWithAllowance(taxableIncome, schedule, allowance)
}

// MarginalRate returns the statutory rate of the band that the next pound of
// income falls into. The lowest band is narrowed to allowance exactly as in
// CalculateLiabilityWithAllowance, so a tapered allowance pulls the higher
// bands down with it.
func MarginalRate(income decimal.Decimal, schedule Schedule, allowance decimal.Decimal) decimal.Decimal {
	position := decimal.Zero
	income = nonNegative(income)
	allowance = nonNegative(allowance)
	for i, band := range schedule {
		width, bounded := band.Width()
		if i == 0 {
			if bounded {
				width = decimal.Min(width, allowance)
			} else {
				width, bounded = allowance, true
			}
		}
		if !bounded || income.LessThan(position.Add(width)) {
			return band.Rate
		}
		position = position.Add(width)
	}
	// Only reached when a lone band was narrowed; the walk leaves the rest untaxed
	return decimal.Zero
}
