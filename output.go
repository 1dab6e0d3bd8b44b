package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#2563eb")).
			Padding(0, 2)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#2563eb")).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Width(34)

	amountStyle = lipgloss.NewStyle().
			Width(14).
			Align(lipgloss.Right)

	totalStyle = amountStyle.
			Bold(true).
			Foreground(lipgloss.Color("#16a34a"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ea580c"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748b")).
			Italic(true)
)

// Disclaimer is shown under every breakdown
const Disclaimer = "Figures are approximate and for illustration only. They are not a substitute for HMRC calculations or financial advice."

// FormatMoney formats a decimal as whole pounds with thousands separators
func FormatMoney(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	return sign + "£" + groupThousands(rounded.Abs().StringFixed(0))
}

// FormatMoneyPence formats a decimal as pounds and pence
func FormatMoneyPence(amount decimal.Decimal) string {
	pennies := amount.Abs().Mul(hundred).Round(0).IntPart()
	sign := ""
	if amount.IsNegative() && pennies != 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s£%s.%02d", sign, groupThousands(fmt.Sprint(pennies/100)), pennies%100)
}

func groupThousands(digits string) string {
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatPercent formats a fraction as a percentage
func FormatPercent(rate decimal.Decimal) string {
	return rate.Mul(hundred).StringFixed(1) + "%"
}

func breakdownLine(label string, amount decimal.Decimal) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), amountStyle.Render(FormatMoney(amount)))
}

// RenderBreakdown renders a result as a console table
func RenderBreakdown(result DeductionResult, warnings []Warning) string {
	var lines []string
	lines = append(lines, titleStyle.Render(fmt.Sprintf("Take-home pay %s", result.TaxYear)))

	lines = append(lines, sectionStyle.Render("Income"))
	lines = append(lines,
		breakdownLine("Gross income", result.GrossIncome),
		breakdownLine("Employee pension", result.EmployeePension.Neg()),
		breakdownLine("Salary sacrifice", result.SalarySacrifice.Neg()),
		breakdownLine("Taxable income", result.TaxableIncome),
		breakdownLine("Personal Allowance", result.PersonalAllowance),
	)

	lines = append(lines, sectionStyle.Render("Deductions"))
	lines = append(lines,
		breakdownLine("Income tax", result.IncomeTax.Neg()),
		breakdownLine("National Insurance", result.NationalInsurance.Neg()),
		breakdownLine("Nursery cost", result.NurseryCost.Neg()),
	)

	if result.Young.Children+result.Mid.Children > 0 {
		lines = append(lines, sectionStyle.Render("Childcare"))
		for _, cohort := range []CohortEntitlement{result.Young, result.Mid} {
			if cohort.Children == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s x%d: %s free + %s paid hours/week, %s/year",
				cohort.Name, cohort.Children,
				cohort.FreeHoursPerWeek.String(), cohort.PaidHoursPerWeek.String(),
				FormatMoney(cohort.AnnualCost)))
		}
		if !result.BelowChildcareThreshold {
			lines = append(lines, mutedStyle.Render("Income is at or above the free-hours limit"))
		}
	}

	lines = append(lines, sectionStyle.Render("Result"))
	lines = append(lines,
		lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Take-home (year)"), totalStyle.Render(FormatMoney(result.TakeHome))),
		lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Take-home (month)"), totalStyle.Render(FormatMoney(result.MonthlyTakeHome()))),
		breakdownLine("Employer pension (not deducted)", result.EmployerPension),
		labelStyle.Render("Effective deduction rate")+amountStyle.Render(FormatPercent(result.EffectiveDeductionRate())),
		labelStyle.Render("Marginal tax rate")+amountStyle.Render(FormatPercent(result.MarginalTaxRate)),
	)

	if len(warnings) > 0 {
		lines = append(lines, sectionStyle.Render("Warnings"))
		for _, w := range warnings {
			lines = append(lines, warningStyle.Render("! "+w.Message))
		}
	}

	lines = append(lines, "", mutedStyle.Render(Disclaimer))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// PrintBreakdown writes the rendered breakdown to w
func PrintBreakdown(w io.Writer, result DeductionResult, warnings []Warning) {
	fmt.Fprintln(w, RenderBreakdown(result, warnings))
}

// PrintSweep writes a salary sweep as a table
func PrintSweep(w io.Writer, points []SweepPoint) {
	header := fmt.Sprintf("%12s │ %12s %12s %12s %12s │ %12s │ %8s",
		"Salary", "Taxable", "Tax", "NI", "Nursery", "Take-home", "Marginal")
	fmt.Fprintln(w, sectionStyle.Render("Salary sweep"))
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(header)))
	for _, p := range points {
		line := fmt.Sprintf("%12s │ %12s %12s %12s %12s │ %12s │ %8s",
			FormatMoney(p.Salary),
			FormatMoney(p.Result.TaxableIncome),
			FormatMoney(p.Result.IncomeTax),
			FormatMoney(p.Result.NationalInsurance),
			FormatMoney(p.Result.NurseryCost),
			FormatMoney(p.Result.TakeHome),
			FormatPercent(p.MarginalDeduction))
		// Highlight steps where more than 60p of each extra pound is lost
		if p.MarginalDeduction.GreaterThan(decimal.RequireFromString("0.6")) {
			line = warningStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, mutedStyle.Render(Disclaimer))
}
