package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError describes an answer the prompter rejected
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

var (
	thousand = decimal.NewFromInt(1000)
	million  = decimal.NewFromInt(1000000)
)

// validateMoney checks an amount is non-negative and below £100m
func validateMoney(amount decimal.Decimal, fieldName string) error {
	if amount.IsNegative() {
		return ValidationError{Field: fieldName, Message: "Amount cannot be negative"}
	}
	if amount.GreaterThan(million.Mul(hundred)) {
		return ValidationError{Field: fieldName, Message: "Amount seems too large (max £100m)"}
	}
	return nil
}

// validatePercent checks a percentage is within 0-100
func validatePercent(percent decimal.Decimal, fieldName string) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return ValidationError{Field: fieldName, Message: fmt.Sprintf("Percentage must be between 0 and 100 (got %s)", percent)}
	}
	return nil
}

// validateCount checks a child count is reasonable (0-10)
func validateCount(count int, fieldName string) error {
	if count < 0 || count > 10 {
		return ValidationError{Field: fieldName, Message: fmt.Sprintf("Number of children must be between 0 and 10 (got %d)", count)}
	}
	return nil
}

// parseMoney parses money strings like "50k", "1.2m", "£48,000"
func parseMoney(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	input = strings.TrimPrefix(input, "£")
	input = strings.ReplaceAll(input, ",", "")
	multiplier := decimal.NewFromInt(1)
	if strings.HasSuffix(input, "k") {
		multiplier = thousand
		input = strings.TrimSuffix(input, "k")
	} else if strings.HasSuffix(input, "m") {
		multiplier = million
		input = strings.TrimSuffix(input, "m")
	}
	val, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, err
	}
	return val.Mul(multiplier), nil
}

// parsePercent accepts "5" or "5%" and returns 5
func parsePercent(input string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(input), "%"))
}

func formatMoneyShort(amount decimal.Decimal) string {
	if amount.GreaterThanOrEqual(million) {
		return "£" + amount.Div(million).StringFixed(1) + "m"
	} else if amount.GreaterThanOrEqual(thousand) && amount.Mod(thousand).IsZero() {
		return "£" + amount.Div(thousand).String() + "k"
	}
	return "£" + amount.String()
}

// InputsPrompter asks for each input in turn, offering the current value as
// the default. An empty answer keeps the default; an invalid one is asked again.
type InputsPrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewInputsPrompter creates a prompter reading answers from in and writing prompts to out
func NewInputsPrompter(in io.Reader, out io.Writer) *InputsPrompter {
	return &InputsPrompter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// readLine returns the trimmed answer. ok is false once input is exhausted.
func (p *InputsPrompter) readLine() (string, bool) {
	input, err := p.reader.ReadString('\n')
	if err != nil && input == "" {
		return "", false
	}
	return strings.TrimSpace(input), true
}

// promptMoney asks for a money amount with validation (accepts "100k" or "100000")
func (p *InputsPrompter) promptMoney(prompt, field string, defaultVal decimal.Decimal) decimal.Decimal {
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", prompt, formatMoneyShort(defaultVal))
		input, ok := p.readLine()
		if !ok || input == "" {
			return defaultVal
		}
		amount, err := parseMoney(input)
		if err != nil {
			fmt.Fprintf(p.out, "  ✗ Invalid amount. Enter as '50k', '1.5m', or '50000'\n")
			continue
		}
		if err := validateMoney(amount, field); err != nil {
			fmt.Fprintf(p.out, "  ✗ %s\n", err.Error())
			continue
		}
		return amount
	}
}

// promptPercent asks for a percentage with validation (accepts "5%" or "5")
func (p *InputsPrompter) promptPercent(prompt, field string, defaultVal decimal.Decimal) decimal.Decimal {
	for {
		fmt.Fprintf(p.out, "%s [%s%%]: ", prompt, defaultVal)
		input, ok := p.readLine()
		if !ok || input == "" {
			return defaultVal
		}
		percent, err := parsePercent(input)
		if err != nil {
			fmt.Fprintf(p.out, "  ✗ Invalid percentage. Enter as '5%%' or '5'\n")
			continue
		}
		if err := validatePercent(percent, field); err != nil {
			fmt.Fprintf(p.out, "  ✗ %s\n", err.Error())
			continue
		}
		return percent
	}
}

// promptDecimal asks for a plain non-negative number
func (p *InputsPrompter) promptDecimal(prompt, field string, defaultVal decimal.Decimal) decimal.Decimal {
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", prompt, defaultVal)
		input, ok := p.readLine()
		if !ok || input == "" {
			return defaultVal
		}
		val, err := decimal.NewFromString(input)
		if err != nil {
			fmt.Fprintf(p.out, "  ✗ Invalid number\n")
			continue
		}
		if val.IsNegative() {
			fmt.Fprintf(p.out, "  ✗ %s cannot be negative\n", field)
			continue
		}
		return val
	}
}

// promptCount asks for a number of children
func (p *InputsPrompter) promptCount(prompt, field string, defaultVal int) int {
	for {
		fmt.Fprintf(p.out, "%s [%d]: ", prompt, defaultVal)
		input, ok := p.readLine()
		if !ok || input == "" {
			return defaultVal
		}
		count, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.out, "  ✗ Please enter a whole number\n")
			continue
		}
		if err := validateCount(count, field); err != nil {
			fmt.Fprintf(p.out, "  ✗ %s\n", err.Error())
			continue
		}
		return count
	}
}

// PromptInputs walks through every input, starting from defaults
func (p *InputsPrompter) PromptInputs(defaults TaxpayerInputs) TaxpayerInputs {
	in := defaults.Clamped()

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "╔══════════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(p.out, "║                    TAKE-HOME PAY CALCULATOR                          ║")
	fmt.Fprintln(p.out, "╚══════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(p.out, "Press Enter to keep the value in brackets.")

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "INCOME")
	in.Salary = p.promptMoney("  Annual salary", "salary", in.Salary)
	in.Bonus = p.promptMoney("  Annual bonus", "bonus", in.Bonus)

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "PENSION")
	in.EmployeePensionPercent = p.promptPercent("  Your contribution", "employee_pension_percent", in.EmployeePensionPercent)
	in.EmployerPensionPercent = p.promptPercent("  Employer contribution", "employer_pension_percent", in.EmployerPensionPercent)

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "SALARY SACRIFICE (annual)")
	in.ElectricCarSacrifice = p.promptMoney("  Electric car", "electric_car_sacrifice", in.ElectricCarSacrifice)
	in.BikeToWorkSacrifice = p.promptMoney("  Bike to work", "bike_to_work_sacrifice", in.BikeToWorkSacrifice)

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "CHILDCARE")
	in.ChildrenYoung = p.promptCount("  Children aged 9 months - 3 years", "children_young", in.ChildrenYoung)
	in.ChildrenMid = p.promptCount("  Children aged 3 - 4 years", "children_mid", in.ChildrenMid)
	if in.ChildrenYoung+in.ChildrenMid > 0 {
		in.NurseryCostPerHour = p.promptMoney("  Nursery cost per hour", "nursery_cost_per_hour", in.NurseryCostPerHour)
		in.NurseryHoursPerWeek = p.promptDecimal("  Nursery hours per week", "nursery_hours_per_week", in.NurseryHoursPerWeek)
	}

	return in
}
