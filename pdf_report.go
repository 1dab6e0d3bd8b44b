package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// pdfText converts UTF-8 text to PDF-safe encoding
// The £ sign in UTF-8 is 0xC2 0xA3, but PDF standard fonts expect Latin-1 (just 0xA3)
func pdfText(s string) string {
	return strings.ReplaceAll(s, "£", "\xa3")
}

// FormatMoneyPDF formats money for PDF output (handles £ encoding)
func FormatMoneyPDF(amount decimal.Decimal) string {
	return pdfText(FormatMoneyPence(amount))
}

// PDFBreakdownReport renders one calculation as a printable statement
type PDFBreakdownReport struct {
	pdf       *fpdf.Fpdf
	inputs    TaxpayerInputs
	result    DeductionResult
	warnings  []Warning
	sweep     []SweepPoint
	generated time.Time
}

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// GenerateBreakdownPDF creates a PDF statement for a result. The sweep is
// optional; when present it is added as a final table.
func GenerateBreakdownPDF(inputs TaxpayerInputs, result DeductionResult, warnings []Warning, sweep []SweepPoint) ([]byte, error) {
	report := &PDFBreakdownReport{
		pdf:       fpdf.New("P", "mm", "A4", ""),
		inputs:    inputs.Clamped(),
		result:    result,
		warnings:  warnings,
		sweep:     sweep,
		generated: time.Now(),
	}

	report.pdf.SetMargins(marginLeft, marginTop, marginRight)
	report.pdf.SetAutoPageBreak(true, marginBottom)
	report.pdf.SetTitle("Take-home pay "+result.TaxYear, false)
	report.pdf.SetFooterFunc(report.addFooter)

	report.pdf.AddPage()
	report.addTitle()
	report.addInputs()
	report.addBreakdown()
	report.addChildcare()
	report.addWarnings()
	if len(sweep) > 0 {
		report.addSweep()
	}

	if err := report.pdf.Error(); err != nil {
		return nil, fmt.Errorf("build pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := report.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFBreakdownReport) addTitle() {
	r.pdf.SetFont("Arial", "B", 22)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 12, "Take-Home Pay Breakdown", "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "", 12)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.CellFormat(contentWidth, 8, "Tax year "+r.result.TaxYear, "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.CellFormat(contentWidth, 6, fmt.Sprintf("Generated: %s", r.generated.Format("2 January 2006")), "", 1, "C", false, 0, "")
	r.pdf.Ln(6)
}

func (r *PDFBreakdownReport) addInputs() {
	r.drawSectionHeader("Your Inputs")
	rows := [][2]string{
		{"Salary", FormatMoneyPDF(r.inputs.Salary)},
		{"Bonus", FormatMoneyPDF(r.inputs.Bonus)},
		{"Employee pension", r.inputs.EmployeePensionPercent.String() + "%"},
		{"Employer pension", r.inputs.EmployerPensionPercent.String() + "%"},
		{"Electric car sacrifice", FormatMoneyPDF(r.inputs.ElectricCarSacrifice)},
		{"Bike to work sacrifice", FormatMoneyPDF(r.inputs.BikeToWorkSacrifice)},
		{"Nursery cost per hour", FormatMoneyPDF(r.inputs.NurseryCostPerHour)},
		{"Nursery hours per week", r.inputs.NurseryHoursPerWeek.String()},
		{"Children 9 months - 3 years", fmt.Sprint(r.inputs.ChildrenYoung)},
		{"Children 3 - 4 years", fmt.Sprint(r.inputs.ChildrenMid)},
	}
	r.drawKeyValueRows(rows, false)
	r.pdf.Ln(4)
}

func (r *PDFBreakdownReport) addBreakdown() {
	r.drawSectionHeader("Annual Breakdown")
	res := r.result
	rows := [][2]string{
		{"Gross income", FormatMoneyPDF(res.GrossIncome)},
		{"Employee pension", FormatMoneyPDF(res.EmployeePension.Neg())},
		{"Salary sacrifice", FormatMoneyPDF(res.SalarySacrifice.Neg())},
		{"Taxable income", FormatMoneyPDF(res.TaxableIncome)},
		{"Personal Allowance applied", FormatMoneyPDF(res.PersonalAllowance)},
		{"Income tax", FormatMoneyPDF(res.IncomeTax.Neg())},
		{"Marginal tax rate", FormatPercent(res.MarginalTaxRate)},
		{"National Insurance", FormatMoneyPDF(res.NationalInsurance.Neg())},
		{"Nursery cost", FormatMoneyPDF(res.NurseryCost.Neg())},
	}
	r.drawKeyValueRows(rows, false)
	r.drawKeyValueRows([][2]string{
		{"Take-home pay (year)", FormatMoneyPDF(res.TakeHome)},
		{"Take-home pay (month)", FormatMoneyPDF(res.MonthlyTakeHome())},
	}, true)

	r.pdf.SetFont("Arial", "I", 9)
	r.pdf.SetTextColor(100, 100, 100)
	r.pdf.CellFormat(contentWidth, 6,
		pdfText(fmt.Sprintf("Employer pension contribution of %s is paid on top and not deducted.",
			FormatMoneyPence(res.EmployerPension))), "", 1, "L", false, 0, "")
	r.pdf.Ln(4)
}

func (r *PDFBreakdownReport) addChildcare() {
	if r.result.Young.Children+r.result.Mid.Children == 0 {
		return
	}
	r.drawSectionHeader("Childcare")

	headers := []string{"Age group", "Children", "Free hrs/wk", "Paid hrs/wk", "Annual cost"}
	widths := []float64{60, 25, 30, 30, 35}
	r.drawTableHeader(headers, widths)

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(50, 50, 50)
	for _, cohort := range []CohortEntitlement{r.result.Young, r.result.Mid} {
		cells := []string{
			cohort.Name,
			fmt.Sprint(cohort.Children),
			cohort.FreeHoursPerWeek.String(),
			cohort.PaidHoursPerWeek.String(),
			FormatMoneyPDF(cohort.AnnualCost),
		}
		r.drawTableRow(cells, widths)
	}

	status := "Income is below the free-hours limit."
	if !r.result.BelowChildcareThreshold {
		status = "Income is at or above the free-hours limit; only universal hours apply."
	}
	r.pdf.SetFont("Arial", "I", 9)
	r.pdf.CellFormat(contentWidth, 6, status, "", 1, "L", false, 0, "")
	r.pdf.Ln(4)
}

func (r *PDFBreakdownReport) addWarnings() {
	if len(r.warnings) == 0 {
		return
	}
	r.drawSectionHeader("Warnings")
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(180, 80, 20)
	for _, w := range r.warnings {
		r.pdf.MultiCell(contentWidth, 5, pdfText("- "+w.Message), "", "L", false)
	}
	r.pdf.Ln(4)
}

func (r *PDFBreakdownReport) addSweep() {
	r.pdf.AddPage()
	r.drawSectionHeader("Salary Sweep")

	headers := []string{"Salary", "Tax", "NI", "Nursery", "Take-home", "Marginal"}
	widths := []float64{32, 30, 28, 30, 34, 26}
	r.drawTableHeader(headers, widths)

	r.pdf.SetFont("Arial", "", 8)
	r.pdf.SetTextColor(50, 50, 50)
	for _, p := range r.sweep {
		r.drawTableRow([]string{
			FormatMoneyPDF(p.Salary),
			FormatMoneyPDF(p.Result.IncomeTax),
			FormatMoneyPDF(p.Result.NationalInsurance),
			FormatMoneyPDF(p.Result.NurseryCost),
			FormatMoneyPDF(p.Result.TakeHome),
			FormatPercent(p.MarginalDeduction),
		}, widths)
	}
}

func (r *PDFBreakdownReport) addFooter() {
	r.pdf.SetY(-15)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.MultiCell(contentWidth, 4, Disclaimer, "", "C", false)
}

func (r *PDFBreakdownReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 14)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 9, title, "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(3)
}

func (r *PDFBreakdownReport) drawKeyValueRows(rows [][2]string, emphasise bool) {
	style := ""
	if emphasise {
		style = "B"
		r.pdf.SetFillColor(230, 245, 235)
	} else {
		r.pdf.SetFillColor(245, 247, 250)
	}
	r.pdf.SetFont("Arial", style, 10)
	r.pdf.SetTextColor(50, 50, 50)
	for i, row := range rows {
		fill := emphasise || i%2 == 0
		r.pdf.CellFormat(contentWidth*0.6, 6, row[0], "", 0, "L", fill, 0, "")
		r.pdf.CellFormat(contentWidth*0.4, 6, row[1], "", 1, "R", fill, 0, "")
	}
}

func (r *PDFBreakdownReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 9)

	for i, header := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, header, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
	r.pdf.SetTextColor(50, 50, 50)
}

func (r *PDFBreakdownReport) drawTableRow(cells []string, widths []float64) {
	for i, cell := range cells {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, cell, "1", 0, align, false, 0, "")
	}
	r.pdf.Ln(-1)
}
