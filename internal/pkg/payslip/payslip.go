package payslip

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/money"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const ContentType = "application/pdf"

var allowanceLabels = map[string]string{
	payroll.AllowanceOperational:     "Operational",
	payroll.AllowanceWellBeing:       "Well-being",
	payroll.AllowanceUtilityTravel:   "Utility & travel",
	payroll.AllowanceSalesCommission: "Sales commission",
	payroll.AllowanceOther:           "Other allowance",
}

var deductionLabels = map[string]string{
	payroll.DeductionAPIT:           "APIT",
	payroll.DeductionUnpaidLeave:    "Unpaid leave",
	payroll.DeductionLateAttendance: "Late attendance",
	payroll.DeductionOther:          "Other deduction",
}

// Renderer draws A4 payslips with gofpdf.
type Renderer struct {
	format *money.Formatter
}

func NewRenderer(locale string) *Renderer {
	return &Renderer{format: money.NewFormatter(locale)}
}

func (r *Renderer) Render(ctx context.Context, doc payroll.SlipDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := doc.Record
	amount := func(d decimal.Decimal) string {
		return r.format.Format(d, rec.Currency)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s", rec.Period().Label()), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, doc.CompanyName)
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Payslip for %s", rec.Period().Label()))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	line(pdf, "Employee", doc.EmployeeName)
	if doc.EmployeeCode != "" {
		line(pdf, "Employee code", doc.EmployeeCode)
	}
	if doc.Department != "" {
		line(pdf, "Department", doc.Department)
	}
	if worked, ok := rec.Deductions[payroll.DeductionWorkedDays]; ok {
		total := rec.Deductions[payroll.DeductionTotalDays]
		line(pdf, "Days worked", fmt.Sprintf("%s / %s", worked.String(), total.String()))
	}
	pdf.Ln(4)

	section(pdf, "Earnings")
	line(pdf, "Basic salary", amount(rec.BasicSalary))
	for _, key := range payroll.AllowanceKeys {
		if v := rec.Allowances[key]; !v.IsZero() {
			line(pdf, allowanceLabels[key], amount(v))
		}
	}
	if !rec.Bonus.IsZero() {
		line(pdf, "Bonus", amount(rec.Bonus))
	}
	total(pdf, "Gross pay", amount(rec.GrossPay))

	section(pdf, "Deductions")
	line(pdf, "Statutory (employee)", amount(rec.EmployeeStatutory))
	for _, key := range payroll.DeductionKeys {
		if v := rec.Deductions[key]; !v.IsZero() {
			line(pdf, deductionLabels[key], amount(v))
		}
	}
	total(pdf, "Total deductions", amount(rec.TotalDeductions()))

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(95, 10, "Net pay", "T", 0, "L", false, 0, "")
	pdf.CellFormat(95, 10, amount(rec.NetPay), "T", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 5, fmt.Sprintf("Employer contributions: %s / %s",
		amount(rec.EmployerStatutoryA), amount(rec.EmployerStatutoryB)))
	if rec.Notes != nil && *rec.Notes != "" {
		pdf.Ln(5)
		pdf.MultiCell(0, 5, *rec.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render payslip: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
}

func line(pdf *gofpdf.Fpdf, label, value string) {
	pdf.CellFormat(95, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, value, "", 1, "R", false, 0, "")
}

func total(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(95, 7, label, "T", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, value, "T", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.Ln(3)
}
