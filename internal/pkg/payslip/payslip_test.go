package payslip

import (
	"bytes"
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	notes := "Includes March commission"
	rec := payroll.PayrollRecord{
		PeriodMonth:       3,
		PeriodYear:        2025,
		BasicSalary:       decimal.NewFromInt(50000),
		Allowances:        payroll.Allowances{payroll.AllowanceOperational: decimal.NewFromInt(2000)},
		Deductions:        payroll.Deductions{payroll.DeductionWorkedDays: decimal.NewFromInt(20), payroll.DeductionTotalDays: decimal.NewFromInt(22)},
		EmployeeStatutory: decimal.NewFromInt(4000),
		GrossPay:          decimal.NewFromInt(52000),
		NetPay:            decimal.NewFromInt(48000),
		Currency:          "USD",
		Notes:             &notes,
	}

	out, err := NewRenderer("en").Render(context.Background(), payroll.SlipDocument{
		CompanyName:  "Acme Corp",
		Record:       rec,
		EmployeeName: "Jane Doe",
		EmployeeCode: "EMP-001",
	})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderer_Render_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer("en").Render(ctx, payroll.SlipDocument{})
	assert.ErrorIs(t, err, context.Canceled)
}
