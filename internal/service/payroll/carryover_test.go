package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInputs(t *testing.T) {
	feb := payroll.NewPeriod(2, 2025)
	previous := &payroll.PayrollRecord{
		Allowances: payroll.Allowances{payroll.AllowanceOperational: dec("2000")},
		Deductions: payroll.Deductions{
			payroll.DeductionAPIT:       dec("300"),
			payroll.DeductionWorkedDays: dec("18"),
			payroll.DeductionTotalDays:  dec("20"),
		},
	}

	tests := []struct {
		name              string
		current           CompensationInputs
		previous          *payroll.PayrollRecord
		wantAllowances    string
		wantDeductions    string
		wantWorkedDays    string
		allowancesCarried bool
		deductionsCarried bool
	}{
		{
			name:              "both empty carries both",
			current:           CompensationInputs{},
			previous:          previous,
			wantAllowances:    "2000",
			wantDeductions:    "300",
			wantWorkedDays:    "18",
			allowancesCarried: true,
			deductionsCarried: true,
		},
		{
			name:              "zero valued maps count as empty",
			current:           CompensationInputs{Allowances: payroll.Allowances{payroll.AllowanceOther: dec("0")}},
			previous:          previous,
			wantAllowances:    "2000",
			wantDeductions:    "300",
			wantWorkedDays:    "18",
			allowancesCarried: true,
			deductionsCarried: true,
		},
		{
			name: "current attendance metadata wins",
			current: CompensationInputs{
				Allowances: payroll.Allowances{payroll.AllowanceOther: dec("50")},
				Deductions: payroll.Deductions{payroll.DeductionWorkedDays: dec("22")},
			},
			previous:          previous,
			wantAllowances:    "50",
			wantDeductions:    "300",
			wantWorkedDays:    "22",
			deductionsCarried: true,
		},
		{
			name: "supplied maps are kept",
			current: CompensationInputs{
				Allowances: payroll.Allowances{payroll.AllowanceOther: dec("50")},
				Deductions: payroll.Deductions{payroll.DeductionOther: dec("10")},
			},
			previous:       previous,
			wantAllowances: "50",
			wantDeductions: "10",
		},
		{
			name:           "no previous record",
			current:        CompensationInputs{},
			previous:       nil,
			wantAllowances: "0",
			wantDeductions: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveInputs(tt.current, tt.previous, feb)

			assert.True(t, dec(tt.wantAllowances).Equal(got.Allowances.Total()), got.Allowances.Total().String())
			assert.True(t, dec(tt.wantDeductions).Equal(got.Deductions.Total()), got.Deductions.Total().String())
			if tt.wantWorkedDays != "" {
				assert.True(t, dec(tt.wantWorkedDays).Equal(got.Deductions[payroll.DeductionWorkedDays]))
			}
			assert.Equal(t, tt.allowancesCarried, got.AllowancesCarried)
			assert.Equal(t, tt.deductionsCarried, got.DeductionsCarried)
			assert.Equal(t, feb, got.PreviousPeriod)
		})
	}
}

func TestResolveInputs_DoesNotAliasPreviousMaps(t *testing.T) {
	previous := &payroll.PayrollRecord{
		Allowances: payroll.Allowances{payroll.AllowanceOperational: dec("2000")},
	}

	got := resolveInputs(CompensationInputs{}, previous, payroll.NewPeriod(2, 2025))
	got.Allowances[payroll.AllowanceOperational] = dec("1")

	assert.True(t, dec("2000").Equal(previous.Allowances[payroll.AllowanceOperational]))
}

type finderFunc func(ctx context.Context, employeeID string, month, year int, companyID string) (payroll.PayrollRecord, error)

func (f finderFunc) GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int, companyID string) (payroll.PayrollRecord, error) {
	return f(ctx, employeeID, month, year, companyID)
}

func TestResolveCarryOver_LooksUpPreviousPeriod(t *testing.T) {
	var gotMonth, gotYear int
	finder := finderFunc(func(ctx context.Context, employeeID string, month, year int, companyID string) (payroll.PayrollRecord, error) {
		gotMonth, gotYear = month, year
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	})

	result, err := ResolveCarryOver(context.Background(), finder, "company-1", "emp-1", payroll.NewPeriod(1, 2025), CompensationInputs{})
	require.NoError(t, err)

	assert.Equal(t, 12, gotMonth)
	assert.Equal(t, 2024, gotYear)
	assert.False(t, result.AllowancesCarried)
	assert.False(t, result.DeductionsCarried)
}

func TestResolveCarryOver_SkipsLookupWhenBothSupplied(t *testing.T) {
	finder := finderFunc(func(context.Context, string, int, int, string) (payroll.PayrollRecord, error) {
		t.Fatal("previous period should not be read")
		return payroll.PayrollRecord{}, nil
	})

	current := CompensationInputs{
		Allowances: payroll.Allowances{payroll.AllowanceOther: dec("1")},
		Deductions: payroll.Deductions{payroll.DeductionOther: dec("1")},
	}
	result, err := ResolveCarryOver(context.Background(), finder, "company-1", "emp-1", payroll.NewPeriod(3, 2025), current)
	require.NoError(t, err)
	assert.Equal(t, current, result.CompensationInputs)
}

func TestResolveCarryOver_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	finder := finderFunc(func(context.Context, string, int, int, string) (payroll.PayrollRecord, error) {
		return payroll.PayrollRecord{}, boom
	})

	_, err := ResolveCarryOver(context.Background(), finder, "company-1", "emp-1", payroll.NewPeriod(3, 2025), CompensationInputs{})
	assert.ErrorIs(t, err, boom)
}
