package payroll

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
)

// PeriodRecordFinder looks up the record of one employee for one period.
type PeriodRecordFinder interface {
	GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int, companyID string) (payroll.PayrollRecord, error)
}

// CompensationInputs are the allowance and deduction maps fed to the calculator.
type CompensationInputs struct {
	Allowances payroll.Allowances
	Deductions payroll.Deductions
}

// BothEmpty reports whether neither map carries a non-zero amount.
func (in CompensationInputs) BothEmpty() bool {
	return in.Allowances.IsEmpty() && in.Deductions.IsEmpty()
}

// CarryOverResult is the resolved input plus which maps came from the previous period.
type CarryOverResult struct {
	CompensationInputs
	AllowancesCarried bool
	DeductionsCarried bool
	PreviousPeriod    payroll.Period
}

// ResolveCarryOver fills empty maps from the record of the period before p.
// Allowances and deductions are resolved independently. A missing previous
// record leaves empty maps empty.
func ResolveCarryOver(ctx context.Context, finder PeriodRecordFinder, companyID, employeeID string, p payroll.Period, current CompensationInputs) (CarryOverResult, error) {
	result := CarryOverResult{CompensationInputs: current, PreviousPeriod: p.Previous()}
	if !current.Allowances.IsEmpty() && !current.Deductions.IsEmpty() {
		return result, nil
	}

	prev := result.PreviousPeriod
	previous, err := finder.GetPayrollRecordByEmployeePeriod(ctx, employeeID, prev.Month, prev.Year, companyID)
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollRecordNotFound) {
			return result, nil
		}
		return CarryOverResult{}, err
	}

	return resolveInputs(current, &previous, prev), nil
}

// resolveInputs is the pure half of ResolveCarryOver.
func resolveInputs(current CompensationInputs, previous *payroll.PayrollRecord, prev payroll.Period) CarryOverResult {
	result := CarryOverResult{CompensationInputs: current, PreviousPeriod: prev}
	if previous == nil {
		return result
	}

	if current.Allowances.IsEmpty() && !previous.Allowances.IsEmpty() {
		result.Allowances = previous.Allowances.Clone()
		result.AllowancesCarried = true
	}

	if current.Deductions.IsEmpty() && !previous.Deductions.IsEmpty() {
		// amounts come from the previous period, attendance metadata of the
		// current call wins over the previous one
		resolved := current.Deductions.WithMetadataFrom(previous.Deductions)
		for _, key := range payroll.DeductionKeys {
			if v, ok := previous.Deductions[key]; ok {
				resolved[key] = v
			}
		}
		result.Deductions = resolved
		result.DeductionsCarried = true
	}

	return result
}
