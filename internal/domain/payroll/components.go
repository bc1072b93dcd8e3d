package payroll

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Allowance component keys.
const (
	AllowanceOperational     = "operational"
	AllowanceWellBeing       = "wellBeing"
	AllowanceUtilityTravel   = "utilityTravel"
	AllowanceSalesCommission = "salesCommission"
	AllowanceOther           = "other"
)

// Deduction component keys.
const (
	DeductionAPIT           = "apit"
	DeductionUnpaidLeave    = "unpaidLeave"
	DeductionLateAttendance = "lateAttendance"
	DeductionOther          = "other"

	// Attendance metadata carried alongside deductions; never summed.
	DeductionWorkedDays = "workedDays"
	DeductionTotalDays  = "totalDays"
)

var AllowanceKeys = []string{
	AllowanceOperational,
	AllowanceWellBeing,
	AllowanceUtilityTravel,
	AllowanceSalesCommission,
	AllowanceOther,
}

var DeductionKeys = []string{
	DeductionAPIT,
	DeductionUnpaidLeave,
	DeductionLateAttendance,
	DeductionOther,
}

var deductionMetadataKeys = []string{DeductionWorkedDays, DeductionTotalDays}

// Allowances maps allowance component keys to amounts.
type Allowances map[string]decimal.Decimal

// Deductions maps manual deduction keys to amounts, plus optional attendance metadata.
type Deductions map[string]decimal.Decimal

// Total sums every allowance component.
func (a Allowances) Total() decimal.Decimal {
	total := decimal.Zero
	for _, key := range AllowanceKeys {
		total = total.Add(a[key])
	}
	return total
}

// IsEmpty reports whether the map is absent or every value is zero.
func (a Allowances) IsEmpty() bool {
	for _, v := range a {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// Normalized returns a copy holding every known key, zero-filled.
func (a Allowances) Normalized() Allowances {
	out := make(Allowances, len(AllowanceKeys))
	for _, key := range AllowanceKeys {
		out[key] = a[key]
	}
	return out
}

// Clone returns a shallow copy; nil stays nil.
func (a Allowances) Clone() Allowances {
	if a == nil {
		return nil
	}
	out := make(Allowances, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Validate rejects unknown keys and negative amounts.
func (a Allowances) Validate(field string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	for _, key := range sortedKeys(a) {
		if !validator.IsInSlice(key, AllowanceKeys) {
			errs.Add(fmt.Sprintf("%s.%s", field, key), "unknown allowance component")
			continue
		}
		if a[key].IsNegative() {
			errs.Add(fmt.Sprintf("%s.%s", field, key), "must be non-negative")
		}
	}
	return errs
}

// Total sums the manual deduction components. Metadata keys are excluded.
func (d Deductions) Total() decimal.Decimal {
	total := decimal.Zero
	for _, key := range DeductionKeys {
		total = total.Add(d[key])
	}
	return total
}

// IsEmpty reports whether the map is absent or every monetary value is zero.
// Attendance metadata does not make a deduction map non-empty.
func (d Deductions) IsEmpty() bool {
	for _, key := range DeductionKeys {
		if !d[key].IsZero() {
			return false
		}
	}
	return true
}

// Normalized returns a copy holding every monetary key, zero-filled, and any
// metadata that was supplied.
func (d Deductions) Normalized() Deductions {
	out := make(Deductions, len(DeductionKeys)+len(deductionMetadataKeys))
	for _, key := range DeductionKeys {
		out[key] = d[key]
	}
	for _, key := range deductionMetadataKeys {
		if v, ok := d[key]; ok {
			out[key] = v
		}
	}
	return out
}

// Clone returns a shallow copy; nil stays nil.
func (d Deductions) Clone() Deductions {
	if d == nil {
		return nil
	}
	out := make(Deductions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// WithMetadataFrom copies workedDays/totalDays from src when d does not carry them.
func (d Deductions) WithMetadataFrom(src Deductions) Deductions {
	out := d.Clone()
	if out == nil {
		out = make(Deductions)
	}
	for _, key := range deductionMetadataKeys {
		if _, ok := out[key]; ok {
			continue
		}
		if v, ok := src[key]; ok {
			out[key] = v
		}
	}
	return out
}

// Validate rejects unknown keys, negative values and inconsistent day counts.
func (d Deductions) Validate(field string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	for _, key := range sortedKeys(d) {
		known := validator.IsInSlice(key, DeductionKeys) || validator.IsInSlice(key, deductionMetadataKeys)
		if !known {
			errs.Add(fmt.Sprintf("%s.%s", field, key), "unknown deduction component")
			continue
		}
		if d[key].IsNegative() {
			errs.Add(fmt.Sprintf("%s.%s", field, key), "must be non-negative")
		}
	}

	worked, hasWorked := d[DeductionWorkedDays]
	total, hasTotal := d[DeductionTotalDays]
	if hasWorked && hasTotal && worked.GreaterThan(total) {
		errs.Add(fmt.Sprintf("%s.%s", field, DeductionWorkedDays), "must not exceed totalDays")
	}
	return errs
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
