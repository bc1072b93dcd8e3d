package payroll

import (
	"fmt"
	"regexp"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== PAYROLL RECORD DTOs ==========

// UpsertPayrollRequest generates or updates the record of one employee for one period.
// A nil map means "not supplied"; a non-nil CustomFields replaces the stored fields.
type UpsertPayrollRequest struct {
	EmployeeID   string                 `json:"employee_id" validate:"required"`
	PeriodMonth  int                    `json:"period_month"`
	PeriodYear   int                    `json:"period_year"`
	BasicSalary  *decimal.Decimal       `json:"basic_salary"`
	Allowances   Allowances             `json:"allowances,omitempty"`
	Deductions   Deductions             `json:"deductions,omitempty"`
	Bonus        decimal.Decimal        `json:"bonus"`
	Country      string                 `json:"country,omitempty"`
	Currency     string                 `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes        *string                `json:"notes,omitempty" validate:"omitempty,max=2000"`
	SlipPath     *string                `json:"slip_path,omitempty"`
	CustomFields map[string]interface{} `json:"custom_fields,omitempty"`
	CarryOver    CarryOverMode          `json:"carry_over,omitempty" validate:"omitempty,oneof=auto never"`
}

func (r *UpsertPayrollRequest) Period() Period {
	return Period{Month: r.PeriodMonth, Year: r.PeriodYear}
}

func (r *UpsertPayrollRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	errs = append(errs, r.Period().Validate()...)
	if r.BasicSalary == nil {
		errs.Add("basic_salary", "is required")
	} else if r.BasicSalary.IsNegative() {
		errs.Add("basic_salary", "must be non-negative")
	}
	if r.Bonus.IsNegative() {
		errs.Add("bonus", "must be non-negative")
	}
	errs = append(errs, r.Allowances.Validate("allowances")...)
	errs = append(errs, r.Deductions.Validate("deductions")...)
	errs = append(errs, ValidateCustomFieldValues(r.CustomFields)...)

	return errs.Err()
}

// EffectiveCarryOver returns the requested mode, defaulting to CarryOverAuto.
func (r *UpsertPayrollRequest) EffectiveCarryOver() CarryOverMode {
	if r.CarryOver == "" {
		return CarryOverAuto
	}
	return r.CarryOver
}

type GeneratePayrollRequest struct {
	PeriodMonth int      `json:"period_month"`
	PeriodYear  int      `json:"period_year"`
	EmployeeIDs []string `json:"employee_ids,omitempty"` // Empty = all active employees
}

func (r *GeneratePayrollRequest) Validate() error {
	errs := NewPeriod(r.PeriodMonth, r.PeriodYear).Validate()
	for i, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs.Add(fmt.Sprintf("employee_ids[%d]", i), "must not be empty")
		}
	}
	return errs.Err()
}

// DistributePayslipsRequest selects records either by id or by period.
type DistributePayslipsRequest struct {
	RecordIDs   []string `json:"record_ids,omitempty"`
	PeriodMonth *int     `json:"period_month,omitempty"`
	PeriodYear  *int     `json:"period_year,omitempty"`
	CC          []string `json:"cc,omitempty" validate:"omitempty,dive,email"`
}

func (r *DistributePayslipsRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	if len(r.RecordIDs) == 0 {
		if r.PeriodMonth == nil || r.PeriodYear == nil {
			errs.Add("record_ids", "record_ids or period_month and period_year are required")
		} else {
			errs = append(errs, NewPeriod(*r.PeriodMonth, *r.PeriodYear).Validate()...)
		}
	}
	return errs.Err()
}

type PayrollFilter struct {
	PeriodMonth *int    `json:"period_month,omitempty"`
	PeriodYear  *int    `json:"period_year,omitempty"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	IsProcessed *bool   `json:"is_processed,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
	SortBy      string  `json:"sort_by,omitempty"`
	SortOrder   string  `json:"sort_order,omitempty"`
}

// Normalize applies default pagination.
func (f *PayrollFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

func (f PayrollFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type PayrollRecordResponse struct {
	ID                    string                     `json:"id"`
	CompanyID             string                     `json:"company_id"`
	EmployeeID            string                     `json:"employee_id"`
	EmployeeName          string                     `json:"employee_name,omitempty"`
	EmployeeCode          string                     `json:"employee_code,omitempty"`
	Department            *string                    `json:"department,omitempty"`
	PeriodMonth           int                        `json:"period_month"`
	PeriodYear            int                        `json:"period_year"`
	BasicSalary           decimal.Decimal            `json:"basic_salary"`
	Allowances            map[string]decimal.Decimal `json:"allowances"`
	Deductions            map[string]decimal.Decimal `json:"deductions"`
	Bonus                 decimal.Decimal            `json:"bonus"`
	TotalAllowances       decimal.Decimal            `json:"total_allowances"`
	TotalManualDeductions decimal.Decimal            `json:"total_manual_deductions"`
	EmployeeStatutory     decimal.Decimal            `json:"employee_statutory"`
	EmployerStatutoryA    decimal.Decimal            `json:"employer_statutory_a"`
	EmployerStatutoryB    decimal.Decimal            `json:"employer_statutory_b"`
	TotalDeductions       decimal.Decimal            `json:"total_deductions"`
	GrossPay              decimal.Decimal            `json:"gross_pay"`
	NetPay                decimal.Decimal            `json:"net_pay"`
	Country               string                     `json:"country,omitempty"`
	Currency              string                     `json:"currency"`
	Notes                 *string                    `json:"notes,omitempty"`
	SlipPath              *string                    `json:"slip_path,omitempty"`
	CustomFields          map[string]interface{}     `json:"custom_fields,omitempty"`
	IsProcessed           bool                       `json:"is_processed"`
	PayDate               *string                    `json:"pay_date,omitempty"`
	CreatedAt             string                     `json:"created_at"`
	UpdatedAt             string                     `json:"updated_at"`
}

type ListPayrollRecordResponse struct {
	Data       []PayrollRecordResponse `json:"data"`
	TotalCount int64                   `json:"total_count"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
}

// BatchFailure explains why one employee was not generated.
type BatchFailure struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

type BatchResult struct {
	PeriodMonth    int            `json:"period_month"`
	PeriodYear     int            `json:"period_year"`
	ProcessedCount int            `json:"processed_count"`
	FailedCount    int            `json:"failed_count"`
	Failures       []BatchFailure `json:"failures,omitempty"`
}

type DistributionResult struct {
	SentCount    int `json:"sent_count"`
	SkippedCount int `json:"skipped_count"`
	FailedCount  int `json:"failed_count"`
}

type PayrollSummaryResponse struct {
	PeriodMonth             int             `json:"period_month"`
	PeriodYear              int             `json:"period_year"`
	TotalEmployees          int64           `json:"total_employees"`
	ProcessedCount          int64           `json:"processed_count"`
	TotalBasicSalary        decimal.Decimal `json:"total_basic_salary"`
	TotalAllowances         decimal.Decimal `json:"total_allowances"`
	TotalManualDeductions   decimal.Decimal `json:"total_manual_deductions"`
	TotalEmployeeStatutory  decimal.Decimal `json:"total_employee_statutory"`
	TotalEmployerStatutoryA decimal.Decimal `json:"total_employer_statutory_a"`
	TotalEmployerStatutoryB decimal.Decimal `json:"total_employer_statutory_b"`
	TotalGrossPay           decimal.Decimal `json:"total_gross_pay"`
	TotalNetPay             decimal.Decimal `json:"total_net_pay"`
	AverageBasicSalary      decimal.Decimal `json:"average_basic_salary"`
}

// ========== CUSTOM FIELD DTOs ==========

var customFieldKeyRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

type CustomFieldInput struct {
	Key   string `json:"key" validate:"required"`
	Label string `json:"label" validate:"required,max=255"`
}

type ReplaceCustomFieldsRequest struct {
	Fields []CustomFieldInput `json:"fields" validate:"dive"`
}

func (r *ReplaceCustomFieldsRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	seen := make(map[string]bool, len(r.Fields))
	for i, f := range r.Fields {
		field := fmt.Sprintf("fields[%d].key", i)
		if f.Key != "" && !customFieldKeyRegex.MatchString(f.Key) {
			errs.Add(field, "must start with a letter and contain only letters, digits or underscores")
		}
		if seen[f.Key] {
			errs.Add(field, "is duplicated")
		}
		seen[f.Key] = true
	}
	return errs.Err()
}

type CustomFieldResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ValidateCustomFieldValues accepts only scalar JSON values.
func ValidateCustomFieldValues(fields map[string]interface{}) validator.ValidationErrors {
	var errs validator.ValidationErrors
	for key, value := range fields {
		switch value.(type) {
		case nil, string, bool, float64, int, int64:
		default:
			errs.Add("custom_fields."+key, "must be a string, number or boolean")
		}
	}
	return errs
}
