package payroll

import "errors"

var (
	ErrPayrollRecordNotFound      = errors.New("payroll record not found")
	ErrPayrollRecordAlreadyExists = errors.New("payroll record already exists for this period")
	ErrDuplicatePeriod            = errors.New("payroll record already generated for this period")
	ErrEmployeeNotFound           = errors.New("employee not found")
	ErrCrossTenantAccess          = errors.New("employee belongs to another company")
	ErrEmployeeHasNoBaseSalary    = errors.New("employee has no base salary configured")
	ErrCompanyNotFound            = errors.New("company not found")
	ErrCompanyIDRequired          = errors.New("company id is required")
	ErrSlipNotFound               = errors.New("payslip artifact not found")
	ErrEmployeeHasNoEmail         = errors.New("employee has no email address")
	ErrRecordNotProcessed         = errors.New("payroll record is not processed")
	ErrEmailTransport             = errors.New("failed to send payslip email")
	ErrUnknownCustomField         = errors.New("custom field is not defined for this company")
)

// Field-level messages reported through validator.ValidationErrors.
var (
	errCurrencyRequired = errors.New("is required")
	errCurrencyUnknown  = errors.New("must be a valid ISO 4217 currency code")
	errCountryUnknown   = errors.New("must be a valid ISO 3166 region code")
)
