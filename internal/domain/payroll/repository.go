package payroll

import "context"

// PayrollRepository defines data access methods for payroll records.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	// CreatePayrollRecord returns ErrPayrollRecordAlreadyExists when the
	// (employee, month, year) unique constraint rejects the insert.
	CreatePayrollRecord(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	GetPayrollRecordByID(ctx context.Context, id string, companyID string) (PayrollRecord, error)
	GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int, companyID string) (PayrollRecord, error)
	GetPayrollRecordsByIDs(ctx context.Context, ids []string, companyID string) ([]PayrollRecord, error)
	ListPayrollRecords(ctx context.Context, companyID string, filter PayrollFilter) ([]PayrollRecord, int64, error)
	UpdatePayrollRecord(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	DeletePayrollRecord(ctx context.Context, id string, companyID string) error

	// Aggregations
	GetPayrollSummary(ctx context.Context, companyID string, month, year int) (PayrollSummary, error)
}

// CustomFieldRegistry holds the per-company set of allowed custom field keys.
type CustomFieldRegistry interface {
	ListCustomFields(ctx context.Context, companyID string) ([]CustomFieldDefinition, error)
	ReplaceCustomFields(ctx context.Context, companyID string, fields []CustomFieldDefinition) error
}
