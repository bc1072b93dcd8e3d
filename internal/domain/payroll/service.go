package payroll

import "context"

// PayrollService is the engine's entry point. The company is taken from the
// request context (see requestctx).
type PayrollService interface {
	// Single record
	GenerateOrUpdate(ctx context.Context, req UpsertPayrollRequest) (PayrollRecordResponse, error)
	GetPayrollRecord(ctx context.Context, id string) (PayrollRecordResponse, error)
	ListPayrollRecords(ctx context.Context, filter PayrollFilter) (ListPayrollRecordResponse, error)
	DeletePayrollRecord(ctx context.Context, id string) error

	// Batch and distribution
	GeneratePayroll(ctx context.Context, req GeneratePayrollRequest) (BatchResult, error)
	DistributePayslips(ctx context.Context, req DistributePayslipsRequest) (DistributionResult, error)

	// Summary
	GetPayrollSummary(ctx context.Context, month, year int) (PayrollSummaryResponse, error)

	// Custom fields
	ListCustomFields(ctx context.Context) ([]CustomFieldResponse, error)
	ReplaceCustomFields(ctx context.Context, req ReplaceCustomFieldsRequest) ([]CustomFieldResponse, error)
}

// SlipRenderer renders a payslip document for a computed record.
type SlipRenderer interface {
	Render(ctx context.Context, doc SlipDocument) ([]byte, error)
}

// SlipDocument is everything printed on a payslip.
type SlipDocument struct {
	CompanyName  string
	Record       PayrollRecord
	EmployeeName string
	EmployeeCode string
	Department   string
}
