package employee

import "context"

type EmployeeRepository interface {
	// GetByID does not filter by company; callers compare CompanyID themselves
	// so that cross-company lookups can be told apart from missing rows.
	GetByID(ctx context.Context, id string) (Employee, error)
	GetByIDs(ctx context.Context, ids []string, companyID string) ([]Employee, error)
	GetActiveByCompanyID(ctx context.Context, companyID string) ([]Employee, error)
}
