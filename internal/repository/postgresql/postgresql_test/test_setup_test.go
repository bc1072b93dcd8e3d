package postgresql_test

import (
	"context"
	"fmt"
	"os"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
)

// TestDatabaseSetup wraps a migrated test database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies migrations. It
// returns nil without error when the variable is not set.
func NewTestDatabase(ctx context.Context) (*TestDatabaseSetup, error) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		return nil, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	if err := database.MigratePostgres(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &TestDatabaseSetup{DB: db}, nil
}

// TruncateAllTables removes all payroll data.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tables := []string{
		"payroll_custom_fields",
		"payroll_records",
		"employees",
		"companies",
	}

	for _, table := range tables {
		if _, err := t.DB.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

// SeedCompany inserts a company row.
func (t *TestDatabaseSetup) SeedCompany(ctx context.Context, id, name, currency string) error {
	_, err := t.DB.Exec(ctx,
		`INSERT INTO companies (id, name, currency) VALUES ($1, $2, $3)`,
		id, name, currency)
	return err
}

// SeedEmployee inserts an active permanent employee.
func (t *TestDatabaseSetup) SeedEmployee(ctx context.Context, id, companyID, code, name string, baseSalary string) error {
	_, err := t.DB.Exec(ctx,
		`INSERT INTO employees (id, company_id, employee_code, full_name, email, base_salary)
		 VALUES ($1, $2, $3, $4, $5, $6::numeric)`,
		id, companyID, code, name, code+"@example.test", baseSalary)
	return err
}

func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
