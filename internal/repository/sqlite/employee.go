package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/shopspring/decimal"
)

const employeeColumns = `id, company_id, employee_code, full_name, email, department, position_name,
	employment_type, employment_status, base_salary`

type EmployeeStore struct {
	db *sql.DB
}

func NewEmployeeStore(db *sql.DB) *EmployeeStore {
	return &EmployeeStore{db: db}
}

// Create inserts an employee; used to seed local databases.
func (s *EmployeeStore) Create(ctx context.Context, emp employee.Employee) error {
	now := formatTime(timeNow())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		emp.ID, emp.CompanyID, emp.EmployeeCode, emp.FullName, emp.Email, emp.Department, emp.PositionName,
		string(emp.EmploymentType), string(emp.EmploymentStatus), nullableDecimal(emp.BaseSalary), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (s *EmployeeStore) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	emp, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}
	return emp, nil
}

func (s *EmployeeStore) GetByIDs(ctx context.Context, ids []string, companyID string) ([]employee.Employee, error) {
	if len(ids) == 0 {
		return []employee.Employee{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE company_id = ? AND id IN (%s) ORDER BY employee_code`,
		employeeColumns, placeholders(len(ids)))
	args := append([]interface{}{companyID}, stringArgs(ids)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	return collectEmployees(rows)
}

func (s *EmployeeStore) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE company_id = ? AND employment_status = ? ORDER BY employee_code`,
		companyID, string(employee.EmploymentStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get active employees: %w", err)
	}
	return collectEmployees(rows)
}

func scanEmployee(row rowScanner) (employee.Employee, error) {
	var emp employee.Employee
	var email, department, position sql.NullString
	var employmentType, employmentStatus string
	var baseSalary decimal.NullDecimal

	if err := row.Scan(
		&emp.ID, &emp.CompanyID, &emp.EmployeeCode, &emp.FullName, &email, &department, &position,
		&employmentType, &employmentStatus, &baseSalary,
	); err != nil {
		return employee.Employee{}, err
	}

	emp.Email = nullableString(email)
	emp.Department = nullableString(department)
	emp.PositionName = nullableString(position)
	emp.EmploymentType = employee.EmploymentType(employmentType)
	emp.EmploymentStatus = employee.EmploymentStatus(employmentStatus)
	if baseSalary.Valid {
		salary := baseSalary.Decimal
		emp.BaseSalary = &salary
	}
	return emp, nil
}

func collectEmployees(rows *sql.Rows) ([]employee.Employee, error) {
	defer rows.Close()

	employees := make([]employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}
