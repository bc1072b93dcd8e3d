package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const uniquePayrollPeriod = "uk_payroll_records_employee_period"

const payrollRecordColumns = `pr.id, pr.company_id, pr.employee_id, pr.period_month, pr.period_year,
		pr.basic_salary, pr.allowances, pr.deductions, pr.bonus,
		pr.total_allowances, pr.total_manual_deductions, pr.employee_statutory,
		pr.employer_statutory_a, pr.employer_statutory_b, pr.gross_pay, pr.net_pay,
		pr.country, pr.currency, pr.notes, pr.slip_path, pr.custom_fields,
		pr.is_processed, pr.pay_date, pr.created_at, pr.updated_at`

const payrollRecordEmployeeColumns = payrollRecordColumns + `,
		e.full_name, e.employee_code, e.department`

var payrollSortColumns = map[string][]string{
	"created_at":    {"pr.created_at"},
	"period":        {"pr.period_year", "pr.period_month"},
	"employee_name": {"e.full_name"},
	"gross_pay":     {"pr.gross_pay"},
	"net_pay":       {"pr.net_pay"},
}

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== RECORDS ==========

func (r *payrollRepository) CreatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	docs, err := encodeRecordDocuments(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	query := `
		INSERT INTO payroll_records AS pr (
			id, company_id, employee_id, period_month, period_year,
			basic_salary, allowances, deductions, bonus,
			total_allowances, total_manual_deductions, employee_statutory,
			employer_statutory_a, employer_statutory_b, gross_pay, net_pay,
			country, currency, notes, slip_path, custom_fields, is_processed, pay_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING ` + payrollRecordColumns

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query,
		record.ID, record.CompanyID, record.EmployeeID, record.PeriodMonth, record.PeriodYear,
		record.BasicSalary, docs.allowances, docs.deductions, record.Bonus,
		record.TotalAllowances, record.TotalManualDeductions, record.EmployeeStatutory,
		record.EmployerStatutoryA, record.EmployerStatutoryB, record.GrossPay, record.NetPay,
		record.Country, record.Currency, record.Notes, record.SlipPath, docs.customFields, record.IsProcessed, record.PayDate,
	), false)
	if err != nil {
		if isUniqueViolation(err, uniquePayrollPeriod) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) GetPayrollRecordByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + payrollRecordEmployeeColumns + `
		FROM payroll_records pr
		JOIN employees e ON pr.employee_id = e.id
		WHERE pr.id = $1 AND pr.company_id = $2
	`

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, id, companyID), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int, companyID string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + payrollRecordColumns + `
		FROM payroll_records pr
		WHERE pr.employee_id = $1 AND pr.period_month = $2 AND pr.period_year = $3 AND pr.company_id = $4
	`

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, employeeID, month, year, companyID), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) GetPayrollRecordsByIDs(ctx context.Context, ids []string, companyID string) ([]payroll.PayrollRecord, error) {
	if len(ids) == 0 {
		return []payroll.PayrollRecord{}, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + payrollRecordEmployeeColumns + `
		FROM payroll_records pr
		JOIN employees e ON pr.employee_id = e.id
		WHERE pr.id = ANY($1) AND pr.company_id = $2
		ORDER BY e.full_name, pr.id
	`

	rows, err := q.Query(ctx, query, ids, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payroll records: %w", err)
	}
	return collectPayrollRecords(rows)
}

func (r *payrollRepository) ListPayrollRecords(ctx context.Context, companyID string, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM payroll_records pr
		JOIN employees e ON pr.employee_id = e.id
		WHERE pr.company_id = $1
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.PeriodMonth != nil {
		baseQuery += fmt.Sprintf(" AND pr.period_month = $%d", argIdx)
		args = append(args, *filter.PeriodMonth)
		argIdx++
	}
	if filter.PeriodYear != nil {
		baseQuery += fmt.Sprintf(" AND pr.period_year = $%d", argIdx)
		args = append(args, *filter.PeriodYear)
		argIdx++
	}
	if filter.EmployeeID != nil {
		baseQuery += fmt.Sprintf(" AND pr.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.IsProcessed != nil {
		baseQuery += fmt.Sprintf(" AND pr.is_processed = $%d", argIdx)
		args = append(args, *filter.IsProcessed)
		argIdx++
	}

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	filter.Normalize()
	selectQuery := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, payrollRecordEmployeeColumns, baseQuery, orderClause(filter.SortBy, filter.SortOrder), argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	records, err := collectPayrollRecords(rows)
	if err != nil {
		return nil, 0, err
	}

	return records, totalCount, nil
}

func (r *payrollRepository) UpdatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	docs, err := encodeRecordDocuments(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	query := `
		UPDATE payroll_records AS pr SET
			basic_salary = $3, allowances = $4, deductions = $5, bonus = $6,
			total_allowances = $7, total_manual_deductions = $8, employee_statutory = $9,
			employer_statutory_a = $10, employer_statutory_b = $11, gross_pay = $12, net_pay = $13,
			country = $14, currency = $15, notes = $16, slip_path = $17, custom_fields = $18,
			is_processed = $19, pay_date = $20, updated_at = NOW()
		WHERE pr.id = $1 AND pr.company_id = $2
		RETURNING ` + payrollRecordColumns

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query,
		record.ID, record.CompanyID,
		record.BasicSalary, docs.allowances, docs.deductions, record.Bonus,
		record.TotalAllowances, record.TotalManualDeductions, record.EmployeeStatutory,
		record.EmployerStatutoryA, record.EmployerStatutoryB, record.GrossPay, record.NetPay,
		record.Country, record.Currency, record.Notes, record.SlipPath, docs.customFields,
		record.IsProcessed, record.PayDate,
	), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to update payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) DeletePayrollRecord(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_records WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete payroll record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayrollRecordNotFound
	}
	return nil
}

// ========== SUMMARY ==========

func (r *payrollRepository) GetPayrollSummary(ctx context.Context, companyID string, month, year int) (payroll.PayrollSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_processed),
			COALESCE(SUM(basic_salary), 0),
			COALESCE(SUM(total_allowances), 0),
			COALESCE(SUM(total_manual_deductions), 0),
			COALESCE(SUM(employee_statutory), 0),
			COALESCE(SUM(employer_statutory_a), 0),
			COALESCE(SUM(employer_statutory_b), 0),
			COALESCE(SUM(gross_pay), 0),
			COALESCE(SUM(net_pay), 0)
		FROM payroll_records
		WHERE company_id = $1 AND period_month = $2 AND period_year = $3
	`

	summary := payroll.PayrollSummary{PeriodMonth: month, PeriodYear: year}
	err := q.QueryRow(ctx, query, companyID, month, year).Scan(
		&summary.TotalEmployees, &summary.ProcessedCount,
		&summary.TotalBasicSalary, &summary.TotalAllowances, &summary.TotalManualDeductions,
		&summary.TotalEmployeeStatutory, &summary.TotalEmployerStatutoryA, &summary.TotalEmployerStatutoryB,
		&summary.TotalGrossPay, &summary.TotalNetPay,
	)
	if err != nil {
		return payroll.PayrollSummary{}, fmt.Errorf("failed to get payroll summary: %w", err)
	}

	return summary, nil
}

// ========== HELPERS ==========

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type recordDocuments struct {
	allowances   []byte
	deductions   []byte
	customFields []byte
}

func encodeRecordDocuments(record payroll.PayrollRecord) (recordDocuments, error) {
	var docs recordDocuments
	var err error
	if docs.allowances, err = encodeJSONMap(record.Allowances); err != nil {
		return docs, fmt.Errorf("failed to encode allowances: %w", err)
	}
	if docs.deductions, err = encodeJSONMap(record.Deductions); err != nil {
		return docs, fmt.Errorf("failed to encode deductions: %w", err)
	}
	if docs.customFields, err = encodeJSONMap(record.CustomFields); err != nil {
		return docs, fmt.Errorf("failed to encode custom fields: %w", err)
	}
	return docs, nil
}

// encodeJSONMap stores nil maps as {} so the column never holds JSON null.
func encodeJSONMap[M ~map[string]V, V any](m M) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func scanPayrollRecord(row rowScanner, withEmployee bool) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var allowances, deductions, customFields []byte

	dest := []interface{}{
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.PeriodMonth, &rec.PeriodYear,
		&rec.BasicSalary, &allowances, &deductions, &rec.Bonus,
		&rec.TotalAllowances, &rec.TotalManualDeductions, &rec.EmployeeStatutory,
		&rec.EmployerStatutoryA, &rec.EmployerStatutoryB, &rec.GrossPay, &rec.NetPay,
		&rec.Country, &rec.Currency, &rec.Notes, &rec.SlipPath, &customFields,
		&rec.IsProcessed, &rec.PayDate, &rec.CreatedAt, &rec.UpdatedAt,
	}
	if withEmployee {
		dest = append(dest, &rec.EmployeeName, &rec.EmployeeCode, &rec.Department)
	}
	if err := row.Scan(dest...); err != nil {
		return payroll.PayrollRecord{}, err
	}

	if err := json.Unmarshal(allowances, &rec.Allowances); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode allowances of record %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(deductions, &rec.Deductions); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode deductions of record %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(customFields, &rec.CustomFields); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode custom fields of record %s: %w", rec.ID, err)
	}
	return rec, nil
}

func collectPayrollRecords(rows pgx.Rows) ([]payroll.PayrollRecord, error) {
	defer rows.Close()

	records := make([]payroll.PayrollRecord, 0)
	for rows.Next() {
		rec, err := scanPayrollRecord(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll records: %w", err)
	}
	return records, nil
}

// orderClause maps a whitelisted sort field to SQL; unknown fields fall back to
// period then employee name.
func orderClause(sortBy, sortOrder string) string {
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}

	columns, ok := payrollSortColumns[sortBy]
	if !ok {
		return "pr.period_year DESC, pr.period_month DESC, e.full_name ASC, pr.id ASC"
	}

	parts := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		parts = append(parts, col+" "+direction)
	}
	parts = append(parts, "pr.id ASC")
	return strings.Join(parts, ", ")
}
