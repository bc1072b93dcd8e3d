package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
)

const payrollRecordColumns = `pr.id, pr.company_id, pr.employee_id, pr.period_month, pr.period_year,
	pr.basic_salary, pr.allowances, pr.deductions, pr.bonus,
	pr.total_allowances, pr.total_manual_deductions, pr.employee_statutory,
	pr.employer_statutory_a, pr.employer_statutory_b, pr.gross_pay, pr.net_pay,
	pr.country, pr.currency, pr.notes, pr.slip_path, pr.custom_fields,
	pr.is_processed, pr.pay_date, pr.created_at, pr.updated_at,
	e.full_name, e.employee_code, e.department`

const payrollRecordFrom = `FROM payroll_records pr JOIN employees e ON pr.employee_id = e.id`

var payrollSortColumns = map[string][]string{
	"created_at":    {"pr.created_at"},
	"period":        {"pr.period_year", "pr.period_month"},
	"employee_name": {"e.full_name"},
	"gross_pay":     {"CAST(pr.gross_pay AS REAL)"},
	"net_pay":       {"CAST(pr.net_pay AS REAL)"},
}

type PayrollStore struct {
	db *sql.DB
}

func NewPayrollStore(db *sql.DB) *PayrollStore {
	return &PayrollStore{db: db}
}

func (s *PayrollStore) CreatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	docs, err := encodeRecordDocuments(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	now := formatTime(timeNow())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payroll_records (
			id, company_id, employee_id, period_month, period_year,
			basic_salary, allowances, deductions, bonus,
			total_allowances, total_manual_deductions, employee_statutory,
			employer_statutory_a, employer_statutory_b, gross_pay, net_pay,
			country, currency, notes, slip_path, custom_fields, is_processed, pay_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.CompanyID, record.EmployeeID, record.PeriodMonth, record.PeriodYear,
		record.BasicSalary.String(), docs.allowances, docs.deductions, record.Bonus.String(),
		record.TotalAllowances.String(), record.TotalManualDeductions.String(), record.EmployeeStatutory.String(),
		record.EmployerStatutoryA.String(), record.EmployerStatutoryB.String(), record.GrossPay.String(), record.NetPay.String(),
		record.Country, record.Currency, record.Notes, record.SlipPath, docs.customFields, record.IsProcessed,
		formatNullableTime(record.PayDate), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	return s.GetPayrollRecordByID(ctx, record.ID, record.CompanyID)
}

func (s *PayrollStore) GetPayrollRecordByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+payrollRecordColumns+` `+payrollRecordFrom+` WHERE pr.id = ? AND pr.company_id = ?`,
		id, companyID,
	)
	rec, err := scanPayrollRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}
	return rec, nil
}

func (s *PayrollStore) GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int, companyID string) (payroll.PayrollRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+payrollRecordColumns+` `+payrollRecordFrom+`
		WHERE pr.employee_id = ? AND pr.period_month = ? AND pr.period_year = ? AND pr.company_id = ?`,
		employeeID, month, year, companyID,
	)
	rec, err := scanPayrollRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}
	return rec, nil
}

func (s *PayrollStore) GetPayrollRecordsByIDs(ctx context.Context, ids []string, companyID string) ([]payroll.PayrollRecord, error) {
	if len(ids) == 0 {
		return []payroll.PayrollRecord{}, nil
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE pr.company_id = ? AND pr.id IN (%s) ORDER BY e.full_name, pr.id`,
		payrollRecordColumns, payrollRecordFrom, placeholders(len(ids)))
	args := append([]interface{}{companyID}, stringArgs(ids)...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get payroll records: %w", err)
	}
	return collectPayrollRecords(rows)
}

func (s *PayrollStore) ListPayrollRecords(ctx context.Context, companyID string, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	where := []string{"pr.company_id = ?"}
	args := []interface{}{companyID}

	if filter.PeriodMonth != nil {
		where = append(where, "pr.period_month = ?")
		args = append(args, *filter.PeriodMonth)
	}
	if filter.PeriodYear != nil {
		where = append(where, "pr.period_year = ?")
		args = append(args, *filter.PeriodYear)
	}
	if filter.EmployeeID != nil {
		where = append(where, "pr.employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if filter.IsProcessed != nil {
		where = append(where, "pr.is_processed = ?")
		args = append(args, *filter.IsProcessed)
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	var totalCount int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) "+payrollRecordFrom+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	filter.Normalize()
	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s LIMIT ? OFFSET ?`,
		payrollRecordColumns, payrollRecordFrom, whereClause, orderClause(filter.SortBy, filter.SortOrder))
	args = append(args, filter.Limit, filter.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	records, err := collectPayrollRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, totalCount, nil
}

func (s *PayrollStore) UpdatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	docs, err := encodeRecordDocuments(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE payroll_records SET
			basic_salary = ?, allowances = ?, deductions = ?, bonus = ?,
			total_allowances = ?, total_manual_deductions = ?, employee_statutory = ?,
			employer_statutory_a = ?, employer_statutory_b = ?, gross_pay = ?, net_pay = ?,
			country = ?, currency = ?, notes = ?, slip_path = ?, custom_fields = ?,
			is_processed = ?, pay_date = ?, updated_at = ?
		WHERE id = ? AND company_id = ?`,
		record.BasicSalary.String(), docs.allowances, docs.deductions, record.Bonus.String(),
		record.TotalAllowances.String(), record.TotalManualDeductions.String(), record.EmployeeStatutory.String(),
		record.EmployerStatutoryA.String(), record.EmployerStatutoryB.String(), record.GrossPay.String(), record.NetPay.String(),
		record.Country, record.Currency, record.Notes, record.SlipPath, docs.customFields,
		record.IsProcessed, formatNullableTime(record.PayDate), formatTime(timeNow()),
		record.ID, record.CompanyID,
	)
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to update payroll record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}

	return s.GetPayrollRecordByID(ctx, record.ID, record.CompanyID)
}

func (s *PayrollStore) DeletePayrollRecord(ctx context.Context, id string, companyID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payroll_records WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete payroll record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrPayrollRecordNotFound
	}
	return nil
}

// GetPayrollSummary sums in Go; SQLite has no exact decimal type.
func (s *PayrollStore) GetPayrollSummary(ctx context.Context, companyID string, month, year int) (payroll.PayrollSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT is_processed, basic_salary, total_allowances, total_manual_deductions,
			employee_statutory, employer_statutory_a, employer_statutory_b, gross_pay, net_pay
		FROM payroll_records
		WHERE company_id = ? AND period_month = ? AND period_year = ?`,
		companyID, month, year,
	)
	if err != nil {
		return payroll.PayrollSummary{}, fmt.Errorf("failed to get payroll summary: %w", err)
	}
	defer rows.Close()

	summary := payroll.PayrollSummary{PeriodMonth: month, PeriodYear: year}
	for rows.Next() {
		var rec payroll.PayrollRecord
		if err := rows.Scan(
			&rec.IsProcessed, &rec.BasicSalary, &rec.TotalAllowances, &rec.TotalManualDeductions,
			&rec.EmployeeStatutory, &rec.EmployerStatutoryA, &rec.EmployerStatutoryB, &rec.GrossPay, &rec.NetPay,
		); err != nil {
			return payroll.PayrollSummary{}, fmt.Errorf("failed to scan payroll summary row: %w", err)
		}

		summary.TotalEmployees++
		if rec.IsProcessed {
			summary.ProcessedCount++
		}
		summary.TotalBasicSalary = summary.TotalBasicSalary.Add(rec.BasicSalary)
		summary.TotalAllowances = summary.TotalAllowances.Add(rec.TotalAllowances)
		summary.TotalManualDeductions = summary.TotalManualDeductions.Add(rec.TotalManualDeductions)
		summary.TotalEmployeeStatutory = summary.TotalEmployeeStatutory.Add(rec.EmployeeStatutory)
		summary.TotalEmployerStatutoryA = summary.TotalEmployerStatutoryA.Add(rec.EmployerStatutoryA)
		summary.TotalEmployerStatutoryB = summary.TotalEmployerStatutoryB.Add(rec.EmployerStatutoryB)
		summary.TotalGrossPay = summary.TotalGrossPay.Add(rec.GrossPay)
		summary.TotalNetPay = summary.TotalNetPay.Add(rec.NetPay)
	}
	if err := rows.Err(); err != nil {
		return payroll.PayrollSummary{}, fmt.Errorf("failed to iterate payroll summary: %w", err)
	}
	return summary, nil
}

// ========== HELPERS ==========

type recordDocuments struct {
	allowances   string
	deductions   string
	customFields string
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

func encodeJSONMap[M ~map[string]V, V any](m M) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func scanPayrollRecord(row rowScanner) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var allowances, deductions, customFields string
	var notes, slipPath, payDate, department sql.NullString
	var createdAt, updatedAt, employeeName, employeeCode string

	if err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.PeriodMonth, &rec.PeriodYear,
		&rec.BasicSalary, &allowances, &deductions, &rec.Bonus,
		&rec.TotalAllowances, &rec.TotalManualDeductions, &rec.EmployeeStatutory,
		&rec.EmployerStatutoryA, &rec.EmployerStatutoryB, &rec.GrossPay, &rec.NetPay,
		&rec.Country, &rec.Currency, &notes, &slipPath, &customFields,
		&rec.IsProcessed, &payDate, &createdAt, &updatedAt,
		&employeeName, &employeeCode, &department,
	); err != nil {
		return payroll.PayrollRecord{}, err
	}

	if err := json.Unmarshal([]byte(allowances), &rec.Allowances); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode allowances of record %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(deductions), &rec.Deductions); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode deductions of record %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(customFields), &rec.CustomFields); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode custom fields of record %s: %w", rec.ID, err)
	}

	var err error
	if rec.PayDate, err = parseNullableTime(payDate); err != nil {
		return payroll.PayrollRecord{}, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return payroll.PayrollRecord{}, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return payroll.PayrollRecord{}, err
	}

	rec.Notes = nullableString(notes)
	rec.SlipPath = nullableString(slipPath)
	rec.Department = nullableString(department)
	rec.EmployeeName = &employeeName
	rec.EmployeeCode = &employeeCode
	return rec, nil
}

func collectPayrollRecords(rows *sql.Rows) ([]payroll.PayrollRecord, error) {
	defer rows.Close()

	records := make([]payroll.PayrollRecord, 0)
	for rows.Next() {
		rec, err := scanPayrollRecord(rows)
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
