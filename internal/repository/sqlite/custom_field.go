package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
)

type CustomFieldStore struct {
	db *sql.DB
}

func NewCustomFieldStore(db *sql.DB) *CustomFieldStore {
	return &CustomFieldStore{db: db}
}

func (s *CustomFieldStore) ListCustomFields(ctx context.Context, companyID string) ([]payroll.CustomFieldDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company_id, field_key, label, created_at FROM payroll_custom_fields WHERE company_id = ? ORDER BY field_key`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom fields: %w", err)
	}
	defer rows.Close()

	defs := make([]payroll.CustomFieldDefinition, 0)
	for rows.Next() {
		var d payroll.CustomFieldDefinition
		var createdAt string
		if err := rows.Scan(&d.CompanyID, &d.Key, &d.Label, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan custom field: %w", err)
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (s *CustomFieldStore) ReplaceCustomFields(ctx context.Context, companyID string, fields []payroll.CustomFieldDefinition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payroll_custom_fields WHERE company_id = ?`, companyID); err != nil {
		return fmt.Errorf("failed to clear custom fields: %w", err)
	}
	for _, f := range fields {
		createdAt := f.CreatedAt
		if createdAt.IsZero() {
			createdAt = timeNow()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payroll_custom_fields (company_id, field_key, label, created_at) VALUES (?, ?, ?, ?)`,
			companyID, f.Key, f.Label, formatTime(createdAt),
		); err != nil {
			return fmt.Errorf("failed to insert custom field %s: %w", f.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
