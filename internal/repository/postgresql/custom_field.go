package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type customFieldRepository struct {
	db *database.DB
}

func NewCustomFieldRepository(db *database.DB) payroll.CustomFieldRegistry {
	return &customFieldRepository{db: db}
}

func (r *customFieldRepository) ListCustomFields(ctx context.Context, companyID string) ([]payroll.CustomFieldDefinition, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, field_key, label, created_at
		FROM payroll_custom_fields
		WHERE company_id = $1
		ORDER BY field_key
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom fields: %w", err)
	}
	defer rows.Close()

	defs := make([]payroll.CustomFieldDefinition, 0)
	for rows.Next() {
		var d payroll.CustomFieldDefinition
		if err := rows.Scan(&d.CompanyID, &d.Key, &d.Label, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan custom field: %w", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom fields: %w", err)
	}
	return defs, nil
}

// ReplaceCustomFields swaps the whole set for the company in one transaction.
func (r *customFieldRepository) ReplaceCustomFields(ctx context.Context, companyID string, fields []payroll.CustomFieldDefinition) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		if _, err := q.Exec(ctx, `DELETE FROM payroll_custom_fields WHERE company_id = $1`, companyID); err != nil {
			return fmt.Errorf("failed to clear custom fields: %w", err)
		}
		if len(fields) == 0 {
			return nil
		}

		rows := make([][]interface{}, 0, len(fields))
		for _, f := range fields {
			rows = append(rows, []interface{}{companyID, f.Key, f.Label, f.CreatedAt})
		}
		tx, ok := q.(pgx.Tx)
		if !ok {
			return fmt.Errorf("custom field replace requires a transaction")
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"payroll_custom_fields"},
			[]string{"company_id", "field_key", "label", "created_at"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("failed to insert custom fields: %w", err)
		}
		return nil
	})
}
