package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
)

type CompanyStore struct {
	db *sql.DB
}

func NewCompanyStore(db *sql.DB) *CompanyStore {
	return &CompanyStore{db: db}
}

// Create inserts a company; used to seed local databases.
func (s *CompanyStore) Create(ctx context.Context, c company.Company) error {
	now := formatTime(c.CreatedAt)
	if c.CreatedAt.IsZero() {
		now = formatTime(timeNow())
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, country, currency, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Country, c.Currency, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func (s *CompanyStore) GetByID(ctx context.Context, id string) (company.Company, error) {
	var c company.Company
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, country, currency, created_at, updated_at FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Country, &c.Currency, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return company.Company{}, company.ErrCompanyNotFound
		}
		return company.Company{}, fmt.Errorf("failed to get company with id %s: %w", id, err)
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return company.Company{}, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return company.Company{}, err
	}
	return c, nil
}

func (s *CompanyStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
