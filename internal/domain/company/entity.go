package company

import "time"

// Company carries the payroll defaults of a tenant.
type Company struct {
	ID        string
	Name      string
	Country   string
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
