package employee

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Employee is the read-only snapshot the payroll engine needs.
type Employee struct {
	ID               string
	CompanyID        string
	EmployeeCode     string
	FullName         string
	Email            *string
	Department       *string
	PositionName     *string
	EmploymentType   EmploymentType
	EmploymentStatus EmploymentStatus
	BaseSalary       *decimal.Decimal
}

type EmploymentType string

const (
	EmploymentTypePermanent  EmploymentType = "permanent"
	EmploymentTypeProbation  EmploymentType = "probation"
	EmploymentTypeContract   EmploymentType = "contract"
	EmploymentTypeInternship EmploymentType = "internship"
	EmploymentTypeFreelance  EmploymentType = "freelance"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// IsActive checks if employee is still employed
func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}

// HasBaseSalary reports whether a base salary is configured.
func (e Employee) HasBaseSalary() bool {
	return e.BaseSalary != nil
}

// EmailAddress returns the trimmed email or "" when none is set.
func (e Employee) EmailAddress() string {
	if e.Email == nil {
		return ""
	}
	return strings.TrimSpace(*e.Email)
}
