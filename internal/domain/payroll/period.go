package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

const (
	MinPeriodYear = 2000
	MaxPeriodYear = 9999
)

// Period identifies one payroll cycle.
type Period struct {
	Month int
	Year  int
}

func NewPeriod(month, year int) Period {
	return Period{Month: month, Year: year}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Previous returns the period before p, rolling January back to December.
func (p Period) Previous() Period {
	if p.Month <= 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Label renders the period as "March 2025".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month).String(), p.Year)
}

// Key renders the period as "2025-03", used in storage paths and cache keys.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) Validate() validator.ValidationErrors {
	var errs validator.ValidationErrors
	if p.Month < 1 || p.Month > 12 {
		errs.Add("period_month", "must be between 1 and 12")
	}
	if p.Year < MinPeriodYear || p.Year > MaxPeriodYear {
		errs.Add("period_year", fmt.Sprintf("must be between %d and %d", MinPeriodYear, MaxPeriodYear))
	}
	return errs
}
