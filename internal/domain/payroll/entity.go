package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// CarryOverMode controls how empty allowance/deduction maps are treated on upsert.
type CarryOverMode string

const (
	// CarryOverAuto fills empty maps from the previous period.
	CarryOverAuto CarryOverMode = "auto"
	// CarryOverNever takes the supplied maps literally; absent maps are zero.
	CarryOverNever CarryOverMode = "never"
)

// PayrollRecord - one employee's payroll for one period
type PayrollRecord struct {
	ID                    string
	CompanyID             string
	EmployeeID            string
	PeriodMonth           int
	PeriodYear            int
	BasicSalary           decimal.Decimal
	Allowances            Allowances // {"operational": 2000, "wellBeing": 0, ...}
	Deductions            Deductions // {"apit": 0, "workedDays": 22, ...}
	Bonus                 decimal.Decimal
	TotalAllowances       decimal.Decimal
	TotalManualDeductions decimal.Decimal
	EmployeeStatutory     decimal.Decimal
	EmployerStatutoryA    decimal.Decimal
	EmployerStatutoryB    decimal.Decimal
	GrossPay              decimal.Decimal
	NetPay                decimal.Decimal
	Country               string
	Currency              string
	Notes                 *string
	SlipPath              *string
	CustomFields          map[string]interface{}
	IsProcessed           bool
	PayDate               *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
	Department   *string
}

func (r PayrollRecord) Period() Period {
	return Period{Month: r.PeriodMonth, Year: r.PeriodYear}
}

// TotalDeductions is manual deductions plus the employee statutory share.
func (r PayrollRecord) TotalDeductions() decimal.Decimal {
	return r.TotalManualDeductions.Add(r.EmployeeStatutory)
}

// TotalEmployerStatutory sums both employer contributions.
func (r PayrollRecord) TotalEmployerStatutory() decimal.Decimal {
	return r.EmployerStatutoryA.Add(r.EmployerStatutoryB)
}

// ApplyBreakdown copies computed amounts onto the record.
func (r *PayrollRecord) ApplyBreakdown(basic, bonus decimal.Decimal, b Breakdown) {
	r.BasicSalary = basic
	r.Bonus = bonus
	r.Allowances = b.Allowances
	r.Deductions = b.Deductions
	r.TotalAllowances = b.TotalAllowances
	r.TotalManualDeductions = b.TotalManualDeductions
	r.EmployeeStatutory = b.EmployeeStatutory
	r.EmployerStatutoryA = b.EmployerStatutoryA
	r.EmployerStatutoryB = b.EmployerStatutoryB
	r.GrossPay = b.GrossPay
	r.NetPay = b.NetPay
	r.Country = b.Country
	r.Currency = b.Currency
}

// CustomFieldDefinition - a tenant-defined key allowed in PayrollRecord.CustomFields
type CustomFieldDefinition struct {
	CompanyID string
	Key       string
	Label     string
	CreatedAt time.Time
}

// PayrollSummary - sums over one company period; averages are derived by the service
type PayrollSummary struct {
	PeriodMonth             int
	PeriodYear              int
	TotalEmployees          int64
	TotalBasicSalary        decimal.Decimal
	TotalAllowances         decimal.Decimal
	TotalManualDeductions   decimal.Decimal
	TotalEmployeeStatutory  decimal.Decimal
	TotalEmployerStatutoryA decimal.Decimal
	TotalEmployerStatutoryB decimal.Decimal
	TotalGrossPay           decimal.Decimal
	TotalNetPay             decimal.Decimal
	ProcessedCount          int64
}
