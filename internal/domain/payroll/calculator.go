package payroll

import (
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// StatutoryRates are fractions of basic salary.
type StatutoryRates struct {
	Employee  decimal.Decimal
	EmployerA decimal.Decimal
	EmployerB decimal.Decimal
}

func DefaultStatutoryRates() StatutoryRates {
	return StatutoryRates{
		Employee:  decimal.RequireFromString("0.08"),
		EmployerA: decimal.RequireFromString("0.12"),
		EmployerB: decimal.RequireFromString("0.03"),
	}
}

// DefaultExemptClassifications lists the intern-like employment classifications.
var DefaultExemptClassifications = []string{"internship", "intern", "trainee"}

// CalculationInput carries everything the calculator needs for one employee and period.
type CalculationInput struct {
	BasicSalary    decimal.Decimal
	Allowances     Allowances
	Deductions     Deductions
	Bonus          decimal.Decimal
	Classification string
	Country        string
	Currency       string
}

// Breakdown is the computed result for one employee and period.
type Breakdown struct {
	Allowances            Allowances
	Deductions            Deductions
	TotalAllowances       decimal.Decimal
	TotalManualDeductions decimal.Decimal
	EmployeeStatutory     decimal.Decimal
	EmployerStatutoryA    decimal.Decimal
	EmployerStatutoryB    decimal.Decimal
	GrossPay              decimal.Decimal
	NetPay                decimal.Decimal
	StatutoryExempt       bool
	Country               string
	Currency              string
}

// TotalDeductions is what the employee sees deducted: manual plus the employee statutory share.
func (b Breakdown) TotalDeductions() decimal.Decimal {
	return b.TotalManualDeductions.Add(b.EmployeeStatutory)
}

// Calculator computes payroll breakdowns. It holds no state besides its rates
// and performs no I/O.
type Calculator struct {
	rates  StatutoryRates
	exempt map[string]struct{}
}

func NewCalculator(rates StatutoryRates, exemptClassifications []string) *Calculator {
	exempt := make(map[string]struct{}, len(exemptClassifications))
	for _, c := range exemptClassifications {
		exempt[normalizeClassification(c)] = struct{}{}
	}
	return &Calculator{rates: rates, exempt: exempt}
}

// NewDefaultCalculator uses the 8/12/3 rates and the default intern-like set.
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultStatutoryRates(), DefaultExemptClassifications)
}

// IsStatutoryExempt reports whether the classification is intern-like.
func (c *Calculator) IsStatutoryExempt(classification string) bool {
	_, ok := c.exempt[normalizeClassification(classification)]
	return ok
}

func (c *Calculator) Calculate(in CalculationInput) (Breakdown, error) {
	var errs validator.ValidationErrors
	if in.BasicSalary.IsNegative() {
		errs.Add("basic_salary", "must be non-negative")
	}
	if in.Bonus.IsNegative() {
		errs.Add("bonus", "must be non-negative")
	}
	errs = append(errs, in.Allowances.Validate("allowances")...)
	errs = append(errs, in.Deductions.Validate("deductions")...)

	unit, scale, err := parseCurrency(in.Currency)
	if err != nil {
		errs.Add("currency", err.Error())
	}
	country, err := NormalizeCountry(in.Country)
	if err != nil {
		errs.Add("country", err.Error())
	}
	if len(errs) > 0 {
		return Breakdown{}, errs
	}

	b := Breakdown{
		Allowances:            in.Allowances.Normalized(),
		Deductions:            in.Deductions.Normalized(),
		TotalAllowances:       in.Allowances.Total(),
		TotalManualDeductions: in.Deductions.Total(),
		EmployeeStatutory:     decimal.Zero,
		EmployerStatutoryA:    decimal.Zero,
		EmployerStatutoryB:    decimal.Zero,
		StatutoryExempt:       c.IsStatutoryExempt(in.Classification),
		Country:               country,
		Currency:              unit.String(),
	}

	if !b.StatutoryExempt {
		b.EmployeeStatutory = in.BasicSalary.Mul(c.rates.Employee).Round(scale)
		b.EmployerStatutoryA = in.BasicSalary.Mul(c.rates.EmployerA).Round(scale)
		b.EmployerStatutoryB = in.BasicSalary.Mul(c.rates.EmployerB).Round(scale)
	}

	b.GrossPay = in.BasicSalary.Add(b.TotalAllowances).Add(in.Bonus)
	b.NetPay = b.GrossPay.Sub(b.EmployeeStatutory).Sub(b.TotalManualDeductions)

	return b, nil
}

// parseCurrency resolves an ISO 4217 code and the number of decimals of its minor unit.
func parseCurrency(code string) (currency.Unit, int32, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return currency.Unit{}, 0, errCurrencyRequired
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, 0, errCurrencyUnknown
	}
	scale, _ := currency.Standard.Rounding(unit)
	return unit, int32(scale), nil
}

// NormalizeCurrency returns the canonical ISO 4217 code, or an error for unknown codes.
func NormalizeCurrency(code string) (string, error) {
	unit, _, err := parseCurrency(code)
	if err != nil {
		return "", err
	}
	return unit.String(), nil
}

// NormalizeCountry returns the canonical region code for a non-empty country.
func NormalizeCountry(country string) (string, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return "", nil
	}
	region, err := language.ParseRegion(country)
	if err != nil {
		return "", errCountryUnknown
	}
	return region.String(), nil
}

func normalizeClassification(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
