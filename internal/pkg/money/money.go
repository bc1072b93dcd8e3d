package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts for humans (emails, payslips). Stored amounts are
// never derived from its output.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a formatter for a BCP 47 locale such as "en" or "id".
// Unknown locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Format prints "USD 1,234.50" with the grouping of the locale and the minor
// unit of the currency.
func (f *Formatter) Format(amount decimal.Decimal, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
		code = unit.String()
	}

	rounded := amount.Round(int32(scale))
	value := f.printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(scale)))
	if code == "" {
		return value
	}
	return code + " " + value
}
