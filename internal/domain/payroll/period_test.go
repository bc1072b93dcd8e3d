package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriod_Previous(t *testing.T) {
	tests := []struct {
		name string
		in   Period
		want Period
	}{
		{"mid year", NewPeriod(7, 2025), NewPeriod(6, 2025)},
		{"january rolls back", NewPeriod(1, 2025), NewPeriod(12, 2024)},
		{"december", NewPeriod(12, 2024), NewPeriod(11, 2024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Previous())
		})
	}
}

func TestPeriod_Format(t *testing.T) {
	p := NewPeriod(3, 2025)

	assert.Equal(t, "March 2025", p.Label())
	assert.Equal(t, "2025-03", p.Key())
	assert.Equal(t, p, PeriodOf(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)))
}

func TestPeriod_Validate(t *testing.T) {
	assert.Empty(t, NewPeriod(1, 2000).Validate())
	assert.Empty(t, NewPeriod(12, 9999).Validate())

	errs := NewPeriod(13, 1999).Validate().ToMap()
	assert.Equal(t, "must be between 1 and 12", errs["period_month"])
	assert.Equal(t, "must be between 2000 and 9999", errs["period_year"])

	assert.Contains(t, NewPeriod(0, 2025).Validate().ToMap(), "period_month")
}
