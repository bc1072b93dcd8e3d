package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTracker_End(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("payroll_batch").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("payroll_batch").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("payroll_batch", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("payroll_batch", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("payroll_batch")))
}

func TestMetrics_AddOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AddOutcome("payroll_batch", "processed", 4)
	m.AddOutcome("payroll_batch", "failed", 0)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.employees.WithLabelValues("payroll_batch", "processed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.employees.WithLabelValues("payroll_batch", "failed")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.AddOutcome("x", "y", 1)
	assert.NoError(t, m.Track("x").End(nil))
}
