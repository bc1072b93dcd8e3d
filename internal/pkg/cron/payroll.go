package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/requestctx"
)

const autoGenerateJobName = "auto_generate_payroll"

// BatchGenerator is the part of the payroll service the job needs.
type BatchGenerator interface {
	GeneratePayroll(ctx context.Context, req payroll.GeneratePayrollRequest) (payroll.BatchResult, error)
}

// PayrollJobs generates the current period for every company on a fixed day of the month.
type PayrollJobs struct {
	companyRepo company.CompanyRepository
	generator   BatchGenerator
	day         int
	now         func() time.Time

	mu        sync.Mutex
	completed map[string]payroll.Period // company id -> last generated period
}

func NewPayrollJobs(companyRepo company.CompanyRepository, generator BatchGenerator, day int) *PayrollJobs {
	return &PayrollJobs{
		companyRepo: companyRepo,
		generator:   generator,
		day:         day,
		now:         time.Now,
		completed:   make(map[string]payroll.Period),
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(autoGenerateJobName, 1*time.Hour, j.AutoGeneratePayroll)
}

// AutoGeneratePayroll is a no-op except on the configured day. Each company is
// generated at most once per period per process; per-company errors are logged and
// the remaining companies still run.
func (j *PayrollJobs) AutoGeneratePayroll(ctx context.Context) error {
	now := j.now().UTC()
	if now.Day() != j.day {
		return nil
	}
	period := payroll.PeriodOf(now)

	companyIDs, err := j.companyRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	slog.Info("Cron: Starting payroll generation", "period", period.Key(), "companies", len(companyIDs))

	var errs []error
	for _, companyID := range companyIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if j.alreadyGenerated(companyID, period) {
			continue
		}

		tenantCtx := requestctx.WithCompanyID(ctx, companyID)
		result, err := j.generator.GeneratePayroll(tenantCtx, payroll.GeneratePayrollRequest{
			PeriodMonth: period.Month,
			PeriodYear:  period.Year,
		})
		if err != nil {
			slog.Error("Cron: Payroll generation failed", "company_id", companyID, "period", period.Key(), "error", err)
			errs = append(errs, fmt.Errorf("company %s: %w", companyID, err))
			continue
		}

		j.markGenerated(companyID, period)
		slog.Info("Cron: Payroll generated",
			"company_id", companyID,
			"period", period.Key(),
			"processed", result.ProcessedCount,
			"failed", result.FailedCount,
		)
	}

	return errors.Join(errs...)
}

func (j *PayrollJobs) alreadyGenerated(companyID string, period payroll.Period) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	last, ok := j.completed[companyID]
	return ok && last == period
}

func (j *PayrollJobs) markGenerated(companyID string, period payroll.Period) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completed[companyID] = period
}
