package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/requestctx"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/hibiken/asynq"
)

// PayrollRunner is the part of the payroll service the worker drives.
type PayrollRunner interface {
	GeneratePayroll(ctx context.Context, req payroll.GeneratePayrollRequest) (payroll.BatchResult, error)
	DistributePayslips(ctx context.Context, req payroll.DistributePayslipsRequest) (payroll.DistributionResult, error)
}

type PayrollTasks struct {
	runner PayrollRunner
	logger *slog.Logger
}

func NewPayrollTasks(runner PayrollRunner, logger *slog.Logger) *PayrollTasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollTasks{runner: runner, logger: logger}
}

// Handlers lists the task handlers to register on a Worker.
func (p *PayrollTasks) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskPayrollDistribute, Handler: p.HandleDistribute},
		{Type: TaskPayrollGenerate, Handler: p.HandleGenerate},
	}
}

func (p *PayrollTasks) HandleDistribute(ctx context.Context, t *asynq.Task) error {
	var payload DistributePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.CompanyID == "" {
		p.logger.Warn("Dropping malformed task", "type", t.Type())
		return asynq.SkipRetry
	}

	ctx = requestctx.WithCompanyID(ctx, payload.CompanyID)
	result, err := p.runner.DistributePayslips(ctx, payroll.DistributePayslipsRequest{
		RecordIDs:   payload.RecordIDs,
		PeriodMonth: payload.PeriodMonth,
		PeriodYear:  payload.PeriodYear,
		CC:          payload.CC,
	})
	if err != nil {
		// Never retried: a rerun would mail everyone already sent again.
		p.logger.Error("Payslip distribution stopped",
			"company_id", payload.CompanyID,
			"sent", result.SentCount,
			"skipped", result.SkippedCount,
			"failed", result.FailedCount,
			"error", err,
		)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	p.logger.Info("Payslips distributed",
		"company_id", payload.CompanyID,
		"requested_by", payload.RequestedBy,
		"sent", result.SentCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
	)
	return nil
}

func (p *PayrollTasks) HandleGenerate(ctx context.Context, t *asynq.Task) error {
	var payload GeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.CompanyID == "" {
		p.logger.Warn("Dropping malformed task", "type", t.Type())
		return asynq.SkipRetry
	}

	ctx = requestctx.WithCompanyID(ctx, payload.CompanyID)
	result, err := p.runner.GeneratePayroll(ctx, payroll.GeneratePayrollRequest{
		PeriodMonth: payload.PeriodMonth,
		PeriodYear:  payload.PeriodYear,
		EmployeeIDs: payload.EmployeeIDs,
	})
	if err != nil {
		return classify(err)
	}

	p.logger.Info("Payroll generated",
		"company_id", payload.CompanyID,
		"requested_by", payload.RequestedBy,
		"period_month", result.PeriodMonth,
		"period_year", result.PeriodYear,
		"processed", result.ProcessedCount,
		"failed", result.FailedCount,
	)
	return nil
}

// classify stops retries for errors a retry cannot fix.
func classify(err error) error {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs),
		errors.Is(err, payroll.ErrCompanyNotFound),
		errors.Is(err, payroll.ErrCompanyIDRequired):
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	default:
		return err
	}
}
