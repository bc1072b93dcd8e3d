package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/email"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/storage"
)

const distributionPageSize = 100

// DistributePayslips emails the stored payslip of every processed record in the
// selection. Records are handled one after another; a failure is counted and the
// loop moves on.
func (s *PayrollServiceImpl) DistributePayslips(ctx context.Context, req payroll.DistributePayslipsRequest) (payroll.DistributionResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.DistributionResult{}, err
	}

	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return payroll.DistributionResult{}, err
	}

	tracker := s.metrics.Track(jobDistribution)

	comp, err := s.getCompany(ctx, companyID)
	if err != nil {
		return payroll.DistributionResult{}, tracker.End(err)
	}

	records, err := s.distributionRecords(ctx, companyID, req)
	if err != nil {
		return payroll.DistributionResult{}, tracker.End(err)
	}

	employees, err := s.employeesByID(ctx, companyID, records)
	if err != nil {
		return payroll.DistributionResult{}, tracker.End(err)
	}

	cc := mergeCC(s.cfg.DistributionCC, req.CC)

	var result payroll.DistributionResult
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, tracker.End(err)
		}
		if !record.IsProcessed {
			slog.Debug("Payslip ignored", "record_id", record.ID, "reason", payroll.ErrRecordNotProcessed)
			continue
		}

		emp, ok := employees[record.EmployeeID]
		if !ok || emp.EmailAddress() == "" {
			slog.Info("Payslip skipped",
				"record_id", record.ID,
				"employee_id", record.EmployeeID,
				"reason", payroll.ErrEmployeeHasNoEmail,
			)
			result.SkippedCount++
			continue
		}

		if err := s.sendPayslip(ctx, comp, emp, record, cc); err != nil {
			slog.Error("Failed to distribute payslip",
				"record_id", record.ID,
				"employee_id", record.EmployeeID,
				"error", err,
			)
			result.FailedCount++
			continue
		}
		result.SentCount++
	}

	s.metrics.AddOutcome(jobDistribution, "sent", result.SentCount)
	s.metrics.AddOutcome(jobDistribution, "skipped", result.SkippedCount)
	s.metrics.AddOutcome(jobDistribution, "failed", result.FailedCount)
	slog.Info("Payslip distribution finished",
		"company_id", companyID,
		"sent", result.SentCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
	)

	return result, tracker.End(nil)
}

func (s *PayrollServiceImpl) sendPayslip(ctx context.Context, comp company.Company, emp employee.Employee, record payroll.PayrollRecord, cc []string) error {
	if record.SlipPath == nil || *record.SlipPath == "" {
		return payroll.ErrSlipNotFound
	}
	if s.storage == nil {
		return fmt.Errorf("%w: no storage configured", payroll.ErrSlipNotFound)
	}

	slip, err := storage.ReadAll(ctx, s.storage, *record.SlipPath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return fmt.Errorf("%w: %s", payroll.ErrSlipNotFound, *record.SlipPath)
		}
		return fmt.Errorf("failed to load payslip: %w", err)
	}

	period := record.Period()
	msg := email.PayslipMessage{
		To:              emp.EmailAddress(),
		CC:              cc,
		EmployeeName:    emp.FullName,
		CompanyName:     comp.Name,
		PeriodLabel:     period.Label(),
		BasicSalary:     s.formatter.Format(record.BasicSalary, record.Currency),
		TotalAllowances: s.formatter.Format(record.TotalAllowances, record.Currency),
		TotalDeductions: s.formatter.Format(record.TotalDeductions(), record.Currency),
		NetPay:          s.formatter.Format(record.NetPay, record.Currency),
		Attachment:      slip,
		AttachmentName:  fmt.Sprintf("payslip-%s-%s.pdf", period.Key(), emp.EmployeeCode),
	}

	if err := s.mailer.SendPayslip(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", payroll.ErrEmailTransport, err)
	}
	return nil
}

func (s *PayrollServiceImpl) distributionRecords(ctx context.Context, companyID string, req payroll.DistributePayslipsRequest) ([]payroll.PayrollRecord, error) {
	if len(req.RecordIDs) > 0 {
		records, err := s.payrollRepo.GetPayrollRecordsByIDs(ctx, req.RecordIDs, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get payroll records: %w", err)
		}
		return records, nil
	}

	processed := true
	filter := payroll.PayrollFilter{
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
		IsProcessed: &processed,
		Page:        1,
		Limit:       distributionPageSize,
	}

	var records []payroll.PayrollRecord
	for {
		page, total, err := s.payrollRepo.ListPayrollRecords(ctx, companyID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list payroll records: %w", err)
		}
		records = append(records, page...)
		if len(page) == 0 || int64(len(records)) >= total {
			return records, nil
		}
		filter.Page++
	}
}

func (s *PayrollServiceImpl) employeesByID(ctx context.Context, companyID string, records []payroll.PayrollRecord) (map[string]employee.Employee, error) {
	ids := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if !seen[r.EmployeeID] {
			seen[r.EmployeeID] = true
			ids = append(ids, r.EmployeeID)
		}
	}
	if len(ids) == 0 {
		return map[string]employee.Employee{}, nil
	}

	employees, err := s.employeeRepo.GetByIDs(ctx, ids, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	result := make(map[string]employee.Employee, len(employees))
	for _, emp := range employees {
		result[emp.ID] = emp
	}
	return result, nil
}

// mergeCC joins the configured and requested CC lists without duplicates.
func mergeCC(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, addr := range list {
			addr = strings.TrimSpace(addr)
			key := strings.ToLower(addr)
			if addr == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, addr)
		}
	}
	return out
}
