package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// GeneratePayroll creates records for every active employee of the company, or
// for the requested subset. Existing records are never overwritten; each
// employee succeeds or fails on its own.
func (s *PayrollServiceImpl) GeneratePayroll(ctx context.Context, req payroll.GeneratePayrollRequest) (payroll.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	tracker := s.metrics.Track(jobBatch)

	comp, err := s.getCompany(ctx, companyID)
	if err != nil {
		return payroll.BatchResult{}, tracker.End(err)
	}

	employees, missing, err := s.batchEmployees(ctx, companyID, req.EmployeeIDs)
	if err != nil {
		return payroll.BatchResult{}, tracker.End(err)
	}

	period := payroll.NewPeriod(req.PeriodMonth, req.PeriodYear)
	result := payroll.BatchResult{PeriodMonth: period.Month, PeriodYear: period.Year}

	var mu sync.Mutex
	fail := func(employeeID string, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.FailedCount++
		result.Failures = append(result.Failures, payroll.BatchFailure{EmployeeID: employeeID, Reason: err.Error()})
	}

	for _, id := range missing {
		slog.Warn("Payroll batch skipped employee", "company_id", companyID, "employee_id", id, "error", payroll.ErrEmployeeNotFound)
		fail(id, payroll.ErrEmployeeNotFound)
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for _, emp := range employees {
		emp := emp
		g.Go(func() error {
			if err := s.generateOne(ctx, comp, emp, period); err != nil {
				slog.Warn("Payroll batch skipped employee",
					"company_id", companyID,
					"employee_id", emp.ID,
					"period", period.Key(),
					"error", err,
				)
				fail(emp.ID, err)
				return nil
			}
			mu.Lock()
			result.ProcessedCount++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].EmployeeID < result.Failures[j].EmployeeID
	})

	if result.ProcessedCount > 0 {
		s.invalidateSummary(ctx, companyID)
	}
	s.metrics.AddOutcome(jobBatch, "processed", result.ProcessedCount)
	s.metrics.AddOutcome(jobBatch, "failed", result.FailedCount)
	slog.Info("Payroll batch finished",
		"company_id", companyID,
		"period", period.Key(),
		"processed", result.ProcessedCount,
		"failed", result.FailedCount,
	)

	return result, tracker.End(nil)
}

// batchEmployees returns the employees to generate and the requested ids that do
// not exist in the company.
func (s *PayrollServiceImpl) batchEmployees(ctx context.Context, companyID string, ids []string) ([]employee.Employee, []string, error) {
	if len(ids) == 0 {
		employees, err := s.employeeRepo.GetActiveByCompanyID(ctx, companyID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get employees: %w", err)
		}
		return employees, nil, nil
	}

	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	employees, err := s.employeeRepo.GetByIDs(ctx, unique, companyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get employees: %w", err)
	}

	found := make(map[string]bool, len(employees))
	for _, emp := range employees {
		found[emp.ID] = true
	}
	var missing []string
	for _, id := range unique {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return employees, missing, nil
}

// generateOne creates the record of one employee. Bonus is always zero in batch mode.
func (s *PayrollServiceImpl) generateOne(ctx context.Context, comp company.Company, emp employee.Employee, period payroll.Period) error {
	if !emp.HasBaseSalary() {
		return payroll.ErrEmployeeHasNoBaseSalary
	}

	_, err := s.payrollRepo.GetPayrollRecordByEmployeePeriod(ctx, emp.ID, period.Month, period.Year, comp.ID)
	if err == nil {
		return payroll.ErrDuplicatePeriod
	}
	if !errors.Is(err, payroll.ErrPayrollRecordNotFound) {
		return fmt.Errorf("failed to check existing payroll record: %w", err)
	}

	resolved, err := ResolveCarryOver(ctx, s.payrollRepo, comp.ID, emp.ID, period, CompensationInputs{})
	if err != nil {
		return fmt.Errorf("failed to resolve carry-over: %w", err)
	}

	basic := baseSalaryOf(emp)
	breakdown, err := s.calculator.Calculate(payroll.CalculationInput{
		BasicSalary:    basic,
		Allowances:     resolved.Allowances,
		Deductions:     resolved.Deductions,
		Bonus:          decimal.Zero,
		Classification: string(emp.EmploymentType),
		Country:        firstNonEmpty(comp.Country, s.cfg.DefaultCountry),
		Currency:       firstNonEmpty(comp.Currency, s.cfg.DefaultCurrency),
	})
	if err != nil {
		return err
	}

	id, err := s.newID()
	if err != nil {
		return fmt.Errorf("failed to generate payroll record id: %w", err)
	}
	now := s.now()
	record := payroll.PayrollRecord{
		ID:          id,
		CompanyID:   comp.ID,
		EmployeeID:  emp.ID,
		PeriodMonth: period.Month,
		PeriodYear:  period.Year,
		IsProcessed: true,
		PayDate:     &now,
	}
	record.ApplyBreakdown(basic, decimal.Zero, breakdown)
	attachEmployee(&record, emp)

	uploaded, err := s.storeSlip(ctx, comp, emp, record)
	if err != nil {
		return err
	}
	if uploaded != "" {
		record.SlipPath = &uploaded
	}

	if _, err := s.payrollRepo.CreatePayrollRecord(ctx, record); err != nil {
		s.discardSlip(ctx, uploaded)
		if errors.Is(err, payroll.ErrPayrollRecordAlreadyExists) {
			// created concurrently by someone else; batch mode never updates
			return payroll.ErrDuplicatePeriod
		}
		return err
	}
	return nil
}
