package payroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/payslip"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/storage"
	"github.com/shopspring/decimal"
)

// GenerateOrUpdate creates the record of one employee for one period, or
// recomputes it in place when it already exists.
func (s *PayrollServiceImpl) GenerateOrUpdate(ctx context.Context, req payroll.UpsertPayrollRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	emp, err := s.getEmployee(ctx, companyID, req.EmployeeID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	comp, err := s.getCompany(ctx, companyID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	if err := s.validateCustomFieldKeys(ctx, companyID, req.CustomFields); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	record, err := s.upsert(ctx, comp, emp, req)
	if errors.Is(err, payroll.ErrPayrollRecordAlreadyExists) {
		// Lost a concurrent create for the same period; the row exists now, so
		// the second pass updates it.
		slog.Info("Concurrent payroll create detected, retrying as update",
			"employee_id", emp.ID, "period", req.Period().Key())
		record, err = s.upsert(ctx, comp, emp, req)
	}
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.invalidateSummary(ctx, companyID)
	return mapToRecordResponse(record), nil
}

func (s *PayrollServiceImpl) upsert(ctx context.Context, comp company.Company, emp employee.Employee, req payroll.UpsertPayrollRequest) (payroll.PayrollRecord, error) {
	period := req.Period()

	existing, err := s.payrollRepo.GetPayrollRecordByEmployeePeriod(ctx, emp.ID, period.Month, period.Year, comp.ID)
	found := err == nil
	if err != nil && !errors.Is(err, payroll.ErrPayrollRecordNotFound) {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to check existing payroll record: %w", err)
	}

	inputs := CompensationInputs{Allowances: req.Allowances, Deductions: req.Deductions}
	if req.EffectiveCarryOver() == payroll.CarryOverAuto && (!found || inputs.BothEmpty()) {
		resolved, err := ResolveCarryOver(ctx, s.payrollRepo, comp.ID, emp.ID, period, inputs)
		if err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("failed to resolve carry-over: %w", err)
		}
		if resolved.AllowancesCarried || resolved.DeductionsCarried {
			slog.Info("Carried over payroll components",
				"employee_id", emp.ID,
				"period", period.Key(),
				"from_period", resolved.PreviousPeriod.Key(),
				"allowances", resolved.AllowancesCarried,
				"deductions", resolved.DeductionsCarried,
			)
		}
		inputs = resolved.CompensationInputs
	}

	var previous *payroll.PayrollRecord
	if found {
		previous = &existing
	}
	country := firstNonEmpty(req.Country, recordField(previous, func(r *payroll.PayrollRecord) string { return r.Country }), comp.Country, s.cfg.DefaultCountry)
	currency := firstNonEmpty(req.Currency, recordField(previous, func(r *payroll.PayrollRecord) string { return r.Currency }), comp.Currency, s.cfg.DefaultCurrency)

	breakdown, err := s.calculator.Calculate(payroll.CalculationInput{
		BasicSalary:    *req.BasicSalary,
		Allowances:     inputs.Allowances,
		Deductions:     inputs.Deductions,
		Bonus:          req.Bonus,
		Classification: string(emp.EmploymentType),
		Country:        country,
		Currency:       currency,
	})
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	record := existing
	if !found {
		id, err := s.newID()
		if err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("failed to generate payroll record id: %w", err)
		}
		record = payroll.PayrollRecord{
			ID:          id,
			CompanyID:   comp.ID,
			EmployeeID:  emp.ID,
			PeriodMonth: period.Month,
			PeriodYear:  period.Year,
		}
	}

	record.ApplyBreakdown(*req.BasicSalary, req.Bonus, breakdown)
	if req.Notes != nil {
		record.Notes = req.Notes
	}
	if req.CustomFields != nil {
		record.CustomFields = req.CustomFields
	}
	now := s.now()
	record.IsProcessed = true
	record.PayDate = &now
	attachEmployee(&record, emp)

	var uploaded string
	if req.SlipPath != nil {
		record.SlipPath = req.SlipPath
	} else {
		uploaded, err = s.storeSlip(ctx, comp, emp, record)
		if err != nil {
			return payroll.PayrollRecord{}, err
		}
		if uploaded != "" {
			record.SlipPath = &uploaded
		}
	}

	var saved payroll.PayrollRecord
	if found {
		saved, err = s.payrollRepo.UpdatePayrollRecord(ctx, record)
	} else {
		saved, err = s.payrollRepo.CreatePayrollRecord(ctx, record)
	}
	if err != nil {
		s.discardSlip(ctx, uploaded)
		return payroll.PayrollRecord{}, err
	}

	// The row now points at the new revision; drop the one it replaced.
	if found && uploaded != "" && existing.SlipPath != nil && *existing.SlipPath != uploaded &&
		strings.HasPrefix(*existing.SlipPath, storage.PayslipPrefix(comp.ID, period.Key(), emp.ID)) {
		s.discardSlip(ctx, *existing.SlipPath)
	}

	attachEmployee(&saved, emp)
	slog.Info("Payroll record saved",
		"record_id", saved.ID,
		"employee_id", emp.ID,
		"period", period.Key(),
		"created", !found,
	)
	return saved, nil
}

// storeSlip renders the payslip and uploads it under a fresh revision key,
// returning that key. It returns "" without a renderer or storage.
func (s *PayrollServiceImpl) storeSlip(ctx context.Context, comp company.Company, emp employee.Employee, record payroll.PayrollRecord) (string, error) {
	if s.renderer == nil || s.storage == nil {
		return "", nil
	}

	doc := payroll.SlipDocument{
		CompanyName:  comp.Name,
		Record:       record,
		EmployeeName: emp.FullName,
		EmployeeCode: emp.EmployeeCode,
	}
	if emp.Department != nil {
		doc.Department = *emp.Department
	}

	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to render payslip: %w", err)
	}

	revision, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate payslip revision: %w", err)
	}
	key := storage.PayslipKey(comp.ID, record.Period().Key(), emp.ID, revision)
	stored, err := s.storage.Upload(ctx, bytes.NewReader(pdf), key, payslip.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store payslip: %w", err)
	}
	return stored, nil
}

// discardSlip removes an artifact no record points at.
func (s *PayrollServiceImpl) discardSlip(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		slog.Warn("Failed to delete payslip artifact", "slip_path", key, "error", err)
	}
}

func attachEmployee(record *payroll.PayrollRecord, emp employee.Employee) {
	name := emp.FullName
	code := emp.EmployeeCode
	record.EmployeeName = &name
	record.EmployeeCode = &code
	record.Department = emp.Department
}

func recordField(r *payroll.PayrollRecord, get func(*payroll.PayrollRecord) string) string {
	if r == nil {
		return ""
	}
	return get(r)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// baseSalaryOf returns the configured salary; callers check HasBaseSalary first.
func baseSalaryOf(emp employee.Employee) decimal.Decimal {
	if emp.BaseSalary == nil {
		return decimal.Zero
	}
	return *emp.BaseSalary
}
