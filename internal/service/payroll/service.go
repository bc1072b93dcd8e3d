package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/email"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jobmetrics"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/requestctx"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	jobBatch        = "payroll_batch"
	jobDistribution = "payroll_distribution"
)

// Config carries tenant-independent defaults.
type Config struct {
	DefaultCountry   string
	DefaultCurrency  string
	BatchConcurrency int
	DistributionCC   []string
}

// Dependencies of the payroll service. Renderer and Storage are optional; without
// them records keep whatever slip_path the caller supplies.
type Dependencies struct {
	PayrollRepo  payroll.PayrollRepository
	EmployeeRepo employee.EmployeeRepository
	CompanyRepo  company.CompanyRepository
	CustomFields payroll.CustomFieldRegistry
	Calculator   *payroll.Calculator
	Renderer     payroll.SlipRenderer
	Storage      storage.FileStorage
	Mailer       email.EmailService
	SummaryCache *cache.VersionedCache
	Metrics      *jobmetrics.Metrics
	Formatter    *money.Formatter
}

type PayrollServiceImpl struct {
	cfg          Config
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	companyRepo  company.CompanyRepository
	customFields payroll.CustomFieldRegistry
	calculator   *payroll.Calculator
	renderer     payroll.SlipRenderer
	storage      storage.FileStorage
	mailer       email.EmailService
	summaryCache *cache.VersionedCache
	metrics      *jobmetrics.Metrics
	formatter    *money.Formatter

	now   func() time.Time
	newID func() (string, error)
}

func NewPayrollService(cfg Config, deps Dependencies) payroll.PayrollService {
	return newPayrollService(cfg, deps)
}

func newPayrollService(cfg Config, deps Dependencies) *PayrollServiceImpl {
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	if deps.Calculator == nil {
		deps.Calculator = payroll.NewDefaultCalculator()
	}
	if deps.Formatter == nil {
		deps.Formatter = money.NewFormatter("en")
	}

	return &PayrollServiceImpl{
		cfg:          cfg,
		payrollRepo:  deps.PayrollRepo,
		employeeRepo: deps.EmployeeRepo,
		companyRepo:  deps.CompanyRepo,
		customFields: deps.CustomFields,
		calculator:   deps.Calculator,
		renderer:     deps.Renderer,
		storage:      deps.Storage,
		mailer:       deps.Mailer,
		summaryCache: deps.SummaryCache,
		metrics:      deps.Metrics,
		formatter:    deps.Formatter,
		now:          time.Now,
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// companyIDFromContext returns the trusted tenant placed on the context by the
// auth middleware or a job handler.
func companyIDFromContext(ctx context.Context) (string, error) {
	companyID := requestctx.CompanyID(ctx)
	if companyID == "" {
		return "", payroll.ErrCompanyIDRequired
	}
	return companyID, nil
}

func (s *PayrollServiceImpl) getCompany(ctx context.Context, companyID string) (company.Company, error) {
	c, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			return company.Company{}, payroll.ErrCompanyNotFound
		}
		return company.Company{}, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// getEmployee loads the employee and checks it belongs to companyID.
func (s *PayrollServiceImpl) getEmployee(ctx context.Context, companyID, employeeID string) (employee.Employee, error) {
	emp, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.Employee{}, payroll.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if emp.CompanyID != companyID {
		return employee.Employee{}, fmt.Errorf("%w: %w", payroll.ErrEmployeeNotFound, payroll.ErrCrossTenantAccess)
	}
	return emp, nil
}

// ========== RECORDS ==========

func (s *PayrollServiceImpl) GetPayrollRecord(ctx context.Context, id string) (payroll.PayrollRecordResponse, error) {
	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	record, err := s.payrollRepo.GetPayrollRecordByID(ctx, id, companyID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	return mapToRecordResponse(record), nil
}

func (s *PayrollServiceImpl) ListPayrollRecords(ctx context.Context, filter payroll.PayrollFilter) (payroll.ListPayrollRecordResponse, error) {
	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	filter.Normalize()
	records, totalCount, err := s.payrollRepo.ListPayrollRecords(ctx, companyID, filter)
	if err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	return payroll.ListPayrollRecordResponse{
		Data:       mapToRecordResponses(records),
		TotalCount: totalCount,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// DeletePayrollRecord removes one record and its stored payslip. Other periods
// of the same employee are untouched.
func (s *PayrollServiceImpl) DeletePayrollRecord(ctx context.Context, id string) error {
	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return err
	}

	record, err := s.payrollRepo.GetPayrollRecordByID(ctx, id, companyID)
	if err != nil {
		return err
	}

	if err := s.payrollRepo.DeletePayrollRecord(ctx, id, companyID); err != nil {
		return err
	}

	if record.SlipPath != nil && s.storage != nil {
		if err := s.storage.Delete(ctx, *record.SlipPath); err != nil {
			slog.Warn("Failed to delete payslip artifact", "record_id", id, "slip_path", *record.SlipPath, "error", err)
		}
	}

	s.invalidateSummary(ctx, companyID)
	slog.Info("Payroll record deleted", "record_id", id, "company_id", companyID, "employee_id", record.EmployeeID)
	return nil
}

// ========== SUMMARY ==========

func (s *PayrollServiceImpl) GetPayrollSummary(ctx context.Context, month, year int) (payroll.PayrollSummaryResponse, error) {
	period := payroll.NewPeriod(month, year)
	if err := period.Validate().Err(); err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}

	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}

	var loadErr error
	loader := func(ctx context.Context) (interface{}, error) {
		summary, err := s.payrollRepo.GetPayrollSummary(ctx, companyID, month, year)
		if err != nil {
			loadErr = err
			return nil, err
		}
		return mapToSummaryResponse(summary), nil
	}

	key, err := s.summaryCache.BuildKey(ctx, companyID, period.Key())
	if err == nil {
		var resp payroll.PayrollSummaryResponse
		err = s.summaryCache.FetchJSON(ctx, key, &resp, loader)
		if err == nil {
			return resp, nil
		}
		if loadErr != nil {
			return payroll.PayrollSummaryResponse{}, loadErr
		}
	}

	// Cache unavailable, serve from the store
	slog.Warn("Payroll summary cache unavailable", "company_id", companyID, "error", err)
	summary, err := s.payrollRepo.GetPayrollSummary(ctx, companyID, month, year)
	if err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}
	return mapToSummaryResponse(summary), nil
}

func (s *PayrollServiceImpl) invalidateSummary(ctx context.Context, companyID string) {
	if err := s.summaryCache.Bump(ctx, companyID); err != nil {
		slog.Warn("Failed to invalidate payroll summary cache", "company_id", companyID, "error", err)
	}
}

// ========== CUSTOM FIELDS ==========

func (s *PayrollServiceImpl) ListCustomFields(ctx context.Context) ([]payroll.CustomFieldResponse, error) {
	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if s.customFields == nil {
		return []payroll.CustomFieldResponse{}, nil
	}

	defs, err := s.customFields.ListCustomFields(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToCustomFieldResponses(defs), nil
}

func (s *PayrollServiceImpl) ReplaceCustomFields(ctx context.Context, req payroll.ReplaceCustomFieldsRequest) ([]payroll.CustomFieldResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if s.customFields == nil {
		return nil, fmt.Errorf("custom field registry is not configured")
	}

	now := s.now()
	defs := make([]payroll.CustomFieldDefinition, 0, len(req.Fields))
	for _, f := range req.Fields {
		defs = append(defs, payroll.CustomFieldDefinition{
			CompanyID: companyID,
			Key:       f.Key,
			Label:     f.Label,
			CreatedAt: now,
		})
	}

	if err := s.customFields.ReplaceCustomFields(ctx, companyID, defs); err != nil {
		return nil, err
	}
	return mapToCustomFieldResponses(defs), nil
}

// validateCustomFieldKeys checks the supplied keys against the tenant registry.
// Without a registry every key is accepted.
func (s *PayrollServiceImpl) validateCustomFieldKeys(ctx context.Context, companyID string, fields map[string]interface{}) error {
	if len(fields) == 0 || s.customFields == nil {
		return nil
	}

	defs, err := s.customFields.ListCustomFields(ctx, companyID)
	if err != nil {
		return err
	}
	allowed := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		allowed[d.Key] = struct{}{}
	}

	var errs validator.ValidationErrors
	for key := range fields {
		if _, ok := allowed[key]; !ok {
			errs.Add("custom_fields."+key, payroll.ErrUnknownCustomField.Error())
		}
	}
	return errs.Err()
}

// ========== HELPERS ==========

func mapToRecordResponse(r payroll.PayrollRecord) payroll.PayrollRecordResponse {
	var payDateStr *string
	if r.PayDate != nil {
		str := r.PayDate.Format(time.RFC3339)
		payDateStr = &str
	}

	employeeName := ""
	employeeCode := ""
	if r.EmployeeName != nil {
		employeeName = *r.EmployeeName
	}
	if r.EmployeeCode != nil {
		employeeCode = *r.EmployeeCode
	}

	return payroll.PayrollRecordResponse{
		ID:                    r.ID,
		CompanyID:             r.CompanyID,
		EmployeeID:            r.EmployeeID,
		EmployeeName:          employeeName,
		EmployeeCode:          employeeCode,
		Department:            r.Department,
		PeriodMonth:           r.PeriodMonth,
		PeriodYear:            r.PeriodYear,
		BasicSalary:           r.BasicSalary,
		Allowances:            r.Allowances.Normalized(),
		Deductions:            r.Deductions.Normalized(),
		Bonus:                 r.Bonus,
		TotalAllowances:       r.TotalAllowances,
		TotalManualDeductions: r.TotalManualDeductions,
		EmployeeStatutory:     r.EmployeeStatutory,
		EmployerStatutoryA:    r.EmployerStatutoryA,
		EmployerStatutoryB:    r.EmployerStatutoryB,
		TotalDeductions:       r.TotalDeductions(),
		GrossPay:              r.GrossPay,
		NetPay:                r.NetPay,
		Country:               r.Country,
		Currency:              r.Currency,
		Notes:                 r.Notes,
		SlipPath:              r.SlipPath,
		CustomFields:          r.CustomFields,
		IsProcessed:           r.IsProcessed,
		PayDate:               payDateStr,
		CreatedAt:             r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             r.UpdatedAt.Format(time.RFC3339),
	}
}

func mapToRecordResponses(records []payroll.PayrollRecord) []payroll.PayrollRecordResponse {
	result := make([]payroll.PayrollRecordResponse, 0, len(records))
	for _, r := range records {
		result = append(result, mapToRecordResponse(r))
	}
	return result
}

func mapToSummaryResponse(sum payroll.PayrollSummary) payroll.PayrollSummaryResponse {
	average := decimal.Zero
	if sum.TotalEmployees > 0 {
		average = sum.TotalBasicSalary.Div(decimal.NewFromInt(sum.TotalEmployees)).Round(2)
	}

	return payroll.PayrollSummaryResponse{
		PeriodMonth:             sum.PeriodMonth,
		PeriodYear:              sum.PeriodYear,
		TotalEmployees:          sum.TotalEmployees,
		ProcessedCount:          sum.ProcessedCount,
		TotalBasicSalary:        sum.TotalBasicSalary,
		TotalAllowances:         sum.TotalAllowances,
		TotalManualDeductions:   sum.TotalManualDeductions,
		TotalEmployeeStatutory:  sum.TotalEmployeeStatutory,
		TotalEmployerStatutoryA: sum.TotalEmployerStatutoryA,
		TotalEmployerStatutoryB: sum.TotalEmployerStatutoryB,
		TotalGrossPay:           sum.TotalGrossPay,
		TotalNetPay:             sum.TotalNetPay,
		AverageBasicSalary:      average,
	}
}

func mapToCustomFieldResponses(defs []payroll.CustomFieldDefinition) []payroll.CustomFieldResponse {
	result := make([]payroll.CustomFieldResponse, 0, len(defs))
	for _, d := range defs {
		result = append(result, payroll.CustomFieldResponse{Key: d.Key, Label: d.Label})
	}
	return result
}
