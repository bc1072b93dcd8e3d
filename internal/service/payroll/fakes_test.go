package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/email"
	"github.com/shopspring/decimal"
)

// ===== payroll repository =====

type fakePayrollRepo struct {
	mu      sync.Mutex
	records map[string]payroll.PayrollRecord

	// beforeCreate runs inside CreatePayrollRecord before the uniqueness check
	beforeCreate func(record payroll.PayrollRecord)
	updateErr    error
	createCalls  int
	updateCalls  int
	summaryCalls int
}

func newFakePayrollRepo() *fakePayrollRepo {
	return &fakePayrollRepo{records: make(map[string]payroll.PayrollRecord)}
}

func naturalKey(employeeID string, month, year int) string {
	return fmt.Sprintf("%s/%d/%d", employeeID, year, month)
}

func (r *fakePayrollRepo) findByNaturalKey(employeeID string, month, year int) (payroll.PayrollRecord, bool) {
	for _, rec := range r.records {
		if naturalKey(rec.EmployeeID, rec.PeriodMonth, rec.PeriodYear) == naturalKey(employeeID, month, year) {
			return rec, true
		}
	}
	return payroll.PayrollRecord{}, false
}

func (r *fakePayrollRepo) seed(record payroll.PayrollRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
}

func (r *fakePayrollRepo) CreatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	if r.beforeCreate != nil {
		hook := r.beforeCreate
		r.beforeCreate = nil
		hook(record)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if _, exists := r.findByNaturalKey(record.EmployeeID, record.PeriodMonth, record.PeriodYear); exists {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	r.records[record.ID] = record
	return record, nil
}

func (r *fakePayrollRepo) GetPayrollRecordByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.CompanyID != companyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return rec, nil
}

func (r *fakePayrollRepo) GetPayrollRecordByEmployeePeriod(ctx context.Context, employeeID string, month, year int, companyID string) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.findByNaturalKey(employeeID, month, year)
	if !ok || rec.CompanyID != companyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return rec, nil
}

func (r *fakePayrollRepo) GetPayrollRecordsByIDs(ctx context.Context, ids []string, companyID string) ([]payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payroll.PayrollRecord
	for _, id := range ids {
		if rec, ok := r.records[id]; ok && rec.CompanyID == companyID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakePayrollRepo) ListPayrollRecords(ctx context.Context, companyID string, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []payroll.PayrollRecord
	for _, rec := range r.records {
		if rec.CompanyID != companyID {
			continue
		}
		if filter.PeriodMonth != nil && rec.PeriodMonth != *filter.PeriodMonth {
			continue
		}
		if filter.PeriodYear != nil && rec.PeriodYear != *filter.PeriodYear {
			continue
		}
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.IsProcessed != nil && rec.IsProcessed != *filter.IsProcessed {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EmployeeID < all[j].EmployeeID })

	start := filter.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *fakePayrollRepo) UpdatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return payroll.PayrollRecord{}, r.updateErr
	}
	existing, ok := r.records[record.ID]
	if !ok || existing.CompanyID != record.CompanyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	record.CreatedAt = existing.CreatedAt
	record.UpdatedAt = time.Now()
	r.records[record.ID] = record
	return record, nil
}

func (r *fakePayrollRepo) DeletePayrollRecord(ctx context.Context, id string, companyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.CompanyID != companyID {
		return payroll.ErrPayrollRecordNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *fakePayrollRepo) GetPayrollSummary(ctx context.Context, companyID string, month, year int) (payroll.PayrollSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaryCalls++
	sum := payroll.PayrollSummary{PeriodMonth: month, PeriodYear: year}
	for _, rec := range r.records {
		if rec.CompanyID != companyID || rec.PeriodMonth != month || rec.PeriodYear != year {
			continue
		}
		sum.TotalEmployees++
		if rec.IsProcessed {
			sum.ProcessedCount++
		}
		sum.TotalBasicSalary = sum.TotalBasicSalary.Add(rec.BasicSalary)
		sum.TotalAllowances = sum.TotalAllowances.Add(rec.TotalAllowances)
		sum.TotalManualDeductions = sum.TotalManualDeductions.Add(rec.TotalManualDeductions)
		sum.TotalEmployeeStatutory = sum.TotalEmployeeStatutory.Add(rec.EmployeeStatutory)
		sum.TotalEmployerStatutoryA = sum.TotalEmployerStatutoryA.Add(rec.EmployerStatutoryA)
		sum.TotalEmployerStatutoryB = sum.TotalEmployerStatutoryB.Add(rec.EmployerStatutoryB)
		sum.TotalGrossPay = sum.TotalGrossPay.Add(rec.GrossPay)
		sum.TotalNetPay = sum.TotalNetPay.Add(rec.NetPay)
	}
	return sum, nil
}

func (r *fakePayrollRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *fakePayrollRepo) byEmployeePeriod(employeeID string, month, year int) (payroll.PayrollRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByNaturalKey(employeeID, month, year)
}

// ===== employee / company =====

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
	order     []string
}

func newFakeEmployeeRepo(emps ...employee.Employee) *fakeEmployeeRepo {
	r := &fakeEmployeeRepo{employees: make(map[string]employee.Employee)}
	for _, e := range emps {
		r.employees[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r
}

func (r *fakeEmployeeRepo) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *fakeEmployeeRepo) GetByIDs(ctx context.Context, ids []string, companyID string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, id := range ids {
		if e, ok := r.employees[id]; ok && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEmployeeRepo) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, id := range r.order {
		e := r.employees[id]
		if e.CompanyID == companyID && e.IsActive() {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeCompanyRepo struct {
	companies map[string]company.Company
}

func (r *fakeCompanyRepo) GetByID(ctx context.Context, id string) (company.Company, error) {
	c, ok := r.companies[id]
	if !ok {
		return company.Company{}, company.ErrCompanyNotFound
	}
	return c, nil
}

func (r *fakeCompanyRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range r.companies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ===== custom fields =====

type fakeRegistry struct {
	defs map[string][]payroll.CustomFieldDefinition
}

func (r *fakeRegistry) ListCustomFields(ctx context.Context, companyID string) ([]payroll.CustomFieldDefinition, error) {
	return r.defs[companyID], nil
}

func (r *fakeRegistry) ReplaceCustomFields(ctx context.Context, companyID string, fields []payroll.CustomFieldDefinition) error {
	if r.defs == nil {
		r.defs = make(map[string][]payroll.CustomFieldDefinition)
	}
	r.defs[companyID] = fields
	return nil
}

// ===== slips and mail =====

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error

	// beforeRender runs once, ahead of the next render
	beforeRender func()
}

func (r *fakeRenderer) Render(ctx context.Context, doc payroll.SlipDocument) ([]byte, error) {
	r.mu.Lock()
	hook := r.beforeRender
	r.beforeRender = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte(fmt.Sprintf("%%PDF-fake %s %s", doc.EmployeeName, doc.Record.NetPay.String())), nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []email.PayslipMessage
	failFor map[string]bool
}

func (m *fakeMailer) SendPayslip(ctx context.Context, msg email.PayslipMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.To] {
		return errors.New("smtp: 554 rejected")
	}
	m.sent = append(m.sent, msg)
	return nil
}

// ===== helpers =====

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}
