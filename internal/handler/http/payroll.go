package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/jobs"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/requestctx"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

type PayrollHandler interface {
	// Records
	UpsertPayrollRecord(w http.ResponseWriter, r *http.Request)
	GetPayrollRecord(w http.ResponseWriter, r *http.Request)
	ListPayrollRecords(w http.ResponseWriter, r *http.Request)
	DeletePayrollRecord(w http.ResponseWriter, r *http.Request)

	// Batch and distribution
	GeneratePayroll(w http.ResponseWriter, r *http.Request)
	DistributePayslips(w http.ResponseWriter, r *http.Request)

	// Summary
	GetPayrollSummary(w http.ResponseWriter, r *http.Request)

	// Custom fields
	ListCustomFields(w http.ResponseWriter, r *http.Request)
	ReplaceCustomFields(w http.ResponseWriter, r *http.Request)
}

// TaskQueue hands long running payroll work to the background worker.
type TaskQueue interface {
	EnqueueDistribute(ctx context.Context, payload jobs.DistributePayload) (*asynq.TaskInfo, error)
	EnqueueGenerate(ctx context.Context, payload jobs.GeneratePayload) (*asynq.TaskInfo, error)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
	queue          TaskQueue
}

// NewPayrollHandler builds the handler. A nil queue makes distribution and
// async generation run inside the request.
func NewPayrollHandler(payrollService payroll.PayrollService, queue TaskQueue) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService, queue: queue}
}

type taskAccepted struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
	Type   string `json:"type"`
}

// ========== PAYROLL RECORDS ==========

func (h *payrollHandlerImpl) UpsertPayrollRecord(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpsertPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.GenerateOrUpdate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll record saved", result)
}

func (h *payrollHandlerImpl) GetPayrollRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Record ID is required", nil)
		return
	}

	result, err := h.payrollService.GetPayrollRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListPayrollRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := payroll.PayrollFilter{
		Page:      1,
		Limit:     20,
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}

	if page, err := strconv.Atoi(query.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if month, err := strconv.Atoi(query.Get("period_month")); err == nil {
		filter.PeriodMonth = &month
	}
	if year, err := strconv.Atoi(query.Get("period_year")); err == nil {
		filter.PeriodYear = &year
	}
	if employeeID := query.Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if processed, err := strconv.ParseBool(query.Get("is_processed")); err == nil {
		filter.IsProcessed = &processed
	}

	result, err := h.payrollService.ListPayrollRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	totalPages := 0
	if result.Limit > 0 {
		totalPages = int((result.TotalCount + int64(result.Limit) - 1) / int64(result.Limit))
	}
	response.SuccessWithMeta(w, result.Data, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: totalPages,
	})
}

func (h *payrollHandlerImpl) DeletePayrollRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Record ID is required", nil)
		return
	}

	if err := h.payrollService.DeletePayrollRecord(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll record deleted successfully", nil)
}

// ========== BATCH & DISTRIBUTION ==========

// GeneratePayroll runs the batch inline, or on the worker when ?async=true and a
// queue is configured.
func (h *payrollHandlerImpl) GeneratePayroll(w http.ResponseWriter, r *http.Request) {
	var req payroll.GeneratePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async && h.queue != nil {
		if err := req.Validate(); err != nil {
			response.HandleError(w, err)
			return
		}
		info, err := h.queue.EnqueueGenerate(r.Context(), jobs.GeneratePayload{
			CompanyID:   requestctx.CompanyID(r.Context()),
			PeriodMonth: req.PeriodMonth,
			PeriodYear:  req.PeriodYear,
			EmployeeIDs: req.EmployeeIDs,
			RequestedBy: requestctx.UserID(r.Context()),
		})
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Accepted(w, "Payroll generation queued", taskAccepted{TaskID: info.ID, Queue: info.Queue, Type: info.Type})
		return
	}

	result, err := h.payrollService.GeneratePayroll(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll generated", result)
}

func (h *payrollHandlerImpl) DistributePayslips(w http.ResponseWriter, r *http.Request) {
	var req payroll.DistributePayslipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if h.queue == nil {
		result, err := h.payrollService.DistributePayslips(r.Context(), req)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.SuccessWithMessage(w, "Payslips distributed", result)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}
	info, err := h.queue.EnqueueDistribute(r.Context(), jobs.DistributePayload{
		CompanyID:   requestctx.CompanyID(r.Context()),
		RecordIDs:   req.RecordIDs,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
		CC:          req.CC,
		RequestedBy: requestctx.UserID(r.Context()),
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Payslip distribution queued", taskAccepted{TaskID: info.ID, Queue: info.Queue, Type: info.Type})
}

// ========== SUMMARY ==========

func (h *payrollHandlerImpl) GetPayrollSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	monthStr, yearStr := query.Get("month"), query.Get("year")
	if monthStr == "" || yearStr == "" {
		response.BadRequest(w, "month and year are required", nil)
		return
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil {
		response.BadRequest(w, "Invalid month", nil)
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		response.BadRequest(w, "Invalid year", nil)
		return
	}

	result, err := h.payrollService.GetPayrollSummary(r.Context(), month, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== CUSTOM FIELDS ==========

func (h *payrollHandlerImpl) ListCustomFields(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.ListCustomFields(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ReplaceCustomFields(w http.ResponseWriter, r *http.Request) {
	var req payroll.ReplaceCustomFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.ReplaceCustomFields(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Custom fields updated", result)
}
