package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/jobs"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/requestctx"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

// stubPayrollService records the tenant it was called with and returns canned results.
type stubPayrollService struct {
	payroll.PayrollService

	companyID   string
	upsertReq   payroll.UpsertPayrollRequest
	filter      payroll.PayrollFilter
	distributed bool
	err         error
}

func (s *stubPayrollService) GenerateOrUpdate(ctx context.Context, req payroll.UpsertPayrollRequest) (payroll.PayrollRecordResponse, error) {
	s.companyID = requestctx.CompanyID(ctx)
	s.upsertReq = req
	if s.err != nil {
		return payroll.PayrollRecordResponse{}, s.err
	}
	return payroll.PayrollRecordResponse{ID: "rec-1", EmployeeID: req.EmployeeID, NetPay: decimal.RequireFromString("48000")}, nil
}

func (s *stubPayrollService) GetPayrollRecord(ctx context.Context, id string) (payroll.PayrollRecordResponse, error) {
	s.companyID = requestctx.CompanyID(ctx)
	if s.err != nil {
		return payroll.PayrollRecordResponse{}, s.err
	}
	return payroll.PayrollRecordResponse{ID: id}, nil
}

func (s *stubPayrollService) ListPayrollRecords(ctx context.Context, filter payroll.PayrollFilter) (payroll.ListPayrollRecordResponse, error) {
	s.companyID = requestctx.CompanyID(ctx)
	s.filter = filter
	return payroll.ListPayrollRecordResponse{
		Data:       []payroll.PayrollRecordResponse{{ID: "rec-1"}},
		TotalCount: 21,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *stubPayrollService) GeneratePayroll(ctx context.Context, req payroll.GeneratePayrollRequest) (payroll.BatchResult, error) {
	s.companyID = requestctx.CompanyID(ctx)
	return payroll.BatchResult{PeriodMonth: req.PeriodMonth, PeriodYear: req.PeriodYear, ProcessedCount: 4, FailedCount: 1}, s.err
}

func (s *stubPayrollService) DistributePayslips(ctx context.Context, req payroll.DistributePayslipsRequest) (payroll.DistributionResult, error) {
	s.companyID = requestctx.CompanyID(ctx)
	s.distributed = true
	return payroll.DistributionResult{SentCount: 2, SkippedCount: 1}, s.err
}

func (s *stubPayrollService) GetPayrollSummary(ctx context.Context, month, year int) (payroll.PayrollSummaryResponse, error) {
	s.companyID = requestctx.CompanyID(ctx)
	return payroll.PayrollSummaryResponse{PeriodMonth: month, PeriodYear: year, TotalEmployees: 3}, s.err
}

type stubQueue struct {
	distribute []jobs.DistributePayload
	generate   []jobs.GeneratePayload
}

func (q *stubQueue) EnqueueDistribute(_ context.Context, payload jobs.DistributePayload) (*asynq.TaskInfo, error) {
	q.distribute = append(q.distribute, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueuePayroll, Type: jobs.TaskPayrollDistribute}, nil
}

func (q *stubQueue) EnqueueGenerate(_ context.Context, payload jobs.GeneratePayload) (*asynq.TaskInfo, error) {
	q.generate = append(q.generate, payload)
	return &asynq.TaskInfo{ID: "task-2", Queue: jobs.QueuePayroll, Type: jobs.TaskPayrollGenerate}, nil
}

type handlerEnv struct {
	router  http.Handler
	jwt     *jwt.JWTService
	service *stubPayrollService
	queue   *stubQueue
}

func newHandlerEnv(t *testing.T, withQueue bool) *handlerEnv {
	t.Helper()
	env := &handlerEnv{
		jwt:     jwt.NewJWTService(handlerTestSecret, time.Hour),
		service: &stubPayrollService{},
		queue:   &stubQueue{},
	}

	var queue TaskQueue
	if withQueue {
		queue = env.queue
	}
	env.router = NewRouter(RouterConfig{AllowedOrigins: []string{"http://localhost:3000"}, DistributionRateLimit: 2},
		env.jwt, NewPayrollHandler(env.service, queue))
	return env
}

func (e *handlerEnv) token(t *testing.T, role user.Role, companyID string) string {
	t.Helper()
	claims := user.Claims{UserID: "user-1", Email: "user@acme.test", Role: role}
	if companyID != "" {
		claims.CompanyID = &companyID
	}
	token, _, err := e.jwt.GenerateAccessToken(claims)
	require.NoError(t, err)
	return token
}

func (e *handlerEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		TotalItems int64 `json:"total_items"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestPayrollHandler_RequiresToken(t *testing.T) {
	env := newHandlerEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/v1/payroll/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPayrollHandler_RequiresCompany(t *testing.T) {
	env := newHandlerEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/v1/payroll/records", env.token(t, user.RoleOwner, ""), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPayrollHandler_RequiresPermission(t *testing.T) {
	env := newHandlerEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/payroll/records", env.token(t, user.RoleEmployee, "company-1"),
		map[string]interface{}{"employee_id": "emp-1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.service.companyID)
}

func TestPayrollHandler_UpsertUsesTokenCompany(t *testing.T) {
	env := newHandlerEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/payroll/records", env.token(t, user.RoleManager, "company-1"), map[string]interface{}{
		"employee_id":  "emp-1",
		"period_month": 3,
		"period_year":  2025,
		"basic_salary": "50000",
		"allowances":   map[string]string{"operational": "2000"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "company-1", env.service.companyID)
	assert.True(t, decimal.RequireFromString("50000").Equal(*env.service.upsertReq.BasicSalary))
	assert.True(t, decimal.RequireFromString("2000").Equal(env.service.upsertReq.Allowances[payroll.AllowanceOperational]))

	body := decodeEnvelope(t, rec)
	assert.True(t, body.Success)
	var record payroll.PayrollRecordResponse
	require.NoError(t, json.Unmarshal(body.Data, &record))
	assert.Equal(t, "rec-1", record.ID)
}

func TestPayrollHandler_ErrorMapping(t *testing.T) {
	var verrs validator.ValidationErrors
	verrs.Add("period_month", "must be between 1 and 12")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "validation", err: verrs, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "employee missing", err: payroll.ErrEmployeeNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "cross tenant", err: fmt.Errorf("%w: %w", payroll.ErrEmployeeNotFound, payroll.ErrCrossTenantAccess), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "record missing", err: payroll.ErrPayrollRecordNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "no company", err: payroll.ErrCompanyIDRequired, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "unexpected", err: errors.New("db down"), status: http.StatusInternalServerError, code: "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newHandlerEnv(t, false)
			env.service.err = tt.err

			rec := env.do(t, http.MethodGet, "/api/v1/payroll/records/rec-9", env.token(t, user.RoleOwner, "company-1"), nil)
			assert.Equal(t, tt.status, rec.Code)

			body := decodeEnvelope(t, rec)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, rec.Body.String(), "db down")
		})
	}
}

func TestPayrollHandler_ListParsesFilter(t *testing.T) {
	env := newHandlerEnv(t, false)

	rec := env.do(t, http.MethodGet,
		"/api/v1/payroll/records?period_month=3&period_year=2025&is_processed=true&page=2&limit=10&sort_by=net_pay",
		env.token(t, user.RoleEmployee, "company-1"), nil)
	// employees hold no payroll permissions
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet,
		"/api/v1/payroll/records?period_month=3&period_year=2025&is_processed=true&page=2&limit=10&sort_by=net_pay",
		env.token(t, user.RoleOwner, "company-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	f := env.service.filter
	require.NotNil(t, f.PeriodMonth)
	assert.Equal(t, 3, *f.PeriodMonth)
	require.NotNil(t, f.IsProcessed)
	assert.True(t, *f.IsProcessed)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, "net_pay", f.SortBy)

	body := decodeEnvelope(t, rec)
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(21), body.Meta.TotalItems)
	assert.Equal(t, 3, body.Meta.TotalPages)
}

func TestPayrollHandler_DistributeRunsInlineWithoutQueue(t *testing.T) {
	env := newHandlerEnv(t, false)

	rec := env.do(t, http.MethodPost, "/api/v1/payroll/distribute", env.token(t, user.RoleOwner, "company-1"),
		map[string]interface{}{"record_ids": []string{"rec-1"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.service.distributed)

	var result payroll.DistributionResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, payroll.DistributionResult{SentCount: 2, SkippedCount: 1}, result)
}

func TestPayrollHandler_DistributeEnqueues(t *testing.T) {
	env := newHandlerEnv(t, true)

	month, year := 3, 2025
	rec := env.do(t, http.MethodPost, "/api/v1/payroll/distribute", env.token(t, user.RoleManager, "company-1"),
		map[string]interface{}{"period_month": month, "period_year": year, "cc": []string{"hr@acme.test"}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.False(t, env.service.distributed)

	require.Len(t, env.queue.distribute, 1)
	payload := env.queue.distribute[0]
	assert.Equal(t, "company-1", payload.CompanyID)
	assert.Equal(t, "user-1", payload.RequestedBy)
	assert.Equal(t, &month, payload.PeriodMonth)
	assert.Equal(t, []string{"hr@acme.test"}, payload.CC)

	var accepted taskAccepted
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &accepted))
	assert.Equal(t, "task-1", accepted.TaskID)
}

func TestPayrollHandler_DistributeValidatesBeforeEnqueue(t *testing.T) {
	env := newHandlerEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/v1/payroll/distribute", env.token(t, user.RoleOwner, "company-1"),
		map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, env.queue.distribute)
}

func TestPayrollHandler_DistributeIsRateLimited(t *testing.T) {
	env := newHandlerEnv(t, false)
	token := env.token(t, user.RoleOwner, "company-1")
	body := map[string]interface{}{"record_ids": []string{"rec-1"}}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/payroll/distribute", token, body).Code)
	}
	rec := env.do(t, http.MethodPost, "/api/v1/payroll/distribute", token, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPayrollHandler_Generate(t *testing.T) {
	env := newHandlerEnv(t, true)
	token := env.token(t, user.RoleOwner, "company-1")

	rec := env.do(t, http.MethodPost, "/api/v1/payroll/generate", token, map[string]int{"period_month": 3, "period_year": 2025})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result payroll.BatchResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, 4, result.ProcessedCount)
	assert.Equal(t, 1, result.FailedCount)

	rec = env.do(t, http.MethodPost, "/api/v1/payroll/generate?async=true", token, map[string]int{"period_month": 3, "period_year": 2025})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, env.queue.generate, 1)
	assert.Equal(t, 3, env.queue.generate[0].PeriodMonth)
}

func TestPayrollHandler_Summary(t *testing.T) {
	env := newHandlerEnv(t, false)
	token := env.token(t, user.RoleOwner, "company-1")

	rec := env.do(t, http.MethodGet, "/api/v1/payroll/summary", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/payroll/summary?month=3&year=2025", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary payroll.PayrollSummaryResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &summary))
	assert.Equal(t, int64(3), summary.TotalEmployees)
}

func TestRouter_Heartbeat(t *testing.T) {
	env := newHandlerEnv(t, false)
	rec := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
