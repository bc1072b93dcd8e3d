package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueuePayroll holds every payroll task.
	QueuePayroll = "payroll"

	TaskPayrollDistribute = "payroll:distribute"
	TaskPayrollGenerate   = "payroll:generate"
)

// DistributePayload selects the records to email. CompanyID is taken from the
// authenticated caller when the task is enqueued.
type DistributePayload struct {
	CompanyID   string   `json:"company_id"`
	RecordIDs   []string `json:"record_ids,omitempty"`
	PeriodMonth *int     `json:"period_month,omitempty"`
	PeriodYear  *int     `json:"period_year,omitempty"`
	CC          []string `json:"cc,omitempty"`
	RequestedBy string   `json:"requested_by,omitempty"`
}

type GeneratePayload struct {
	CompanyID   string   `json:"company_id"`
	PeriodMonth int      `json:"period_month"`
	PeriodYear  int      `json:"period_year"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
	RequestedBy string   `json:"requested_by,omitempty"`
}

func NewDistributeTask(payload DistributePayload) (*asynq.Task, error) {
	return newTask(TaskPayrollDistribute, payload.CompanyID, payload)
}

func NewGenerateTask(payload GeneratePayload) (*asynq.Task, error) {
	return newTask(TaskPayrollGenerate, payload.CompanyID, payload)
}

func newTask(taskType, companyID string, payload interface{}) (*asynq.Task, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, fmt.Errorf("%s: company id is required", taskType)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, data), nil
}
