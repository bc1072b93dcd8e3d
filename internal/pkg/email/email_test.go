package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(t *testing.T, failures int) (*emailServiceImpl, *[]sentMail, *int) {
	t.Helper()
	var sent []sentMail
	calls := 0
	svc, err := newEmailService(config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     2525,
		From:     "payroll@example.com",
		FromName: "Acme Payroll",
	}, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		if calls <= failures {
			return errors.New("connection refused")
		}
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	})
	require.NoError(t, err)
	svc.backoff = func(int) time.Duration { return time.Millisecond }
	return svc, &sent, &calls
}

func testMessage() PayslipMessage {
	return PayslipMessage{
		To:              "jane@example.com",
		CC:              []string{"hr@example.com"},
		EmployeeName:    "Jane Doe",
		CompanyName:     "Acme Corp",
		PeriodLabel:     "March 2025",
		BasicSalary:     "USD 50,000.00",
		TotalAllowances: "USD 2,000.00",
		TotalDeductions: "USD 4,000.00",
		NetPay:          "USD 48,000.00",
		Attachment:      []byte("%PDF-1.3 fake"),
		AttachmentName:  "payslip-2025-03.pdf",
	}
}

func TestEmailService_SendPayslip(t *testing.T) {
	svc, sent, _ := newTestService(t, 0)

	err := svc.SendPayslip(context.Background(), testMessage())
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:2525", mail.addr)
	assert.Equal(t, "payroll@example.com", mail.from)
	assert.Equal(t, []string{"jane@example.com", "hr@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Cc: hr@example.com\r\n")
	assert.Contains(t, mail.msg, "multipart/mixed")
	assert.Contains(t, mail.msg, "Jane Doe")
	assert.Contains(t, mail.msg, "USD 48,000.00")
	assert.Contains(t, mail.msg, `filename="payslip-2025-03.pdf"`)
	assert.True(t, strings.Contains(mail.msg, "JVBERi0xLjMgZmFrZQ=="), "attachment must be base64 encoded")
}

func TestEmailService_SendPayslip_Retries(t *testing.T) {
	svc, sent, calls := newTestService(t, 2)

	require.NoError(t, svc.SendPayslip(context.Background(), testMessage()))
	assert.Equal(t, 3, *calls)
	assert.Len(t, *sent, 1)
}

func TestEmailService_SendPayslip_GivesUp(t *testing.T) {
	svc, sent, calls := newTestService(t, maxRetries)

	err := svc.SendPayslip(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, maxRetries, *calls)
	assert.Empty(t, *sent)
}

func TestEmailService_SendPayslip_NotConfigured(t *testing.T) {
	svc, err := newEmailService(config.SMTPConfig{}, func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not send without SMTP host")
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, svc.SendPayslip(context.Background(), testMessage()))
}

func TestEmailService_SendPayslip_EmptyRecipient(t *testing.T) {
	svc, _, calls := newTestService(t, 0)

	msg := testMessage()
	msg.To = " "
	assert.Error(t, svc.SendPayslip(context.Background(), msg))
	assert.Zero(t, *calls)
}
