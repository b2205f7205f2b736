package email

import (
	"errors"
	"io"
	"net/smtp"
	"testing"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSender(send func(e *email.Email, addr string, auth smtp.Auth) error) *Sender {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := NewSender(&config.Config{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "2525",
		SenderEmail: "noreply@example.com",
	}, log)
	s.send = send
	return s
}

func TestSendAssessmentNotification(t *testing.T) {
	var (
		sent *email.Email
		addr string
	)
	s := testSender(func(e *email.Email, a string, _ smtp.Auth) error {
		sent, addr = e, a
		return nil
	})

	res := models.AssessmentResult{
		ID:        "abc",
		ClientID:  "10",
		Profile:   models.ClientProfile{FirstName: "Samuel", LastName: "Farley", LoanAmountRequested: 26102},
		RiskScore: 30,
		Approval:  models.ConditionalApproval,
		Insights:  "Client has a fair profile.",
	}
	require.NoError(t, s.SendAssessmentNotification("review@example.com", res))

	assert.Equal(t, "smtp.example.com:2525", addr)
	assert.Equal(t, []string{"review@example.com"}, sent.To)
	assert.Equal(t, "noreply@example.com", sent.From)
	assert.Equal(t, "Loan assessment for client 10: Conditional Approval", sent.Subject)
	assert.Contains(t, string(sent.Text), "Samuel Farley (10)")
	assert.Contains(t, string(sent.Text), "Requested loan: $26102.00")
	assert.Contains(t, string(sent.Text), "Client has a fair profile.")
}

func TestSendFailedAssessmentNotification(t *testing.T) {
	var sent *email.Email
	s := testSender(func(e *email.Email, _ string, _ smtp.Auth) error {
		sent = e
		return nil
	})

	res := models.AssessmentResult{ID: "abc", DocumentCount: 2, Error: "no profile", ErrorCode: models.ErrCodeNoProfile}
	require.NoError(t, s.SendAssessmentNotification("review@example.com", res))
	assert.Equal(t, "Loan assessment abc failed", sent.Subject)
	assert.Contains(t, string(sent.Text), "Reason: no profile")
}

func TestSendAssessmentNotificationError(t *testing.T) {
	s := testSender(func(*email.Email, string, smtp.Auth) error {
		return errors.New("connection refused")
	})

	err := s.SendAssessmentNotification("review@example.com", models.AssessmentResult{ID: "abc"})
	assert.ErrorContains(t, err, "connection refused")
}
