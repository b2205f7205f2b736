package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger logrus.FieldLogger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger logrus.FieldLogger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send:   (*email.Email).Send,
	}
}

// SendAssessmentNotification tells a reviewer that an assessment finished
func (s *Sender) SendAssessmentNotification(to string, res models.AssessmentResult) error {
	e := buildAssessmentEmail(s.cfg.SenderEmail, to, res)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send assessment %s notification to %s: %v", res.ID, to, err)
		return fmt.Errorf("failed to send assessment notification: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func buildAssessmentEmail(from, to string, res models.AssessmentResult) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{to}

	var body strings.Builder
	body.WriteString("Hello,\n\n")
	if res.Failed() {
		e.Subject = fmt.Sprintf("Loan assessment %s failed", res.ID)
		fmt.Fprintf(&body, "The assessment of %d submitted documents could not be completed.\n"+
			"Reason: %s\n", res.DocumentCount, res.Error)
	} else {
		e.Subject = fmt.Sprintf("Loan assessment for client %s: %s", res.ClientID, res.Approval)
		fmt.Fprintf(&body,
			"Client: %s (%s)\n"+
				"Requested loan: $%.2f\n"+
				"Risk score: %d\n"+
				"Approval: %s\n"+
				"Fraud risk: %s\n"+
				"Investment viability: %s\n\n"+
				"%s\n",
			res.Profile.FullName(), res.ClientID, res.Profile.LoanAmountRequested,
			res.RiskScore, res.Approval, res.FraudRisk, res.Viability, res.Insights,
		)
	}
	fmt.Fprintf(&body, "\nAssessment id: %s\n", res.ID)
	body.WriteString("\nBest regards,\nLoan Assessment Service")
	e.Text = []byte(body.String())
	return e
}
