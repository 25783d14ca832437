package notification

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/storeops/uptime-server/pkg/config"
)

// EmailNotifier alerts operators about failed report jobs
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

var failureTemplate = template.Must(template.New("failed").Parse(`
Report Job Failed
=================

Report ID: {{.ReportID}}
Error Kind: {{.ErrorKind}}
Failed At: {{.FailedAt}}

Detail:
{{.ErrorMessage}}

---
Uptime Server Notification System
`))

// NotifyJobFailed sends a failure alert. Errors are logged and swallowed:
// a broken mail path must never affect the job outcome.
func (e *EmailNotifier) NotifyJobFailed(reportID, errorKind, errorMessage string) {
	subject := fmt.Sprintf("Report job failed - %s (%s)", reportID, errorKind)

	var buf bytes.Buffer
	err := failureTemplate.Execute(&buf, map[string]string{
		"ReportID":     reportID,
		"ErrorKind":    errorKind,
		"ErrorMessage": errorMessage,
		"FailedAt":     time.Now().UTC().Format(time.RFC1123Z),
	})
	if err != nil {
		fmt.Printf("Failed to render failure email: %v\n", err)
		return
	}

	if err := e.sendEmail(subject, buf.String()); err != nil {
		fmt.Printf("Failed to send failure email: %v\n", err)
	}
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}
