// Package mailer sends the registration welcome email over SMTP. The mailer
// is optional: when SMTP settings are absent the application runs without it.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Sender is the mail contract consumed by the sign-up flow.
type Sender interface {
	SendWelcome(toEmail, name, userType string) error
}

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer implements Sender over plain SMTP with AUTH.
type SMTPMailer struct {
	cfg Config
}

// NewSMTPMailer creates an SMTPMailer from config.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendWelcome sends the post-registration welcome email. A failure here never
// fails the sign-up; callers log and move on.
func (m *SMTPMailer) SendWelcome(toEmail, name, userType string) error {
	if toEmail == "" {
		return fmt.Errorf("recipient email cannot be empty")
	}

	subject := "Welcome to ProCare"
	body := fmt.Sprintf(
		"<html><body><h1>Welcome, %s!</h1>"+
			"<p>Your ProCare account has been created as a %s.</p>"+
			"<p>You can now sign in and upload medical images for analysis.</p>"+
			"</body></html>", name, userType)

	headers := []string{
		"From: " + m.cfg.From,
		"To: " + toEmail,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{toEmail}, []byte(message)); err != nil {
		return fmt.Errorf("send welcome mail to %s: %w", toEmail, err)
	}
	return nil
}
