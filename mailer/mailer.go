// Package mailer delivers account-verification email. Only the contract
// matters to the rest of the service; the SMTP details stay here.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type Mailer interface {
	SendVerification(ctx context.Context, to string, link string) error
}

type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%s", host, port),
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) SendVerification(_ context.Context, to string, link string) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verify your account\r\n\r\n"+
		"Welcome! Confirm your email by opening this link:\r\n\r\n%s\r\n",
		m.from, to, link)

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(body))
}

// LogMailer stands in when SMTP is not configured, e.g. local development.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(_ context.Context, to string, link string) error {
	m.logger.Info("verification mail (smtp disabled)",
		zap.String("to", to),
		zap.String("link", link),
	)
	return nil
}
