package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/spf13/viper"
	gomail "gopkg.in/gomail.v2"
)

// Mail delivers notifications as plain-text mail over SMTP.
type Mail struct {
	dialer    *gomail.Dialer
	from      string
	recipient string
}

// NewMail builds the SMTP dialer from notify.smtp.* config.
func NewMail() (*Mail, error) {
	server := viper.GetString("notify.smtp.server")
	if server == "" {
		return nil, fmt.Errorf("notify.smtp.server is not configured")
	}

	recipient := viper.GetString("notify.smtp.recipient")
	if recipient == "" {
		return nil, fmt.Errorf("notify.smtp.recipient is not configured")
	}

	port := viper.GetInt("notify.smtp.port")
	user := viper.GetString("notify.smtp.username")
	pass := viper.GetString("notify.smtp.password")

	dialer := gomail.NewDialer(server, port, user, pass)

	// Secure transport: SSL when configured, otherwise STARTTLS with
	// optional certificate leniency for self-hosted servers.
	if viper.GetString("notify.smtp.security") == "ssl" {
		dialer.SSL = true
	} else {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Mail{dialer: dialer, from: user, recipient: recipient}, nil
}

func (m *Mail) NotifyCode(_ context.Context, code, subject, sender string) error {
	return m.send("Verification code received", formatCode(code, subject, sender))
}

func (m *Mail) NotifyConfirmation(_ context.Context, identity string, succeeded bool, reason string) error {
	subject := "Household confirmation succeeded"
	if !succeeded {
		subject = "Household confirmation failed"
	}
	return m.send(subject, formatConfirmation(identity, succeeded, reason))
}

func (m *Mail) NotifyError(_ context.Context, message, detail string) {
	if err := m.send("Mail sentinel error", formatError(message, detail)); err != nil {
		logDeliveryFailure("mail", err)
	}
}

func (m *Mail) send(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
