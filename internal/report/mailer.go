package report

import (
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// MailConfig — настройки SMTP для рассылки отчётов.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

// Mailer отправляет отчёты по SMTP.
type Mailer struct {
	dialer     *gomail.Dialer
	from       string
	recipients []string
}

// NewMailer создаёт Mailer по настройкам SMTP.
func NewMailer(cfg MailConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("incomplete mail config")
	}

	return &Mailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.From,
		recipients: cfg.Recipients,
	}, nil
}

// Send отправляет письмо с вложением attachment.
func (m *Mailer) Send(subject, body, attachmentName string, attachment []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	msg.Attach(attachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(attachment)
		return err
	}))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send report email: %w", err)
	}

	return nil
}
