// Package alert sends operational alert emails. Alerts are strictly
// best-effort; a failing SMTP relay must never affect request handling.
package alert

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"
)

// Sender delivers an operational alert to the on-call mailbox.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// Noop discards alerts. Used when alert email is disabled.
type Noop struct{}

func (Noop) Send(context.Context, string, string) error { return nil }

// Mailer sends alerts over SMTP.
type Mailer struct {
	cfg config.AlertConfig
	log *logger.Logger
}

// NewMailer creates an SMTP alert sender, or a Noop when alerting is disabled.
func NewMailer(cfg config.AlertConfig, log *logger.Logger) Sender {
	if !cfg.IsAlertEnabled() {
		return Noop{}
	}
	return &Mailer{cfg: cfg, log: log}
}

// Send delivers one alert email.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat("Funnel Backend", m.cfg.GetAlertFromAddress()); err != nil {
		return fmt.Errorf("alert from address: %w", err)
	}
	if err := msg.To(m.cfg.GetAlertToAddress()); err != nil {
		return fmt.Errorf("alert to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.GetAlertSMTPPort()),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.GetAlertSMTPUsername() != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.GetAlertSMTPUsername()),
			mail.WithPassword(m.cfg.GetAlertSMTPPassword()),
		)
	}

	client, err := mail.NewClient(m.cfg.GetAlertSMTPHost(), opts...)
	if err != nil {
		return fmt.Errorf("alert smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	m.log.Info("alert email sent", "subject", subject)
	return nil
}
