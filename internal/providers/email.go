package providers

import (
	"context"
	"fmt"

	"fireguard/internal/models"
	"fireguard/pkg/email"
)

type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	Username   string
	Password   string
}

// EmailDeliverer sends alerts through the configured SMTP account.
type EmailDeliverer struct {
	cfg  EmailConfig
	send func(server string, port int, username, password, to, subject, body string) error
}

func NewEmailDeliverer(cfg EmailConfig) *EmailDeliverer {
	return &EmailDeliverer{cfg: cfg, send: email.Send}
}

func (e *EmailDeliverer) Deliver(ctx context.Context, address string, alert models.FireAlert) error {
	if e.cfg.SMTPServer == "" || e.cfg.SMTPPort == 0 || e.cfg.Username == "" || e.cfg.Password == "" {
		return fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// net/smtp has no context support; the dispatch deadline bounds the
	// overall fan-out instead.
	if err := e.send(e.cfg.SMTPServer, e.cfg.SMTPPort, e.cfg.Username, e.cfg.Password, address, alert.Subject(), alert.Body()); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", address, err)
	}
	return nil
}
