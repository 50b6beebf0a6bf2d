// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Message is one outgoing email. Text is required; HTML is sent as an
// alternative part when present.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer delivers through an SMTP relay.
type Mailer struct {
	from   string
	dialer dialer
	logg   *logger.Logger
}

// New returns an SMTP sender, or a Disabled sender when SMTP is not configured.
func New(cfg config.SMTPConfig, logg *logger.Logger) Sender {
	if !cfg.Enabled() {
		return Disabled{logg: logg}
	}
	return &Mailer{
		from:   strings.TrimSpace(cfg.From),
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logg:   logg,
	}
}

// Send validates msg and hands it to the relay.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(msg); err != nil {
		return err
	}

	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", strings.TrimSpace(msg.To))
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		out.AddAlternative("text/html", msg.HTML)
	}

	if err := m.dialer.DialAndSend(out); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if m.logg != nil {
		m.logg.Debug(m.logg.WithField(ctx, "subject", msg.Subject), "email sent")
	}
	return nil
}

func validate(msg Message) error {
	switch {
	case strings.TrimSpace(msg.To) == "":
		return errors.New("email recipient required")
	case strings.TrimSpace(msg.Subject) == "":
		return errors.New("email subject required")
	case msg.Text == "" && msg.HTML == "":
		return errors.New("email body required")
	}
	return nil
}

// Disabled drops every message. It is used when no relay is configured.
type Disabled struct {
	logg *logger.Logger
}

func (d Disabled) Send(ctx context.Context, msg Message) error {
	if d.logg != nil {
		d.logg.Warn(d.logg.WithField(ctx, "subject", msg.Subject), "smtp disabled, email dropped")
	}
	return nil
}
