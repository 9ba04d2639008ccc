package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sync"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"storefront/internal/config"
	"storefront/internal/model"
)

// Notifier delivers account notifications.
type Notifier interface {
	SendWelcome(ctx context.Context, user *model.UserView) error
}

// Noop drops every notification. It is used when SMTP is not configured.
type Noop struct{}

func (Noop) SendWelcome(context.Context, *model.UserView) error { return nil }

// SMTPMailer sends notifications by email.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSMTPMailer creates a mailer for the given SMTP settings.
func NewSMTPMailer(cfg config.SMTPConfig, logger *logrus.Logger) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, logger: logger}
	m.send = func(e *email.Email) error {
		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return e.Send(cfg.Addr(), auth)
	}
	return m
}

// New returns an SMTP mailer when SMTP is configured and Noop otherwise.
func New(cfg config.SMTPConfig, logger *logrus.Logger) Notifier {
	if !cfg.Enabled() {
		return Noop{}
	}
	return NewSMTPMailer(cfg, logger)
}

// SendWelcome sends the registration welcome mail.
func (m *SMTPMailer) SendWelcome(ctx context.Context, user *model.UserView) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := welcomeEmail(m.cfg.From, user)
	if err := m.send(e); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	m.logger.WithField("user_id", user.ID).Info("welcome email sent")
	return nil
}

func welcomeEmail(from string, user *model.UserView) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{user.Email}
	e.Subject = "Welcome to the store"
	e.Text = []byte(fmt.Sprintf(
		"Hi %s,\n\nYour account has been created. You can now sign in with %s.\n\nThe Store Team",
		user.Username, user.Email,
	))
	return e
}

// Async dispatches notifications in the background so callers never wait on delivery.
// Failures are logged.
type Async struct {
	next   Notifier
	logger *logrus.Logger
	wg     sync.WaitGroup
}

// NewAsync wraps next.
func NewAsync(next Notifier, logger *logrus.Logger) *Async {
	return &Async{next: next, logger: logger}
}

// SendWelcome queues the welcome mail and returns immediately.
func (a *Async) SendWelcome(ctx context.Context, user *model.UserView) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.next.SendWelcome(context.WithoutCancel(ctx), user); err != nil {
			a.logger.WithError(err).WithField("user_id", user.ID).Warn("welcome notification failed")
		}
	}()
	return nil
}

// Wait blocks until queued notifications finish.
func (a *Async) Wait() {
	a.wg.Wait()
}
