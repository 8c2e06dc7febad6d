package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/mmynk/meetcost/internal/models"
)

// Ensure SMTPSink implements Sink
var _ Sink = (*SMTPSink)(nil)

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address; defaults to Username.
	From  string
	Retry RetryPolicy
}

// deliverer is the part of *gomail.Client the sink uses.
type deliverer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPSink sends multipart (plain text + HTML) email over implicit TLS.
type SMTPSink struct {
	cfg    SMTPConfig
	client deliverer
}

// NewSMTPSink creates an SMTPSink with PLAIN authentication.
func NewSMTPSink(cfg SMTPConfig) (*SMTPSink, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSSL(),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &SMTPSink{cfg: cfg, client: client}, nil
}

// Send delivers one email, retrying transient failures.
func (s *SMTPSink) Send(ctx context.Context, to, subject, body string) error {
	msg, err := s.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
			slog.Warn("SMTP send failed", "to", to, "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	if err := s.cfg.Retry.retry(ctx, op); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	slog.Info("Email sent", "to", to, "subject", subject)
	return nil
}

func (s *SMTPSink) buildMessage(to, subject, body string) (*gomail.Msg, error) {
	html, err := RenderHTML(subject, body)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w: %w", s.cfg.From, models.ErrInvalidAddress, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w: %w", to, models.ErrInvalidAddress, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)

	return msg, nil
}
