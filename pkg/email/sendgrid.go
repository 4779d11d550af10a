package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridSendPath = "/v3/mail/send"

// SendGridOption configures the SendGrid sender.
type SendGridOption func(*sendgrid.Client)

// WithSendGridHost replaces the API host, e.g. for a test server.
func WithSendGridHost(host string) SendGridOption {
	return func(c *sendgrid.Client) {
		c.BaseURL = strings.TrimSuffix(host, "/") + sendGridSendPath
	}
}

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
	config Config
}

// NewSendGridSender creates a SendGrid-backed sender.
func NewSendGridSender(cfg Config, opts ...SendGridOption) (*SendGridSender, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, errorf(ErrInvalidConfig, "SendGridAPIKey is required")
	}
	if err := cfg.validateSender(); err != nil {
		return nil, err
	}

	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	for _, opt := range opts {
		opt(client)
	}
	return &SendGridSender{
		client: client,
		from:   mail.NewEmail(cfg.SenderName, cfg.SenderEmail),
		config: cfg,
	}, nil
}

// Send implements Sender. The message ID comes from the X-Message-Id header.
func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.TextBody, msg.HTMLBody)
	if s.config.SupportEmail != "" {
		m.SetReplyTo(mail.NewEmail("", s.config.SupportEmail))
	}
	if msg.Tag != "" {
		m.AddCategories(msg.Tag)
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.StatusCode >= 300 {
		return "", errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("sendgrid error: %d - %s", resp.StatusCode, strings.TrimSpace(resp.Body)),
		)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
