package channels

import (
	"context"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const defaultEmailSubject = "Notification"

// Email delivers notifications through an email.Sender.
type Email struct {
	base
	sender email.Sender
}

// NewEmail creates the email dispatcher.
func NewEmail(sender email.Sender, opts ...Option) *Email {
	return &Email{base: newBase(notifications.ChannelEmail, opts), sender: sender}
}

// Deliver implements notifications.Dispatcher.
func (e *Email) Deliver(ctx context.Context, d notifications.Delivery) notifications.Outcome {
	msg := email.Message{
		To:       d.Destination,
		Subject:  d.Subject,
		TextBody: d.Body,
		Tag:      stringMeta(d.Metadata, "template"),
	}
	if msg.Subject == "" {
		msg.Subject = defaultEmailSubject
	}
	if looksLikeHTML(d.Body) {
		msg.HTMLBody = d.Body
	}
	return e.call(ctx, d, func() (string, error) { return e.sender.Send(ctx, msg) })
}

func looksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<") && strings.Contains(s, "</")
}

func stringMeta(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
