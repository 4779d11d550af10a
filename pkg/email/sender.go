package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers a single email and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Message is one outbound email.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body,omitempty"`
	TextBody string `json:"text_body,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidAddress reports whether s looks like a deliverable email address.
func IsValidAddress(s string) bool {
	return emailRegex.MatchString(s)
}

// Validate checks the message before it reaches a provider.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return errorf(ErrInvalidParams, "recipient is required")
	case !IsValidAddress(m.To):
		return errorf(ErrInvalidParams, "recipient must be a valid email address")
	case strings.TrimSpace(m.Subject) == "":
		return errorf(ErrInvalidParams, "subject is required")
	case m.HTMLBody == "" && m.TextBody == "":
		return errorf(ErrInvalidParams, "body is required")
	}
	return nil
}

func errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
