package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Sender delivers a text message and returns the provider's message ID.
// To must already be in E.164 form.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Message is one outbound SMS.
type Message struct {
	To   string
	Body string
}

func (m Message) validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: missing number", ErrInvalidNumber)
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	return nil
}

// LogSender writes messages to the logger instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a development sender. A nil logger uses slog.Default().
func NewLogSender(l *slog.Logger) *LogSender {
	if l == nil {
		l = slog.Default()
	}
	return &LogSender{logger: l}
}

// Send logs the message and returns a generated ID.
func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "sms captured",
		logger.Component("sms"),
		logger.MessageID(id),
		slog.String("to", msg.To),
		slog.String("body", msg.Body),
	)
	return id, nil
}

// New builds the sender selected by cfg.Provider.
func New(cfg Config, l *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case ProviderTwilio:
		s, err := NewTwilioSender(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderLog, "":
		return NewLogSender(l), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
