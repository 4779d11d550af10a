package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Message is one push notification addressed to a device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Result is the per-message outcome of a batch.
type Result struct {
	MessageID string
	Err       error
}

// Sender delivers push notifications and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// BatchSender is implemented by senders able to deliver several messages in
// one call. Results are in input order.
type BatchSender interface {
	Sender
	SendBatch(ctx context.Context, msgs []Message) []Result
}

// sendConcurrently fans msgs out to send with at most limit calls in flight.
func sendConcurrently(ctx context.Context, limit int, msgs []Message, send func(context.Context, Message) (string, error)) []Result {
	results := make([]Result, len(msgs))
	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, msg := range msgs {
		g.Go(func() error {
			id, err := send(ctx, msg)
			results[i] = Result{MessageID: id, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// LogSender writes push messages to the logger instead of delivering them.
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
	if msg.Token == "" {
		return "", ErrMissingToken
	}
	id := uuid.NewString()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "push captured",
		logger.Component("push"),
		logger.MessageID(id),
		slog.String("title", msg.Title),
		slog.String("body", msg.Body),
	)
	return id, nil
}

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg Config, l *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case ProviderFCM:
		s, err := NewFCMSender(ctx, cfg)
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
