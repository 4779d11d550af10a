package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// NewBreaker returns a circuit breaker that opens once at least three
// requests in a one-minute window failed at a 60% ratio, and probes again
// after a minute.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})
}

// Option configures a dispatcher.
type Option func(*base)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBreaker replaces the default circuit breaker. Nil disables it.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(b *base) { b.breaker = cb }
}

type base struct {
	channel notifications.Channel
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func newBase(c notifications.Channel, opts []Option) base {
	b := base{
		channel: c,
		breaker: NewBreaker("notifications." + c.String()),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// call runs fn through the breaker and converts the result into an Outcome.
func (b base) call(ctx context.Context, d notifications.Delivery, fn func() (string, error)) notifications.Outcome {
	var id string
	err := b.guard(func() error {
		var err error
		id, err = fn()
		return err
	})
	if err != nil {
		b.logFailure(ctx, d.NotificationID, err)
		return notifications.Failed(err.Error())
	}
	return notifications.Delivered(id)
}

// guard runs fn through the breaker, if any. A panic in fn is returned as an
// error and counts as a breaker failure.
func (b base) guard(fn func() error) error {
	run := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s provider panicked: %v", b.channel, r)
			}
		}()
		return fn()
	}
	if b.breaker == nil {
		return run()
	}

	_, err := b.breaker.Execute(func() (any, error) { return nil, run() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s provider unavailable: %w", b.channel, err)
	}
	return err
}

func (b base) logFailure(ctx context.Context, notificationID string, err error) {
	b.logger.LogAttrs(ctx, slog.LevelWarn, "delivery attempt failed",
		logger.Component("dispatcher"),
		logger.Channel(b.channel.String()),
		logger.NotificationID(notificationID),
		logger.Error(err),
	)
}
