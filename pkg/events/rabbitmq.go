package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Channel is the subset of *amqp.Channel used by this package.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dial connects to the broker, retrying until ctx expires.
func Dial(ctx context.Context, url string, timeout time.Duration) (*amqp.Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: RabbitMQURL is required", ErrInvalidConfig)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var lastErr error
	for {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to rabbitmq: %w", errors.Join(ctx.Err(), lastErr))
		case <-time.After(time.Second):
		}
	}
}

// declareExchange declares a durable topic exchange.
func declareExchange(ch Channel, name string) error {
	return ch.ExchangeDeclare(name, "topic", true, false, false, false, nil)
}

// RabbitPublisher publishes persistent JSON envelopes to topic exchanges.
// The exchange is the topic passed to Publish and is declared on first use.
// It is safe for concurrent use.
type RabbitPublisher struct {
	mu       sync.Mutex
	ch       Channel
	declared map[string]bool
	logger   *slog.Logger
	now      func() time.Time
}

// PublisherOption configures the publishers.
type PublisherOption func(*publisherOptions)

type publisherOptions struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithPublisherLogger sets the publisher logger.
func WithPublisherLogger(l *slog.Logger) PublisherOption {
	return func(o *publisherOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPublisherClock overrides the envelope timestamp source.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(o *publisherOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func newPublisherOptions(opts []PublisherOption) publisherOptions {
	o := publisherOptions{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRabbitPublisher creates a publisher on ch. The caller owns ch.
func NewRabbitPublisher(ch Channel, opts ...PublisherOption) *RabbitPublisher {
	o := newPublisherOptions(opts)
	return &RabbitPublisher{
		ch:       ch,
		declared: make(map[string]bool),
		logger:   o.logger,
		now:      o.now,
	}
}

// Publish implements notifications.Publisher.
func (p *RabbitPublisher) Publish(ctx context.Context, topic, routingKey string, payload any) error {
	body, id, err := Encode(payload, p.now())
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[topic] {
		if err := declareExchange(p.ch, topic); err != nil {
			return errors.Join(ErrPublishFailed, fmt.Errorf("declare exchange %s: %w", topic, err))
		}
		p.declared[topic] = true
	}

	err = p.ch.PublishWithContext(ctx, topic, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    p.now(),
	})
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	p.logger.LogAttrs(ctx, slog.LevelDebug, "event published",
		logger.Component("events"),
		logger.EventType(topic+"."+routingKey),
		logger.MessageID(id),
	)
	return nil
}
