package events

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Handler processes one decoded event. Returning an error requeues the
// message unless the error is wrapped with Permanent.
type Handler func(ctx context.Context, env Envelope) error

// Binding routes messages from an exchange into a durable queue.
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

type route struct {
	Binding
	handler Handler
}

// RabbitConsumer consumes durable queues with manual acknowledgement.
type RabbitConsumer struct {
	ch       Channel
	prefetch int
	logger   *slog.Logger
	routes   []route
}

// ConsumerOption configures RabbitConsumer.
type ConsumerOption func(*RabbitConsumer)

// WithConsumerLogger sets the consumer logger.
func WithConsumerLogger(l *slog.Logger) ConsumerOption {
	return func(c *RabbitConsumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPrefetch caps unacknowledged deliveries per consumer.
func WithPrefetch(n int) ConsumerOption {
	return func(c *RabbitConsumer) {
		if n > 0 {
			c.prefetch = n
		}
	}
}

// NewRabbitConsumer creates a consumer on ch. The caller owns ch.
func NewRabbitConsumer(ch Channel, opts ...ConsumerOption) *RabbitConsumer {
	c := &RabbitConsumer{ch: ch, prefetch: 10, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle registers h for the binding's queue.
func (c *RabbitConsumer) Handle(b Binding, h Handler) error {
	if b.Queue == "" || h == nil {
		return fmt.Errorf("%w: queue and handler are required", ErrInvalidConfig)
	}
	if slices.ContainsFunc(c.routes, func(r route) bool { return r.Queue == b.Queue }) {
		return fmt.Errorf("%w: %s", ErrHandlerDuplicate, b.Queue)
	}
	c.routes = append(c.routes, route{Binding: b, handler: h})
	return nil
}

// Queues lists the registered queue names.
func (c *RabbitConsumer) Queues() []string {
	out := make([]string, len(c.routes))
	for i, r := range c.routes {
		out[i] = r.Queue
	}
	return out
}

// Run declares the topology, consumes every registered queue and blocks until
// ctx is cancelled or a delivery channel closes. In-flight messages finish
// before Run returns.
func (c *RabbitConsumer) Run(ctx context.Context) error {
	if len(c.routes) == 0 {
		return ErrNoHandlers
	}
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	streams := make([]<-chan amqp.Delivery, len(c.routes))
	for i, r := range c.routes {
		if err := c.declare(r.Binding); err != nil {
			return err
		}
		deliveries, err := c.ch.Consume(r.Queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", r.Queue, err)
		}
		streams[i] = deliveries
		c.logger.LogAttrs(ctx, slog.LevelInfo, "consuming queue",
			logger.Component("events"),
			slog.String("queue", r.Queue),
		)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	for i, r := range c.routes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.loop(ctx, cancel, r, streams[i])
		}()
	}
	wg.Wait()

	if cause := context.Cause(ctx); cause != nil && cause != context.Canceled {
		return cause
	}
	return ctx.Err()
}

func (c *RabbitConsumer) declare(b Binding) error {
	if _, err := c.ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", b.Queue, err)
	}
	if b.Exchange == "" {
		return nil
	}
	if err := declareExchange(c.ch, b.Exchange); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.Exchange, err)
	}
	if err := c.ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", b.Queue, err)
	}
	return nil
}

func (c *RabbitConsumer) loop(ctx context.Context, cancel context.CancelCauseFunc, r route, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				cancel(fmt.Errorf("%w: %s", ErrConsumerStopped, r.Queue))
				return
			}
			c.process(ctx, r, d)
		}
	}
}

// process acks on success, drops undecodable or permanently failing
// messages and requeues everything else.
func (c *RabbitConsumer) process(ctx context.Context, r route, d amqp.Delivery) {
	attrs := []slog.Attr{
		logger.Component("events"),
		slog.String("queue", r.Queue),
	}

	env, err := Decode(d.Body)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "dropping malformed event", append(attrs, logger.Error(err))...)
		_ = d.Nack(false, false)
		return
	}
	attrs = append(attrs, logger.MessageID(env.ID))

	if err := c.safeHandle(ctx, r.handler, env); err != nil {
		if IsPermanent(err) {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "dropping event", append(attrs, logger.Error(err))...)
			_ = d.Nack(false, false)
			return
		}
		c.logger.LogAttrs(ctx, slog.LevelError, "event handler failed, requeueing", append(attrs, logger.Error(err))...)
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
	c.logger.LogAttrs(ctx, slog.LevelDebug, "event processed", attrs...)
}

func (c *RabbitConsumer) safeHandle(ctx context.Context, h Handler, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("handler panicked: %v", r))
		}
	}()
	return h(ctx, env)
}
