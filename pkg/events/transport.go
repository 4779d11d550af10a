package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Transport bundles the publisher and, for RabbitMQ, the consumer built
// from Config.
type Transport struct {
	Publisher notifications.Publisher
	// Consumer is nil unless the driver is RabbitMQ and consuming is enabled.
	Consumer *RabbitConsumer
	closers  []io.Closer
}

// Open connects the transport selected by cfg.Driver.
func Open(ctx context.Context, cfg Config, l *slog.Logger) (*Transport, error) {
	switch cfg.Driver {
	case DriverRabbitMQ:
		return openRabbit(ctx, cfg, l)
	case DriverKafka:
		w, err := NewKafkaWriter(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		p := NewKafkaPublisher(w, WithPublisherLogger(l))
		return &Transport{Publisher: p, closers: []io.Closer{p}}, nil
	case DriverNoop, "":
		return &Transport{Publisher: notifications.NoopPublisher{}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func openRabbit(ctx context.Context, cfg Config, l *slog.Logger) (*Transport, error) {
	conn, err := Dial(ctx, cfg.RabbitMQURL, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	t := &Transport{closers: []io.Closer{conn}}

	pubCh, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open publish channel: %w", err), t.Close())
	}
	t.closers = append(t.closers, pubCh)
	t.Publisher = NewRabbitPublisher(pubCh, WithPublisherLogger(l))

	if cfg.ConsumerEnabled {
		consCh, err := conn.Channel()
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open consume channel: %w", err), t.Close())
		}
		t.closers = append(t.closers, consCh)
		t.Consumer = NewRabbitConsumer(consCh, WithConsumerLogger(l), WithPrefetch(cfg.Prefetch))
	}
	return t, nil
}

// Close releases channels and connections in reverse order of creation.
func (t *Transport) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}
