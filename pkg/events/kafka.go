package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes to Kafka. The topic passed to Publish is the
// Kafka topic and the routing key becomes the message key.
type KafkaPublisher struct {
	writer MessageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewKafkaWriter builds a writer for brokers that picks the topic per message.
func NewKafkaWriter(brokers []string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: KafkaBrokers is required", ErrInvalidConfig)
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, nil
}

// NewKafkaPublisher creates a publisher on w.
func NewKafkaPublisher(w MessageWriter, opts ...PublisherOption) *KafkaPublisher {
	o := newPublisherOptions(opts)
	return &KafkaPublisher{writer: w, logger: o.logger, now: o.now}
}

// Publish implements notifications.Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, routingKey string, payload any) error {
	body, id, err := Encode(payload, p.now())
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(routingKey),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(id)},
			{Key: "content-type", Value: []byte("application/json")},
		},
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

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
