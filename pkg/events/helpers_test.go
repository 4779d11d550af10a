package events_test

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel records topology and publishes and serves deliveries from
// per-queue Go channels.
type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	queues     []string
	bindings   [][3]string
	published  []published
	publishErr error
	streams    map[string]chan amqp.Delivery
	prefetch   int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{streams: make(map[string]chan amqp.Delivery)}
}

func (f *fakeChannel) stream(queue string) chan amqp.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.streams[queue]
	if !ok {
		ch = make(chan amqp.Delivery, 16)
		f.streams[queue] = ch
	}
	return ch
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, [3]string{name, exchange, key})
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.stream(queue), nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

type ackResult struct {
	acked   bool
	requeue bool
}

// fakeAcknowledger reports how each delivery was settled.
type fakeAcknowledger struct {
	results chan ackResult
}

func newAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{results: make(chan ackResult, 16)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.results <- ackResult{acked: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.results <- ackResult{requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.results <- ackResult{requeue: requeue}
	return nil
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}
