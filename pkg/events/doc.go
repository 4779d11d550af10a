// Package events carries integration events between the notification
// service and the rest of the system.
//
// Every message is a JSON Envelope {id, timestamp, data}. Publishers
// implement notifications.Publisher:
//   - RabbitPublisher publishes persistent messages to durable topic
//     exchanges (rabbitmq/amqp091-go)
//   - KafkaPublisher writes to the Kafka topic of the same name, keyed by
//     routing key (segmentio/kafka-go)
//
// RabbitConsumer consumes durable queues with manual acknowledgement. A
// handler error requeues the message; errors wrapped with Permanent, and
// bodies that are not valid envelopes, are dropped.
// RegisterNotificationHandlers binds the account and command queues to a
// notifications.Manager.
//
// Open builds the transport chosen by EVENTS_DRIVER (rabbitmq, kafka or noop).
package events
