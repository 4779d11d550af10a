package notifications

import (
	"context"
	"time"
)

// EventsTopic is the exchange integration events are published to.
const EventsTopic = "notification.events"

// Routing keys of published integration events.
const (
	RoutingKeySent               = "sent"
	RoutingKeyTemplateCreated    = "template.created"
	RoutingKeyPreferencesUpdated = "preferences.updated"
)

// Publisher emits integration events. Publishing is fire-and-forget from the
// Manager's point of view: a failure is logged and never undoes a committed
// status change.
type Publisher interface {
	Publish(ctx context.Context, topic, routingKey string, payload any) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error { return nil }

// SentEvent is published when a notification reaches SENT.
type SentEvent struct {
	NotificationID string    `json:"notificationId"`
	UserID         string    `json:"userId"`
	Channel        Channel   `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
}

// TemplateCreatedEvent is published after a template is stored.
type TemplateCreatedEvent struct {
	TemplateID string    `json:"templateId"`
	Name       string    `json:"name"`
	Channel    Channel   `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
}

// PreferencesUpdatedEvent is published when an existing preferences record changes.
type PreferencesUpdatedEvent struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}
