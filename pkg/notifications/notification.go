package notifications

import (
	"slices"
	"time"
)

// Channel identifies a delivery mechanism.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in-app"
)

// Channels lists every supported channel.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp}

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool { return slices.Contains(Channels, c) }

func (c Channel) String() string { return string(c) }

// Status is the delivery state of a notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Statuses lists every status.
var Statuses = []Status{StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusSkipped}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

func (s Status) String() string { return string(s) }

// Priority is carried with a notification. It does not affect scheduling.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority.
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return slices.Contains(Priorities, p) }

// DefaultMaxRetries is applied when a request does not set MaxRetries.
const DefaultMaxRetries = 3

// Notification is a durable record of delivery intent and its status.
type Notification struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	TemplateID   string         `json:"templateId,omitempty"`
	Channel      Channel        `json:"type"`
	Subject      string         `json:"subject,omitempty"`
	Content      string         `json:"content"`
	Status       Status         `json:"status"`
	Priority     Priority       `json:"priority"`
	ScheduledAt  *time.Time     `json:"scheduledAt,omitempty"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	DeliveredAt  *time.Time     `json:"deliveredAt,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	RetryCount   int            `json:"retryCount"`
	MaxRetries   int            `json:"maxRetries"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// IsDue reports whether the notification may be dispatched at now.
func (n Notification) IsDue(now time.Time) bool {
	return n.ScheduledAt == nil || !n.ScheduledAt.After(now)
}

// CanRetry reports whether a failed notification still has attempts left.
func (n Notification) CanRetry() bool {
	return n.Status == StatusFailed && n.RetryCount < n.MaxRetries
}

// IsTerminal reports whether no further transition can happen without an
// external callback.
func (n Notification) IsTerminal() bool {
	switch n.Status {
	case StatusDelivered, StatusSkipped:
		return true
	case StatusFailed:
		return n.RetryCount >= n.MaxRetries
	default:
		return false
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// clone returns a deep copy safe to hand out of a store.
func (n Notification) clone() Notification {
	n.Metadata = cloneMap(n.Metadata)
	n.ScheduledAt = cloneTime(n.ScheduledAt)
	n.SentAt = cloneTime(n.SentAt)
	n.DeliveredAt = cloneTime(n.DeliveredAt)
	return n
}
