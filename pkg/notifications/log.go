package notifications

import "time"

// LogEntry is an immutable audit record of one status transition.
type LogEntry struct {
	ID             string         `json:"id"`
	NotificationID string         `json:"notificationId"`
	Event          string         `json:"event"`
	Status         Status         `json:"status"`
	Message        string         `json:"message,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
