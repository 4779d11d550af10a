package notifications

import (
	"context"
	"time"
)

// Expectation is the last committed state a caller read. A claim succeeds
// only while the row still matches it.
type Expectation struct {
	Status     Status
	RetryCount int
}

// StatusUpdate describes the change Complete applies to a claimed row.
type StatusUpdate struct {
	Status       Status
	ErrorMessage string
	// IncrementRetry adds one to RetryCount, capped at MaxRetries.
	IncrementRetry bool
	// At stamps UpdatedAt and, depending on Status, SentAt or DeliveredAt.
	At time.Time
}

// Cursor marks the last row of a sweep batch. Rows are ordered by (CreatedAt, ID).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// After reports whether n sorts strictly after the cursor.
func (c *Cursor) After(n Notification) bool {
	if c == nil {
		return true
	}
	if n.CreatedAt.Equal(c.CreatedAt) {
		return n.ID > c.ID
	}
	return n.CreatedAt.After(c.CreatedAt)
}

// SweepQuery selects one batch of rows for a sweep.
type SweepQuery struct {
	Now time.Time
	// StaleBefore makes unscheduled pending rows created before it eligible for
	// the scheduled sweep, recovering rows whose immediate send never finished.
	// Zero disables it.
	StaleBefore time.Time
	After       *Cursor
	Limit       int
}

// NotificationStorage persists notifications and their log.
//
// Rows are never deleted. Every status change goes through Claim followed by
// Complete, which applies the change and appends its LogEntry atomically.
type NotificationStorage interface {
	// CreateNotification inserts a new row. No log entry is written.
	CreateNotification(ctx context.Context, n Notification) error
	// Notification returns a row or ErrNotificationNotFound.
	Notification(ctx context.Context, id string) (*Notification, error)
	// NotificationsByUser lists a user's rows, newest first.
	NotificationsByUser(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	// DueScheduled lists unclaimed pending rows whose ScheduledAt is at or before q.Now.
	DueScheduled(ctx context.Context, q SweepQuery) ([]Notification, error)
	// Retryable lists unclaimed failed rows with RetryCount < MaxRetries.
	Retryable(ctx context.Context, q SweepQuery) ([]Notification, error)

	// Claim reserves the row for one sender for the lease duration. It fails
	// with ErrTransitionConflict when the row no longer matches expect or
	// carries a live claim.
	Claim(ctx context.Context, id string, expect Expectation, lease time.Duration) (token string, n *Notification, err error)
	// Complete applies upd and appends entry in one atomic step and drops the
	// claim. It fails with ErrTransitionConflict when token no longer holds the
	// row and with ErrInvalidTransition when the lifecycle forbids the change.
	Complete(ctx context.Context, id, token string, upd StatusUpdate, entry LogEntry) (*Notification, error)
	// Release drops a claim without changing the row.
	Release(ctx context.Context, id, token string) error

	// Logs returns the row's log entries, oldest first.
	Logs(ctx context.Context, notificationID string) ([]LogEntry, error)
}

// TemplateStorage persists templates.
type TemplateStorage interface {
	// CreateTemplate fails with ErrTemplateAlreadyExists on a duplicate name.
	CreateTemplate(ctx context.Context, t Template) error
	// TemplateByName returns an active template or ErrTemplateNotFound.
	TemplateByName(ctx context.Context, name string) (*Template, error)
	// Templates lists every template ordered by name.
	Templates(ctx context.Context) ([]Template, error)
}

// PreferencesStorage persists per-user preferences.
type PreferencesStorage interface {
	// Preferences returns the record or ErrPreferencesNotFound.
	Preferences(ctx context.Context, userID string) (*Preferences, error)
	// SavePreferences inserts or replaces the record.
	SavePreferences(ctx context.Context, p Preferences) error
}

// Store is the full persistence surface the Manager depends on.
type Store interface {
	NotificationStorage
	TemplateStorage
	PreferencesStorage
}

// applyUpdate mutates n the way every store implementation must.
func applyUpdate(n *Notification, upd StatusUpdate) {
	n.Status = upd.Status
	n.ErrorMessage = upd.ErrorMessage
	if upd.IncrementRetry && n.RetryCount < n.MaxRetries {
		n.RetryCount++
	}
	at := upd.At
	switch upd.Status {
	case StatusSent:
		n.SentAt = &at
	case StatusDelivered:
		n.DeliveredAt = &at
	}
	n.UpdatedAt = at
}
