package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

const (
	// DefaultLease bounds how long a claim keeps other senders away from a row.
	DefaultLease = 5 * time.Minute
	// DefaultSweepBatchSize is the number of rows a sweep reads per query.
	DefaultSweepBatchSize = 100

	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Manager owns the notification lifecycle: creation, sending and sweeps.
type Manager struct {
	store     Store
	registry  *Registry
	publisher Publisher
	metrics   MetricsRecorder
	logger    *slog.Logger
	now       func() time.Time
	lease     time.Duration
	batchSize int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPublisher sets the integration event publisher.
func WithPublisher(p Publisher) ManagerOption {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r MetricsRecorder) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLease sets the claim lease duration.
func WithLease(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.lease = d
		}
	}
}

// WithSweepBatchSize sets how many rows a sweep reads per query.
func WithSweepBatchSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// NewManager creates a new notification manager. A nil registry is replaced
// by an empty one, in which case every send fails for lack of a dispatcher.
func NewManager(store Store, registry *Registry, opts ...ManagerOption) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}

	m := &Manager{
		store:     store,
		registry:  registry,
		publisher: NoopPublisher{},
		metrics:   noopMetrics{},
		logger:    slog.Default(),
		now:       time.Now,
		lease:     DefaultLease,
		batchSize: DefaultSweepBatchSize,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Create validates the request, renders the named template if it exists,
// stores a PENDING row and sends it right away unless it is scheduled for
// the future.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	n := Notification{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Channel:     req.Channel,
		Subject:     req.Subject,
		Content:     req.Content,
		Status:      StatusPending,
		Priority:    req.Priority,
		ScheduledAt: cloneTime(req.ScheduledAt),
		Metadata:    cloneMap(req.Metadata),
		MaxRetries:  req.MaxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if n.MaxRetries == 0 {
		n.MaxRetries = DefaultMaxRetries
	}

	if req.TemplateName != "" {
		if err := m.applyTemplate(ctx, &n, req); err != nil {
			return nil, err
		}
	}

	due := n.IsDue(now)

	// Load preferences before the insert so a user without a record fails the
	// call without leaving an unsendable PENDING row behind.
	var prefs *Preferences
	if due {
		var err error
		if prefs, err = m.store.Preferences(ctx, n.UserID); err != nil {
			return nil, err
		}
	}

	if err := m.store.CreateNotification(ctx, n); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to store notification",
			logger.UserID(n.UserID),
			logger.Channel(n.Channel.String()),
			logger.Error(err),
		)
		return nil, err
	}

	if !due {
		m.logger.LogAttrs(ctx, slog.LevelInfo, "notification scheduled",
			logger.NotificationID(n.ID),
			slog.Time("scheduled_at", *n.ScheduledAt),
		)
		out := n.clone()
		return &out, nil
	}

	sent, err := m.send(ctx, n, prefs)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "immediate send failed, left to sweep",
			logger.NotificationID(n.ID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: notification %s: %w", ErrSendDeferred, n.ID, err)
	}
	return sent, nil
}

func (m *Manager) applyTemplate(ctx context.Context, n *Notification, req CreateRequest) error {
	tpl, err := m.store.TemplateByName(ctx, req.TemplateName)
	switch {
	case err == nil:
		subject, content := tpl.Render(req.templateVars())
		n.TemplateID = tpl.ID
		n.Content = content
		if subject != "" {
			n.Subject = subject
		}
		return nil
	case errors.Is(err, ErrTemplateNotFound):
		m.logger.LogAttrs(ctx, slog.LevelWarn, "template not found, using raw content",
			logger.TemplateName(req.TemplateName),
			logger.UserID(req.UserID),
		)
		if n.Content == "" {
			return newValidationError(validator.Apply(validator.RequiredString("content", n.Content)))
		}
		return nil
	default:
		return err
	}
}

// BulkItem is the result of one CreateBulk entry.
type BulkItem struct {
	Notification *Notification
	Err          error
}

// BulkResult aggregates CreateBulk results, in input order.
type BulkResult struct {
	Items     []BulkItem
	Succeeded int
	Failed    int
}

// CreateBulk creates every request independently. One failure does not stop
// the rest.
func (m *Manager) CreateBulk(ctx context.Context, reqs []CreateRequest) BulkResult {
	res := BulkResult{Items: make([]BulkItem, len(reqs))}
	for i, req := range reqs {
		n, err := m.Create(ctx, req)
		res.Items[i] = BulkItem{Notification: n, Err: err}
		if err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
	}
	return res
}

// GetByID returns a notification or ErrNotificationNotFound.
func (m *Manager) GetByID(ctx context.Context, id string) (*Notification, error) {
	return m.store.Notification(ctx, id)
}

// ListByUser returns a page of the user's notifications, newest first.
// A non-positive limit selects DefaultListLimit; larger limits are capped at MaxListLimit.
func (m *Manager) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	if err := newValidationError(validator.Apply(
		validator.RequiredString("userId", userID),
		validator.MinNum("offset", offset, 0),
	)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	return m.store.NotificationsByUser(ctx, userID, limit, offset)
}

// Logs returns the audit trail of a notification, oldest first.
func (m *Manager) Logs(ctx context.Context, id string) ([]LogEntry, error) {
	return m.store.Logs(ctx, id)
}
