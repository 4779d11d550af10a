package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Send dispatches a pending or retryable notification by ID. A pending row
// scheduled for the future is refused with ErrInvalidTransition.
func (m *Manager) Send(ctx context.Context, id string) (*Notification, error) {
	n, err := m.store.Notification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status == StatusPending && !n.IsDue(m.now()) {
		return nil, fmt.Errorf("%w: notification is scheduled for %s", ErrInvalidTransition, n.ScheduledAt.Format(time.RFC3339))
	}
	return m.send(ctx, *n, nil)
}

// send claims the row against its last committed (status, retryCount), runs
// the preference gate and the dispatcher, and commits exactly one transition.
// prefs may be nil, in which case they are loaded after the claim.
func (m *Manager) send(ctx context.Context, n Notification, prefs *Preferences) (*Notification, error) {
	if n.Status != StatusPending && !n.CanRetry() {
		return nil, fmt.Errorf("%w: cannot send notification in status %s", ErrInvalidTransition, n.Status)
	}

	token, claimed, err := m.store.Claim(ctx, n.ID, Expectation{Status: n.Status, RetryCount: n.RetryCount}, m.lease)
	if err != nil {
		return nil, err
	}
	n = *claimed

	if prefs == nil {
		if prefs, err = m.store.Preferences(ctx, n.UserID); err != nil {
			m.release(ctx, n.ID, token)
			m.logger.LogAttrs(ctx, slog.LevelError, "failed to load preferences",
				logger.NotificationID(n.ID),
				logger.UserID(n.UserID),
				logger.Error(err),
			)
			return nil, err
		}
	}

	if !prefs.IsEnabled(n.Channel) {
		reason := prefs.skipReason(n.Channel)
		return m.complete(ctx, n, token,
			StatusUpdate{Status: StatusSkipped, ErrorMessage: reason},
			reason, map[string]any{"channel": string(n.Channel)},
		)
	}

	outcome := m.dispatch(ctx, n, prefs.Destination(n.Channel))
	meta := outcomeMetadata(n.Channel, outcome)

	if !outcome.Success {
		detail := outcome.ErrorDetail
		if detail == "" {
			detail = "delivery failed"
		}
		return m.complete(ctx, n, token,
			StatusUpdate{Status: StatusFailed, ErrorMessage: detail, IncrementRetry: true},
			detail, meta,
		)
	}

	sent, err := m.complete(ctx, n, token,
		StatusUpdate{Status: StatusSent},
		"notification sent via "+string(n.Channel), meta,
	)
	if err != nil {
		return nil, err
	}

	m.publish(ctx, EventsTopic, RoutingKeySent, SentEvent{
		NotificationID: sent.ID,
		UserID:         sent.UserID,
		Channel:        sent.Channel,
		Timestamp:      m.now().UTC(),
	})

	return sent, nil
}

// MarkDelivered records the provider confirmation of a SENT notification.
func (m *Manager) MarkDelivered(ctx context.Context, id string) (*Notification, error) {
	n, err := m.store.Notification(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(*n, StatusDelivered); err != nil {
		return nil, err
	}

	token, claimed, err := m.store.Claim(ctx, n.ID, Expectation{Status: n.Status, RetryCount: n.RetryCount}, m.lease)
	if err != nil {
		return nil, err
	}
	return m.complete(ctx, *claimed, token,
		StatusUpdate{Status: StatusDelivered},
		"delivery confirmed", map[string]any{"channel": string(n.Channel)},
	)
}

// complete commits the transition and its log entry. On a non-conflict
// failure the claim is released so the row can be picked up again.
func (m *Manager) complete(ctx context.Context, n Notification, token string, upd StatusUpdate, message string, meta map[string]any) (*Notification, error) {
	at := m.now().UTC()
	upd.At = at
	entry := LogEntry{
		Event:     string(upd.Status),
		Status:    upd.Status,
		Message:   message,
		Metadata:  meta,
		Timestamp: at,
	}

	updated, err := m.store.Complete(ctx, n.ID, token, upd, entry)
	if err != nil {
		if !errors.Is(err, ErrTransitionConflict) {
			m.release(ctx, n.ID, token)
		}
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to commit notification status",
			logger.NotificationID(n.ID),
			logger.Status(upd.Status.String()),
			logger.Error(err),
		)
		return nil, err
	}

	m.metrics.Transition(updated.Status.String())

	level := slog.LevelInfo
	if updated.Status == StatusFailed {
		level = slog.LevelWarn
	}
	m.logger.LogAttrs(ctx, level, "notification status changed",
		logger.NotificationID(updated.ID),
		logger.UserID(updated.UserID),
		logger.Channel(updated.Channel.String()),
		logger.Status(updated.Status.String()),
		logger.RetryCount(updated.RetryCount),
	)

	return updated, nil
}

func (m *Manager) release(ctx context.Context, id, token string) {
	if err := m.store.Release(ctx, id, token); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release claim",
			logger.NotificationID(id),
			logger.Error(err),
		)
	}
}

// dispatch hands the rendered notification to the channel's dispatcher.
// A missing dispatcher or a panicking one yields a failed outcome.
func (m *Manager) dispatch(ctx context.Context, n Notification, destination string) (out Outcome) {
	d, ok := m.registry.Lookup(n.Channel)
	if !ok {
		return Failed(fmt.Sprintf("%s: %s", ErrNoDispatcher, n.Channel))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "dispatcher panicked",
				logger.NotificationID(n.ID),
				logger.Channel(n.Channel.String()),
				slog.Any("panic", r),
			)
			out = Failed(fmt.Sprintf("dispatcher panic: %v", r))
		}
		result := "success"
		if !out.Success {
			result = "failure"
		}
		m.metrics.Dispatch(n.Channel.String(), result, time.Since(start))
	}()

	return d.Deliver(ctx, Delivery{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Destination:    destination,
		Subject:        n.Subject,
		Body:           n.Content,
		Metadata:       cloneMap(n.Metadata),
	})
}

func (m *Manager) publish(ctx context.Context, topic, routingKey string, payload any) {
	if err := m.publisher.Publish(ctx, topic, routingKey, payload); err != nil {
		m.metrics.EventPublished(routingKey, "failure")
		m.logger.LogAttrs(ctx, slog.LevelError, "failed to publish event",
			logger.EventType(routingKey),
			logger.Error(err),
		)
		return
	}
	m.metrics.EventPublished(routingKey, "success")
}

func outcomeMetadata(c Channel, o Outcome) map[string]any {
	meta := map[string]any{
		"channel": string(c),
		"success": o.Success,
	}
	if o.ProviderMessageID != "" {
		meta["providerMessageId"] = o.ProviderMessageID
	}
	if o.ErrorDetail != "" {
		meta["error"] = o.ErrorDetail
	}
	return meta
}
