package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const (
	DefaultInboxSize = 100
	DefaultInboxTTL  = 30 * 24 * time.Hour
)

// InboxItem is one entry of a user's in-app inbox.
type InboxItem struct {
	ID             string         `json:"id"`
	NotificationID string         `json:"notificationId"`
	UserID         string         `json:"userId"`
	Subject        string         `json:"subject,omitempty"`
	Body           string         `json:"body"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// InAppOption configures InApp.
type InAppOption func(*InApp)

// WithInboxSize caps how many entries are kept per user.
func WithInboxSize(n int64) InAppOption {
	return func(a *InApp) {
		if n > 0 {
			a.size = n
		}
	}
}

// WithInboxTTL sets how long an inactive inbox lives.
func WithInboxTTL(ttl time.Duration) InAppOption {
	return func(a *InApp) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithInAppOptions applies dispatcher options (logger, breaker).
func WithInAppOptions(opts ...Option) InAppOption {
	return func(a *InApp) {
		for _, opt := range opts {
			opt(&a.base)
		}
	}
}

// InApp stores notifications in a capped Redis list per user and publishes
// each one on the user's channel for live subscribers.
//
// Keys: "notifications:inbox:<userID>" (list, newest first) and pub/sub
// channel "notifications:<userID>".
type InApp struct {
	base
	client redis.UniversalClient
	size   int64
	ttl    time.Duration
	now    func() time.Time
}

// NewInApp creates the in-app dispatcher.
func NewInApp(client redis.UniversalClient, opts ...InAppOption) *InApp {
	a := &InApp{
		base:   newBase(notifications.ChannelInApp, nil),
		client: client,
		size:   DefaultInboxSize,
		ttl:    DefaultInboxTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InboxKey is the Redis list holding a user's inbox.
func InboxKey(userID string) string { return "notifications:inbox:" + userID }

// ChannelName is the pub/sub channel for a user's live notifications.
func ChannelName(userID string) string { return "notifications:" + userID }

// Deliver implements notifications.Dispatcher.
func (a *InApp) Deliver(ctx context.Context, d notifications.Delivery) notifications.Outcome {
	userID := d.Destination
	if userID == "" {
		userID = d.UserID
	}
	item := InboxItem{
		ID:             uuid.NewString(),
		NotificationID: d.NotificationID,
		UserID:         userID,
		Subject:        d.Subject,
		Body:           d.Body,
		Metadata:       d.Metadata,
		CreatedAt:      a.now().UTC(),
	}
	return a.call(ctx, d, func() (string, error) { return item.ID, a.store(ctx, item) })
}

func (a *InApp) store(ctx context.Context, item InboxItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode inbox item: %w", err)
	}
	key := InboxKey(item.UserID)
	_, err = a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, a.size-1)
		pipe.Expire(ctx, key, a.ttl)
		pipe.Publish(ctx, ChannelName(item.UserID), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store inbox item: %w", err)
	}
	return nil
}

// Inbox returns up to limit of the user's most recent entries, newest first.
// A non-positive limit returns the whole inbox.
func (a *InApp) Inbox(ctx context.Context, userID string, limit int64) ([]InboxItem, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}
	raw, err := a.client.LRange(ctx, InboxKey(userID), 0, stop).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	items := make([]InboxItem, 0, len(raw))
	for _, r := range raw {
		var item InboxItem
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
