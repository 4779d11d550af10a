package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Exchanges and queues consumed by the notification service.
const (
	ExchangeAuth     = "auth.events"
	ExchangeCommands = "notification.commands"

	QueueUserRegistered    = "auth.user.registered"
	QueueUserLogin         = "auth.user.login"
	QueuePasswordReset     = "auth.password.reset"
	QueueSend              = "notification.send"
	QueueBulkSend          = "notification.bulk.send"
	QueueTemplateCreate    = "notification.template.create"
	QueuePreferencesUpdate = "notification.preferences.update"
)

// NotificationService is the part of notifications.Manager driven by events.
type NotificationService interface {
	Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error)
	CreateBulk(ctx context.Context, reqs []notifications.CreateRequest) notifications.BulkResult
	CreateTemplate(ctx context.Context, in notifications.TemplateInput) (*notifications.Template, error)
	UpdateUserPreferences(ctx context.Context, u notifications.PreferencesUpdate) (*notifications.Preferences, error)
	HandleUserRegistered(ctx context.Context, e notifications.UserRegisteredEvent) (*notifications.Notification, error)
	HandlePasswordReset(ctx context.Context, e notifications.PasswordResetEvent) (*notifications.Notification, error)
}

// BulkSendCommand is the payload of notification.bulk.send.
type BulkSendCommand struct {
	Notifications []notifications.CreateRequest `json:"notifications"`
}

// UserLoginEvent is the payload of auth.user.login.
type UserLoginEvent struct {
	UserID    string `json:"userId"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// RegisterNotificationHandlers binds every notification queue on c to svc.
func RegisterNotificationHandlers(c *RabbitConsumer, svc NotificationService, l *slog.Logger) error {
	if l == nil {
		l = slog.Default()
	}

	routes := []struct {
		binding Binding
		handler Handler
	}{
		{
			Binding{QueueUserRegistered, ExchangeAuth, "user.registered"},
			bind(func(ctx context.Context, e notifications.UserRegisteredEvent) error {
				_, err := svc.HandleUserRegistered(ctx, e)
				return err
			}),
		},
		{
			Binding{QueueUserLogin, ExchangeAuth, "user.login"},
			bind(func(ctx context.Context, e UserLoginEvent) error {
				l.LogAttrs(ctx, slog.LevelInfo, "user login event processed",
					logger.Component("events"),
					logger.UserID(e.UserID),
				)
				return nil
			}),
		},
		{
			Binding{QueuePasswordReset, ExchangeAuth, "password.reset"},
			bind(func(ctx context.Context, e notifications.PasswordResetEvent) error {
				_, err := svc.HandlePasswordReset(ctx, e)
				return err
			}),
		},
		{
			Binding{QueueSend, ExchangeCommands, "send"},
			bind(func(ctx context.Context, req notifications.CreateRequest) error {
				_, err := svc.Create(ctx, req)
				return err
			}),
		},
		{
			Binding{QueueBulkSend, ExchangeCommands, "bulk.send"},
			bind(func(ctx context.Context, cmd BulkSendCommand) error {
				res := svc.CreateBulk(ctx, cmd.Notifications)
				if res.Failed > 0 {
					l.LogAttrs(ctx, slog.LevelWarn, "bulk send finished with failures",
						logger.Component("events"),
						slog.Int("succeeded", res.Succeeded),
						slog.Int("failed", res.Failed),
					)
				}
				return nil
			}),
		},
		{
			Binding{QueueTemplateCreate, ExchangeCommands, "template.create"},
			bind(func(ctx context.Context, in notifications.TemplateInput) error {
				_, err := svc.CreateTemplate(ctx, in)
				return err
			}),
		},
		{
			Binding{QueuePreferencesUpdate, ExchangeCommands, "preferences.update"},
			bind(func(ctx context.Context, u notifications.PreferencesUpdate) error {
				_, err := svc.UpdateUserPreferences(ctx, u)
				return err
			}),
		},
	}

	for _, r := range routes {
		if err := c.Handle(r.binding, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// bind decodes the envelope into T and classifies the result. Decoding and
// caller errors are permanent and a deferred send is acked. Anything else is
// retried.
func bind[T any](fn func(ctx context.Context, v T) error) Handler {
	return func(ctx context.Context, env Envelope) error {
		var v T
		if err := env.Bind(&v); err != nil {
			return Permanent(err)
		}
		err := fn(ctx, v)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, notifications.ErrSendDeferred):
			// The row exists; redelivery would store a duplicate.
			return nil
		case errors.Is(err, notifications.ErrValidation),
			errors.Is(err, notifications.ErrNotFound),
			errors.Is(err, notifications.ErrTemplateAlreadyExists),
			errors.Is(err, notifications.ErrInvalidTransition):
			return Permanent(err)
		default:
			return fmt.Errorf("handle event %s: %w", env.ID, err)
		}
	}
}
