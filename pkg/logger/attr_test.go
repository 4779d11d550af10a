package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestNotificationAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal any
	}{
		{name: "user id", attr: logger.UserID("u1"), wantKey: "user_id", wantVal: "u1"},
		{name: "notification id", attr: logger.NotificationID("n1"), wantKey: "notification_id", wantVal: "n1"},
		{name: "channel", attr: logger.Channel("email"), wantKey: "channel", wantVal: "email"},
		{name: "status", attr: logger.Status("sent"), wantKey: "status", wantVal: "sent"},
		{name: "template", attr: logger.TemplateName("welcome_email"), wantKey: "template", wantVal: "welcome_email"},
		{name: "provider message id", attr: logger.ProviderMessageID("pm-1"), wantKey: "provider_message_id", wantVal: "pm-1"},
		{name: "request id", attr: logger.RequestID("abc"), wantKey: "request_id", wantVal: "abc"},
		{name: "event type", attr: logger.EventType("sent"), wantKey: "event_type", wantVal: "sent"},
		{name: "message id", attr: logger.MessageID("m1"), wantKey: "message_id", wantVal: "m1"},
		{name: "component", attr: logger.Component("manager"), wantKey: "component", wantVal: "manager"},
		{name: "event", attr: logger.Event("started"), wantKey: "event", wantVal: "started"},
		{name: "sweep", attr: logger.Sweep("retry"), wantKey: "sweep", wantVal: "retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.wantKey, tt.attr.Key)
			assert.Equal(t, tt.wantVal, tt.attr.Value.Any())
		})
	}
}

func TestRetryCountAndDuration(t *testing.T) {
	attr := logger.RetryCount(3)
	require.Equal(t, "retry_count", attr.Key)
	assert.Equal(t, int64(3), attr.Value.Int64())

	d := logger.Duration(2 * time.Second)
	require.Equal(t, "duration", d.Key)
	assert.Equal(t, 2*time.Second, d.Value.Any())
}

func TestEmptyAttrs(t *testing.T) {
	assert.True(t, logger.UserID(nil).Equal(slog.Attr{}))
	assert.True(t, logger.NotificationID("").Equal(slog.Attr{}))
	assert.True(t, logger.TemplateName("").Equal(slog.Attr{}))
	assert.True(t, logger.ProviderMessageID("").Equal(slog.Attr{}))
	assert.True(t, logger.RequestID(nil).Equal(slog.Attr{}))
	assert.True(t, logger.MessageID(nil).Equal(slog.Attr{}))
}
