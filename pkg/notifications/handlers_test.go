package notifications_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestManager_HandleUserRegistered(t *testing.T) {
	t.Parallel()

	t.Run("renders the welcome template", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.savePrefs(emailPrefs("u1"))
		ctx := context.Background()

		inputs, err := notifications.LoadTemplates(strings.NewReader(seedYAML))
		require.NoError(t, err)
		_, err = f.manager.SeedTemplates(ctx, inputs)
		require.NoError(t, err)

		n, err := f.manager.HandleUserRegistered(ctx, notifications.UserRegisteredEvent{
			UserID:    "u1",
			Email:     "a@b.com",
			FirstName: "Ada",
		})
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusSent, n.Status)
		assert.Equal(t, "Welcome, Ada", n.Subject)
		assert.Equal(t, "Hi Ada, your account a@b.com is ready.", n.Content)
	})

	t.Run("falls back to built-in copy without a template", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.savePrefs(emailPrefs("u1"))

		n, err := f.manager.HandleUserRegistered(context.Background(), notifications.UserRegisteredEvent{
			UserID:    "u1",
			FirstName: "Ada",
		})
		require.NoError(t, err)
		assert.Empty(t, n.TemplateID)
		assert.Contains(t, n.Content, "Ada")
	})
}

func TestManager_HandlePasswordReset(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.savePrefs(emailPrefs("u1"))
	ctx := context.Background()

	_, err := f.manager.CreateTemplate(ctx, notifications.TemplateInput{
		Name:    notifications.TemplatePasswordReset,
		Channel: notifications.ChannelEmail,
		Subject: "Reset",
		Content: "Token {{resetToken}} expires {{expiresAt}}",
	})
	require.NoError(t, err)

	n, err := f.manager.HandlePasswordReset(ctx, notifications.PasswordResetEvent{
		UserID:     "u1",
		Email:      "a@b.com",
		ResetToken: "abc123",
		ExpiresAt:  time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Token abc123 expires 2025-03-01T13:00:00Z", n.Content)
	assert.Equal(t, notifications.PriorityHigh, n.Priority)
	assert.Len(t, f.email.Calls(), 1)
}
