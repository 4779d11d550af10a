package notifications_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestManager_ProcessScheduledNotifications(t *testing.T) {
	t.Parallel()

	t.Run("leaves rows pending until due", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.savePrefs(emailPrefs("u1"))
		ctx := context.Background()

		at := f.clock.Now().Add(time.Hour)
		n, err := f.manager.Create(ctx, notifications.CreateRequest{
			UserID:      "u1",
			Channel:     notifications.ChannelEmail,
			Content:     "Later",
			ScheduledAt: &at,
		})
		require.NoError(t, err)

		res, err := f.manager.ProcessScheduledNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, notifications.SweepResult{}, res)

		stored, err := f.manager.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusPending, stored.Status)

		f.clock.Advance(time.Hour + time.Second)
		res, err = f.manager.ProcessScheduledNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Selected)
		assert.Equal(t, 1, res.Sent)

		stored, err = f.manager.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusSent, stored.Status)
		assert.Len(t, f.email.Calls(), 1)
	})

	t.Run("walks every batch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(notifications.WithSweepBatchSize(2))
		ctx := context.Background()
		f.savePrefs(emailPrefs("u1"))
		skipped := notifications.DefaultPreferences("u2")
		skipped.EmailEnabled = false
		f.savePrefs(skipped)

		at := f.clock.Now().Add(time.Minute)
		for i := range 5 {
			user := "u1"
			if i == 4 {
				user = "u2"
			}
			_, err := f.manager.Create(ctx, notifications.CreateRequest{
				UserID:      user,
				Channel:     notifications.ChannelEmail,
				Content:     "batch",
				ScheduledAt: &at,
			})
			require.NoError(t, err)
		}

		f.clock.Advance(2 * time.Minute)
		res, err := f.manager.ProcessScheduledNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, notifications.SweepResult{Selected: 5, Sent: 4, Skipped: 1}, res)
	})

	t.Run("missing preferences count as errors and keep the row pending", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		ctx := context.Background()

		at := f.clock.Now().Add(time.Minute)
		n, err := f.manager.Create(ctx, notifications.CreateRequest{
			UserID:      "ghost",
			Channel:     notifications.ChannelEmail,
			Content:     "x",
			ScheduledAt: &at,
		})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Minute)
		res, err := f.manager.ProcessScheduledNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, notifications.SweepResult{Selected: 1, Errors: 1}, res)

		stored, err := f.manager.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusPending, stored.Status)

		// the claim was released, so the next sweep can pick it up again
		f.savePrefs(emailPrefs("ghost"))
		res, err = f.manager.ProcessScheduledNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Sent)
	})

	t.Run("recovers stale unscheduled rows", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		ctx := context.Background()
		f.savePrefs(emailPrefs("u1"))

		created := f.clock.Now().Add(-10 * time.Minute)
		require.NoError(t, f.store.CreateNotification(ctx, notifications.Notification{
			ID:         "stuck",
			UserID:     "u1",
			Channel:    notifications.ChannelEmail,
			Content:    "stuck",
			Status:     notifications.StatusPending,
			Priority:   notifications.PriorityNormal,
			MaxRetries: 3,
			CreatedAt:  created,
			UpdatedAt:  created,
		}))

		res, err := f.manager.ProcessScheduledNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Sent)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.manager.ProcessScheduledNotifications(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestManager_RetryFailedNotifications(t *testing.T) {
	t.Parallel()

	t.Run("always failing dispatcher stops at max retries", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.email.outcome = notifications.Failed("provider unavailable")
		f.savePrefs(emailPrefs("u1"))
		ctx := context.Background()

		n, err := f.manager.Create(ctx, notifications.CreateRequest{
			UserID:  "u1",
			Channel: notifications.ChannelEmail,
			Content: "Hi",
		})
		require.NoError(t, err)
		require.Equal(t, 1, n.RetryCount)

		for range 2 {
			res, err := f.manager.RetryFailedNotifications(ctx)
			require.NoError(t, err)
			assert.Equal(t, notifications.SweepResult{Selected: 1, Failed: 1}, res)
		}

		stored, err := f.manager.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusFailed, stored.Status)
		assert.Equal(t, 3, stored.RetryCount)
		assert.True(t, stored.IsTerminal())

		res, err := f.manager.RetryFailedNotifications(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Selected)
		assert.Len(t, f.email.Calls(), 3)

		logs, err := f.manager.Logs(ctx, n.ID)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		for _, l := range logs {
			assert.Equal(t, notifications.StatusFailed, l.Status)
			assert.Equal(t, "failed", l.Event)
		}
	})

	t.Run("retry success transitions to sent", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.email.outcome = notifications.Failed("temporary")
		f.savePrefs(emailPrefs("u1"))
		ctx := context.Background()

		n, err := f.manager.Create(ctx, notifications.CreateRequest{
			UserID:  "u1",
			Channel: notifications.ChannelEmail,
			Content: "Hi",
		})
		require.NoError(t, err)

		f.email.outcome = notifications.Delivered("ok")
		res, err := f.manager.RetryFailedNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Sent)

		stored, err := f.manager.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusSent, stored.Status)
		assert.Equal(t, 1, stored.RetryCount)
		assert.Empty(t, stored.ErrorMessage)
	})

	t.Run("batches do not revisit rows within one sweep", func(t *testing.T) {
		t.Parallel()
		f := newFixture(notifications.WithSweepBatchSize(1))
		f.email.outcome = notifications.Failed("down")
		f.savePrefs(emailPrefs("u1"))
		ctx := context.Background()

		for range 3 {
			_, err := f.manager.Create(ctx, notifications.CreateRequest{
				UserID:  "u1",
				Channel: notifications.ChannelEmail,
				Content: "Hi",
			})
			require.NoError(t, err)
		}

		res, err := f.manager.RetryFailedNotifications(ctx)
		require.NoError(t, err)
		assert.Equal(t, notifications.SweepResult{Selected: 3, Failed: 3}, res)
		assert.Len(t, f.email.Calls(), 6)
	})
}

func TestManager_RetrySkipsDisabledChannel(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.email.outcome = notifications.Failed("provider unavailable")
	f.savePrefs(emailPrefs("u1"))
	ctx := context.Background()

	n, err := f.manager.Create(ctx, notifications.CreateRequest{
		UserID:  "u1",
		Channel: notifications.ChannelEmail,
		Content: "Hi",
	})
	require.NoError(t, err)
	require.Equal(t, notifications.StatusFailed, n.Status)
	require.Equal(t, 1, n.RetryCount)

	disabled := emailPrefs("u1")
	disabled.EmailEnabled = false
	f.savePrefs(disabled)

	res, err := f.manager.RetryFailedNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, notifications.SweepResult{Selected: 1, Skipped: 1}, res)

	stored, err := f.manager.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusSkipped, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.True(t, stored.IsTerminal())
	assert.Len(t, f.email.Calls(), 1)

	logs, err := f.manager.Logs(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, notifications.StatusSkipped, logs[1].Status)
	assert.Equal(t, "skipped", logs[1].Event)

	res, err = f.manager.RetryFailedNotifications(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Selected)
}
