package notifications_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func newRow(id string, created time.Time) notifications.Notification {
	return notifications.Notification{
		ID:         id,
		UserID:     "u1",
		Channel:    notifications.ChannelEmail,
		Content:    "x",
		Status:     notifications.StatusPending,
		Priority:   notifications.PriorityNormal,
		MaxRetries: 3,
		Metadata:   map[string]any{"k": "v"},
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestMemoryStorage_CreateNotification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	now := time.Now()

	require.NoError(t, s.CreateNotification(ctx, newRow("n1", now)))
	assert.ErrorIs(t, s.CreateNotification(ctx, newRow("n1", now)), notifications.ErrPersistence)
	assert.ErrorIs(t, s.CreateNotification(ctx, newRow("", now)), notifications.ErrPersistence)

	got, err := s.Notification(ctx, "n1")
	require.NoError(t, err)
	got.Metadata["k"] = "mutated"

	again, err := s.Notification(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Metadata["k"], "stored rows must not share maps with callers")
}

func TestMemoryStorage_ClaimComplete(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*notifications.MemoryStorage, *fakeClock) {
		t.Helper()
		clock := newFakeClock()
		s := notifications.NewMemoryStorage(notifications.WithMemoryClock(clock.Now))
		require.NoError(t, s.CreateNotification(context.Background(), newRow("n1", clock.Now())))
		return s, clock
	}
	pending := notifications.Expectation{Status: notifications.StatusPending}

	t.Run("complete applies update and appends one log entry", func(t *testing.T) {
		t.Parallel()
		s, clock := setup(t)
		ctx := context.Background()

		token, n, err := s.Claim(ctx, "n1", pending, time.Minute)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "n1", n.ID)

		at := clock.Now()
		updated, err := s.Complete(ctx, "n1", token,
			notifications.StatusUpdate{Status: notifications.StatusFailed, ErrorMessage: "boom", IncrementRetry: true, At: at},
			notifications.LogEntry{Event: "failed", Status: notifications.StatusFailed, Timestamp: at},
		)
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusFailed, updated.Status)
		assert.Equal(t, 1, updated.RetryCount)
		assert.Equal(t, "boom", updated.ErrorMessage)
		assert.Equal(t, at, updated.UpdatedAt)

		logs, err := s.Logs(ctx, "n1")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "n1", logs[0].NotificationID)
		assert.NotEmpty(t, logs[0].ID)

		_, err = s.Complete(ctx, "n1", token, notifications.StatusUpdate{Status: notifications.StatusSent, At: at}, notifications.LogEntry{})
		assert.ErrorIs(t, err, notifications.ErrTransitionConflict, "token is single use")
	})

	t.Run("stale expectation conflicts", func(t *testing.T) {
		t.Parallel()
		s, _ := setup(t)

		_, _, err := s.Claim(context.Background(), "n1",
			notifications.Expectation{Status: notifications.StatusFailed, RetryCount: 1}, time.Minute)
		assert.ErrorIs(t, err, notifications.ErrTransitionConflict)
	})

	t.Run("live claim blocks until lease expires", func(t *testing.T) {
		t.Parallel()
		s, clock := setup(t)
		ctx := context.Background()

		first, _, err := s.Claim(ctx, "n1", pending, time.Minute)
		require.NoError(t, err)

		_, _, err = s.Claim(ctx, "n1", pending, time.Minute)
		assert.ErrorIs(t, err, notifications.ErrTransitionConflict)

		rows, err := s.DueScheduled(ctx, notifications.SweepQuery{Now: clock.Now(), StaleBefore: clock.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, rows, "claimed rows are hidden from sweeps")

		clock.Advance(2 * time.Minute)
		second, _, err := s.Claim(ctx, "n1", pending, time.Minute)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		_, err = s.Complete(ctx, "n1", first, notifications.StatusUpdate{Status: notifications.StatusSent}, notifications.LogEntry{})
		assert.ErrorIs(t, err, notifications.ErrTransitionConflict)
	})

	t.Run("release frees the row", func(t *testing.T) {
		t.Parallel()
		s, _ := setup(t)
		ctx := context.Background()

		token, _, err := s.Claim(ctx, "n1", pending, time.Minute)
		require.NoError(t, err)
		assert.ErrorIs(t, s.Release(ctx, "n1", "other"), notifications.ErrTransitionConflict)
		require.NoError(t, s.Release(ctx, "n1", token))

		_, _, err = s.Claim(ctx, "n1", pending, time.Minute)
		assert.NoError(t, err)
	})

	t.Run("forbidden transition is rejected without a log entry", func(t *testing.T) {
		t.Parallel()
		s, _ := setup(t)
		ctx := context.Background()

		token, _, err := s.Claim(ctx, "n1", pending, time.Minute)
		require.NoError(t, err)
		_, err = s.Complete(ctx, "n1", token, notifications.StatusUpdate{Status: notifications.StatusDelivered}, notifications.LogEntry{})
		assert.ErrorIs(t, err, notifications.ErrInvalidTransition)

		logs, err := s.Logs(ctx, "n1")
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("retry count is capped", func(t *testing.T) {
		t.Parallel()
		s, _ := setup(t)
		ctx := context.Background()

		expect := pending
		for range 3 {
			token, _, err := s.Claim(ctx, "n1", expect, time.Minute)
			require.NoError(t, err)
			n, err := s.Complete(ctx, "n1", token,
				notifications.StatusUpdate{Status: notifications.StatusFailed, IncrementRetry: true},
				notifications.LogEntry{})
			require.NoError(t, err)
			expect = notifications.Expectation{Status: n.Status, RetryCount: n.RetryCount}
		}
		assert.Equal(t, 3, expect.RetryCount)

		token, _, err := s.Claim(ctx, "n1", expect, time.Minute)
		require.NoError(t, err)
		_, err = s.Complete(ctx, "n1", token,
			notifications.StatusUpdate{Status: notifications.StatusFailed, IncrementRetry: true},
			notifications.LogEntry{})
		assert.ErrorIs(t, err, notifications.ErrInvalidTransition)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		s, _ := setup(t)
		_, _, err := s.Claim(context.Background(), "nope", pending, time.Minute)
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
		_, err = s.Logs(context.Background(), "nope")
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})
}

func TestMemoryStorage_Sweeps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	s := notifications.NewMemoryStorage(notifications.WithMemoryClock(clock.Now))
	now := clock.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	due := newRow("due", now.Add(-3*time.Second))
	due.ScheduledAt = &past
	notYet := newRow("not-yet", now.Add(-2*time.Second))
	notYet.ScheduledAt = &future
	fresh := newRow("fresh", now.Add(-time.Second))
	retryable := newRow("retryable", now)
	retryable.Status = notifications.StatusFailed
	retryable.RetryCount = 1
	exhausted := newRow("exhausted", now)
	exhausted.Status = notifications.StatusFailed
	exhausted.RetryCount = 3

	for _, n := range []notifications.Notification{due, notYet, fresh, retryable, exhausted} {
		require.NoError(t, s.CreateNotification(ctx, n))
	}

	rows, err := s.DueScheduled(ctx, notifications.SweepQuery{Now: now})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "due", rows[0].ID)

	rows, err = s.DueScheduled(ctx, notifications.SweepQuery{Now: now, StaleBefore: now})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "due", rows[0].ID)
	assert.Equal(t, "fresh", rows[1].ID)

	rows, err = s.DueScheduled(ctx, notifications.SweepQuery{
		Now:         now,
		StaleBefore: now,
		After:       &notifications.Cursor{CreatedAt: due.CreatedAt, ID: due.ID},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "fresh", rows[0].ID)

	rows, err = s.Retryable(ctx, notifications.SweepQuery{Now: now, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "retryable", rows[0].ID)
}

func TestMemoryStorage_Templates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()

	require.NoError(t, s.CreateTemplate(ctx, notifications.Template{ID: "t1", Name: "b", IsActive: true}))
	require.NoError(t, s.CreateTemplate(ctx, notifications.Template{ID: "t2", Name: "a", IsActive: false}))
	assert.ErrorIs(t, s.CreateTemplate(ctx, notifications.Template{ID: "t3", Name: "b"}), notifications.ErrTemplateAlreadyExists)

	got, err := s.TemplateByName(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)

	_, err = s.TemplateByName(ctx, "a")
	assert.ErrorIs(t, err, notifications.ErrTemplateNotFound, "inactive templates do not resolve")

	all, err := s.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
}

func TestMemoryStorage_Preferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()

	_, err := s.Preferences(ctx, "u1")
	assert.ErrorIs(t, err, notifications.ErrPreferencesNotFound)

	require.NoError(t, s.SavePreferences(ctx, emailPrefs("u1")))
	p, err := s.Preferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", p.EmailAddress)
}
