package pgstore_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

// testStore connects to PG_CONN_URL and applies migrations once per run.
// Tests are skipped when the variable is not set.
func testStore(t *testing.T) *pgstore.Store {
	t.Helper()
	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL not set, skipping PostgreSQL integration tests")
	}

	poolOnce.Do(func() {
		ctx := context.Background()
		cfg := pg.Config{
			ConnectionString: url,
			RetryAttempts:    3,
			RetryInterval:    time.Second,
			MigrationsTable:  "notifykit_test_migrations",
		}
		pool, poolErr = pg.Connect(ctx, cfg)
		if poolErr != nil {
			return
		}
		_, poolErr = pg.Migrate(ctx, pool, pgstore.Migrations(), cfg, logger.Discard())
	})
	require.NoError(t, poolErr)
	return pgstore.New(pool)
}

func newPending(userID string) notifications.Notification {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return notifications.Notification{
		ID:         uuid.NewString(),
		UserID:     userID,
		Channel:    notifications.ChannelEmail,
		Content:    "hello",
		Status:     notifications.StatusPending,
		Priority:   notifications.PriorityNormal,
		MaxRetries: 3,
		Metadata:   map[string]any{"source": "test"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestStore_ClaimComplete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	n := newPending("pg-" + uuid.NewString())
	require.NoError(t, s.CreateNotification(ctx, n))

	got, err := s.Notification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", got.Metadata["source"])
	assert.Empty(t, got.TemplateID)

	expect := notifications.Expectation{Status: notifications.StatusPending}
	token, _, err := s.Claim(ctx, n.ID, expect, time.Minute)
	require.NoError(t, err)

	_, _, err = s.Claim(ctx, n.ID, expect, time.Minute)
	assert.ErrorIs(t, err, notifications.ErrTransitionConflict)

	at := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := s.Complete(ctx, n.ID, token,
		notifications.StatusUpdate{Status: notifications.StatusFailed, ErrorMessage: "down", IncrementRetry: true, At: at},
		notifications.LogEntry{Event: "failed", Status: notifications.StatusFailed, Message: "down", Timestamp: at},
	)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusFailed, updated.Status)
	assert.Equal(t, 1, updated.RetryCount)
	assert.Equal(t, "down", updated.ErrorMessage)

	_, err = s.Complete(ctx, n.ID, token, notifications.StatusUpdate{Status: notifications.StatusSent, At: at}, notifications.LogEntry{})
	assert.ErrorIs(t, err, notifications.ErrTransitionConflict)

	logs, err := s.Logs(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "failed", logs[0].Event)

	rows, err := s.Retryable(ctx, notifications.SweepQuery{Now: time.Now(), Limit: 1000})
	require.NoError(t, err)
	assert.Contains(t, ids(rows), n.ID)
}

func TestStore_ReleaseAndMisses(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	n := newPending("pg-" + uuid.NewString())
	require.NoError(t, s.CreateNotification(ctx, n))

	token, _, err := s.Claim(ctx, n.ID, notifications.Expectation{Status: notifications.StatusPending}, time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Release(ctx, n.ID, uuid.NewString()), notifications.ErrTransitionConflict)
	require.NoError(t, s.Release(ctx, n.ID, token))

	_, err = s.Notification(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	_, err = s.Notification(ctx, uuid.NewString())
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	_, _, err = s.Claim(ctx, uuid.NewString(), notifications.Expectation{Status: notifications.StatusPending}, time.Minute)
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
}

func TestStore_DueScheduled(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := "pg-" + uuid.NewString()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	due := newPending(user)
	due.ScheduledAt = &past
	later := newPending(user)
	later.ScheduledAt = &future
	require.NoError(t, s.CreateNotification(ctx, due))
	require.NoError(t, s.CreateNotification(ctx, later))

	rows, err := s.DueScheduled(ctx, notifications.SweepQuery{Now: time.Now(), Limit: 1000})
	require.NoError(t, err)
	assert.Contains(t, ids(rows), due.ID)
	assert.NotContains(t, ids(rows), later.ID)

	page, err := s.NotificationsByUser(ctx, user, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestStore_TemplatesAndPreferences(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	tpl := notifications.Template{
		ID:        uuid.NewString(),
		Name:      "tpl-" + uuid.NewString(),
		Channel:   notifications.ChannelSMS,
		Content:   "code {{code}}",
		Variables: map[string]any{"code": "string"},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateTemplate(ctx, tpl))
	assert.ErrorIs(t, s.CreateTemplate(ctx, tpl), notifications.ErrTemplateAlreadyExists)

	got, err := s.TemplateByName(ctx, tpl.Name)
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, got.ID)
	assert.Equal(t, notifications.ChannelSMS, got.Channel)

	user := "pg-" + uuid.NewString()
	_, err = s.Preferences(ctx, user)
	assert.ErrorIs(t, err, notifications.ErrPreferencesNotFound)

	p := notifications.DefaultPreferences(user)
	p.PhoneNumber = "+14155552671"
	p.CreatedAt, p.UpdatedAt = now, now
	require.NoError(t, s.SavePreferences(ctx, p))
	p.SMSEnabled = false
	require.NoError(t, s.SavePreferences(ctx, p))

	stored, err := s.Preferences(ctx, user)
	require.NoError(t, err)
	assert.False(t, stored.SMSEnabled)
	assert.Equal(t, "+14155552671", stored.PhoneNumber)
}

func TestStore_ManagerLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := "pg-" + uuid.NewString()

	calls := 0
	registry := notifications.NewRegistry().Register(notifications.ChannelEmail, notifications.DispatcherFunc(
		func(context.Context, notifications.Delivery) notifications.Outcome {
			calls++
			return notifications.Failed("always down")
		},
	))
	m := notifications.NewManager(s, registry, notifications.WithManagerLogger(logger.Discard()))

	_, err := m.UpdateUserPreferences(ctx, notifications.PreferencesUpdate{UserID: user, EmailAddress: ptr("a@b.com")})
	require.NoError(t, err)

	n, err := m.Create(ctx, notifications.CreateRequest{UserID: user, Channel: notifications.ChannelEmail, Content: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, n.RetryCount)

	for range 3 {
		_, err := m.RetryFailedNotifications(ctx)
		require.NoError(t, err)
	}

	final, err := m.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusFailed, final.Status)
	assert.Equal(t, 3, final.RetryCount)
	assert.Equal(t, 3, calls)

	logs, err := m.Logs(ctx, n.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func ids(rows []notifications.Notification) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }
