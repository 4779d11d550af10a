package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func newTestApp(t *testing.T, cfg appConfig) (*app, *notifications.MemoryStorage) {
	t.Helper()
	store := notifications.NewMemoryStorage()
	a := &app{
		cfg:     configs{app: cfg},
		log:     logger.Discard(),
		manager: notifications.NewManager(store, notifications.NewRegistry()),
	}
	return a, store
}

func TestBundledTemplates(t *testing.T) {
	t.Parallel()

	inputs, err := notifications.LoadTemplates(bytes.NewReader(seedTemplates))
	require.NoError(t, err)

	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		require.NoError(t, in.Validate(), in.Name)
		assert.Equal(t, notifications.ChannelEmail, in.Channel)
		names = append(names, in.Name)
	}
	assert.ElementsMatch(t, []string{"welcome_email", "password_reset"}, names)
}

func TestApp_Seed(t *testing.T) {
	t.Parallel()

	t.Run("bundled templates are idempotent", func(t *testing.T) {
		t.Parallel()
		a, store := newTestApp(t, appConfig{})
		ctx := context.Background()

		require.NoError(t, a.seed(ctx))
		require.NoError(t, a.seed(ctx))

		list, err := store.Templates(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("templates file overrides bundled set", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "templates.yaml")
		body := "templates:\n  - name: digest\n    type: in-app\n    content: \"{{count}} new updates\"\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		a, store := newTestApp(t, appConfig{TemplatesFile: path})
		require.NoError(t, a.seed(context.Background()))

		tpl, err := store.TemplateByName(context.Background(), "digest")
		require.NoError(t, err)
		assert.Equal(t, notifications.ChannelInApp, tpl.Channel)

		_, err = store.TemplateByName(context.Background(), "welcome_email")
		assert.ErrorIs(t, err, notifications.ErrNotFound)
	})

	t.Run("missing templates file", func(t *testing.T) {
		t.Parallel()
		a, _ := newTestApp(t, appConfig{TemplatesFile: filepath.Join(t.TempDir(), "nope.yaml")})
		assert.Error(t, a.seed(context.Background()))
	})
}

func TestApp_BuildScheduler(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, appConfig{
		ScheduledSweepInterval: time.Minute,
		RetrySweepInterval:     5 * time.Minute,
	})
	s, err := a.buildScheduler()
	require.NoError(t, err)
	assert.Equal(t, []string{"retry", "scheduled"}, s.Jobs())

	require.NoError(t, s.RunNow(context.Background(), "scheduled"))
	require.NoError(t, s.RunNow(context.Background(), "retry"))
}

func TestApp_OpenStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, appConfig{StorageDriver: "mysql"})
	_, _, err := a.openStore(context.Background())
	assert.ErrorContains(t, err, "unknown STORAGE_DRIVER")
}
