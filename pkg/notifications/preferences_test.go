package notifications_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestPreferences_IsEnabled(t *testing.T) {
	t.Parallel()

	full := notifications.Preferences{
		UserID:       "u1",
		EmailEnabled: true,
		SMSEnabled:   true,
		PushEnabled:  true,
		InAppEnabled: true,
		EmailAddress: "a@b.com",
		PhoneNumber:  "+14155552671",
		PushToken:    "tok",
	}

	tests := []struct {
		name    string
		mutate  func(p *notifications.Preferences)
		channel notifications.Channel
		want    bool
		dest    string
	}{
		{name: "email", channel: notifications.ChannelEmail, want: true, dest: "a@b.com"},
		{name: "sms", channel: notifications.ChannelSMS, want: true, dest: "+14155552671"},
		{name: "push", channel: notifications.ChannelPush, want: true, dest: "tok"},
		{name: "in-app", channel: notifications.ChannelInApp, want: true, dest: "u1"},
		{
			name:    "email disabled",
			mutate:  func(p *notifications.Preferences) { p.EmailEnabled = false },
			channel: notifications.ChannelEmail, want: false, dest: "a@b.com",
		},
		{
			name:    "sms without phone",
			mutate:  func(p *notifications.Preferences) { p.PhoneNumber = "" },
			channel: notifications.ChannelSMS, want: false, dest: "",
		},
		{
			name:    "push without token",
			mutate:  func(p *notifications.Preferences) { p.PushToken = "" },
			channel: notifications.ChannelPush, want: false, dest: "",
		},
		{
			name:    "in-app needs only the flag",
			mutate:  func(p *notifications.Preferences) { p.EmailAddress, p.PhoneNumber, p.PushToken = "", "", "" },
			channel: notifications.ChannelInApp, want: true, dest: "u1",
		},
		{
			name:    "in-app disabled",
			mutate:  func(p *notifications.Preferences) { p.InAppEnabled = false },
			channel: notifications.ChannelInApp, want: false, dest: "u1",
		},
		{name: "unknown channel", channel: "fax", want: false, dest: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := full
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			assert.Equal(t, tt.want, p.IsEnabled(tt.channel))
			assert.Equal(t, tt.dest, p.Destination(tt.channel))
		})
	}
}

func TestPreferencesUpdate_Apply(t *testing.T) {
	t.Parallel()

	p := notifications.DefaultPreferences("u1")
	assert.False(t, notifications.PreferencesUpdate{UserID: "u1"}.Apply(&p))
	assert.False(t, notifications.PreferencesUpdate{EmailEnabled: ptr(true)}.Apply(&p), "same value is not a change")

	changed := notifications.PreferencesUpdate{
		SMSEnabled:   ptr(false),
		EmailAddress: ptr("x@y.org"),
	}.Apply(&p)
	assert.True(t, changed)
	assert.False(t, p.SMSEnabled)
	assert.True(t, p.PushEnabled)
	assert.Equal(t, "x@y.org", p.EmailAddress)
}

func TestManager_UpdateUserPreferences(t *testing.T) {
	t.Parallel()

	t.Run("creates with defaults and no event", func(t *testing.T) {
		t.Parallel()
		pub := &MockPublisher{}
		f := newFixture(notifications.WithPublisher(pub))

		p, err := f.manager.UpdateUserPreferences(context.Background(), notifications.PreferencesUpdate{
			UserID:       "u1",
			EmailAddress: ptr("a@b.com"),
			PushEnabled:  ptr(false),
		})
		require.NoError(t, err)
		assert.True(t, p.EmailEnabled)
		assert.True(t, p.SMSEnabled)
		assert.False(t, p.PushEnabled)
		assert.True(t, p.InAppEnabled)
		assert.Equal(t, f.clock.Now(), p.CreatedAt)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		stored, err := f.manager.GetUserPreferences(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", stored.EmailAddress)
	})

	t.Run("partial update publishes on change only", func(t *testing.T) {
		t.Parallel()
		pub := &MockPublisher{}
		pub.On("Publish", mock.Anything, notifications.EventsTopic, notifications.RoutingKeyPreferencesUpdated,
			mock.AnythingOfType("notifications.PreferencesUpdatedEvent")).Return(nil).Once()
		f := newFixture(notifications.WithPublisher(pub))
		f.savePrefs(emailPrefs("u1"))

		p, err := f.manager.UpdateUserPreferences(context.Background(), notifications.PreferencesUpdate{
			UserID:     "u1",
			SMSEnabled: ptr(false),
		})
		require.NoError(t, err)
		assert.False(t, p.SMSEnabled)
		assert.Equal(t, "a@b.com", p.EmailAddress)

		_, err = f.manager.UpdateUserPreferences(context.Background(), notifications.PreferencesUpdate{
			UserID:     "u1",
			SMSEnabled: ptr(false),
		})
		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("validates destinations", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.manager.UpdateUserPreferences(context.Background(), notifications.PreferencesUpdate{
			UserID:       "u1",
			EmailAddress: ptr("not-an-email"),
			PhoneNumber:  ptr("12"),
		})
		require.ErrorIs(t, err, notifications.ErrValidation)

		_, err = f.manager.GetUserPreferences(context.Background(), "u1")
		assert.ErrorIs(t, err, notifications.ErrPreferencesNotFound)
	})
}
