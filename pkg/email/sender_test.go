package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/email"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     email.Message
		wantErr string
	}{
		{
			name: "valid text message",
			msg:  email.Message{To: "user@example.com", Subject: "Hi", TextBody: "Hello"},
		},
		{
			name: "valid html message",
			msg:  email.Message{To: "user@example.com", Subject: "Hi", HTMLBody: "<p>Hello</p>"},
		},
		{
			name:    "missing recipient",
			msg:     email.Message{Subject: "Hi", TextBody: "Hello"},
			wantErr: "recipient is required",
		},
		{
			name:    "invalid recipient",
			msg:     email.Message{To: "not-an-email", Subject: "Hi", TextBody: "Hello"},
			wantErr: "recipient must be a valid email address",
		},
		{
			name:    "missing subject",
			msg:     email.Message{To: "user@example.com", Subject: "  ", TextBody: "Hello"},
			wantErr: "subject is required",
		},
		{
			name:    "missing body",
			msg:     email.Message{To: "user@example.com", Subject: "Hi"},
			wantErr: "body is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.msg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsValidAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, email.IsValidAddress("jane.doe+tag@mail.example.org"))
	assert.False(t, email.IsValidAddress("@example.com"))
	assert.False(t, email.IsValidAddress("jane@localhost"))
	assert.False(t, email.IsValidAddress(""))
}

func TestDevSender_Send(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := email.NewDevSender(dir)

	id, err := sender.Send(context.Background(), email.Message{
		To:       "user@example.com",
		Subject:  "Welcome Aboard!",
		TextBody: "Hello Jane",
		Tag:      "welcome",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var jsonFile, htmlFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".json":
			jsonFile = filepath.Join(dir, e.Name())
		case ".html":
			htmlFile = filepath.Join(dir, e.Name())
		}
	}
	require.NotEmpty(t, jsonFile)
	require.NotEmpty(t, htmlFile)
	assert.True(t, strings.HasSuffix(jsonFile, "_welcome.json"))

	html, err := os.ReadFile(htmlFile)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Hello Jane")

	raw, err := os.ReadFile(jsonFile)
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, id, meta["message_id"])
	assert.Equal(t, "user@example.com", meta["send_to"])
	assert.Equal(t, "Welcome Aboard!", meta["subject"])
}

func TestDevSender_SendInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := email.NewDevSender(dir).Send(context.Background(), email.Message{To: "user@example.com"})
	require.ErrorIs(t, err, email.ErrInvalidParams)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew(t *testing.T) {
	t.Parallel()

	base := email.Config{SenderEmail: "noreply@example.com", DevDir: t.TempDir()}

	t.Run("dev by default", func(t *testing.T) {
		t.Parallel()
		s, err := email.New(context.Background(), base)
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, s)
	})

	t.Run("postmark", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.Provider = email.ProviderPostmark
		cfg.PostmarkServerToken = "server"
		cfg.PostmarkAccountToken = "account"
		s, err := email.New(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, &email.PostmarkSender{}, s)
	})

	t.Run("sendgrid without key", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.Provider = email.ProviderSendGrid
		s, err := email.New(context.Background(), cfg)
		require.ErrorIs(t, err, email.ErrInvalidConfig)
		assert.Nil(t, s)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.Provider = "pigeon"
		_, err := email.New(context.Background(), cfg)
		assert.ErrorIs(t, err, email.ErrUnknownProvider)
	})

	t.Run("invalid sender", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.SenderEmail = "nope"
		_, err := email.New(context.Background(), cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}
