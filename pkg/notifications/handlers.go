package notifications

import (
	"context"
	"fmt"
	"time"
)

// Templates the account event handlers render.
const (
	TemplateWelcomeEmail  = "welcome_email"
	TemplatePasswordReset = "password_reset"
)

// UserRegisteredEvent is emitted by the account service after sign-up.
type UserRegisteredEvent struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

// PasswordResetEvent is emitted by the account service when a reset is requested.
type PasswordResetEvent struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// HandleUserRegistered sends the welcome email.
func (m *Manager) HandleUserRegistered(ctx context.Context, e UserRegisteredEvent) (*Notification, error) {
	vars := map[string]any{
		"email":     e.Email,
		"firstName": e.FirstName,
	}
	return m.Create(ctx, CreateRequest{
		UserID:       e.UserID,
		Channel:      ChannelEmail,
		TemplateName: TemplateWelcomeEmail,
		Subject:      "Welcome",
		Content:      fmt.Sprintf("Hi %s, thanks for signing up.", e.FirstName),
		Variables:    vars,
		Metadata:     vars,
	})
}

// HandlePasswordReset sends the password reset email.
func (m *Manager) HandlePasswordReset(ctx context.Context, e PasswordResetEvent) (*Notification, error) {
	vars := map[string]any{
		"email":      e.Email,
		"resetToken": e.ResetToken,
		"expiresAt":  e.ExpiresAt,
	}
	return m.Create(ctx, CreateRequest{
		UserID:       e.UserID,
		Channel:      ChannelEmail,
		TemplateName: TemplatePasswordReset,
		Subject:      "Password reset",
		Content:      fmt.Sprintf("Use this code to reset your password: %s", e.ResetToken),
		Priority:     PriorityHigh,
		Variables:    vars,
		Metadata:     vars,
	})
}
