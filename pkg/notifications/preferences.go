package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Preferences holds per-user channel switches and destinations.
type Preferences struct {
	UserID       string         `json:"userId"`
	EmailEnabled bool           `json:"emailEnabled"`
	SMSEnabled   bool           `json:"smsEnabled"`
	PushEnabled  bool           `json:"pushEnabled"`
	InAppEnabled bool           `json:"inAppEnabled"`
	EmailAddress string         `json:"emailAddress,omitempty"`
	PhoneNumber  string         `json:"phoneNumber,omitempty"`
	PushToken    string         `json:"pushToken,omitempty"`
	Extra        map[string]any `json:"preferences,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// DefaultPreferences returns a record with every channel enabled and no destinations.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:       userID,
		EmailEnabled: true,
		SMSEnabled:   true,
		PushEnabled:  true,
		InAppEnabled: true,
	}
}

// IsEnabled reports whether the user accepts delivery on the channel.
// Email, SMS and push additionally need a destination; in-app needs only the flag.
func (p Preferences) IsEnabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.EmailEnabled && p.EmailAddress != ""
	case ChannelSMS:
		return p.SMSEnabled && p.PhoneNumber != ""
	case ChannelPush:
		return p.PushEnabled && p.PushToken != ""
	case ChannelInApp:
		return p.InAppEnabled
	default:
		return false
	}
}

// Destination returns the address the channel delivers to. In-app resolves to the user ID.
func (p Preferences) Destination(c Channel) string {
	switch c {
	case ChannelEmail:
		return p.EmailAddress
	case ChannelSMS:
		return p.PhoneNumber
	case ChannelPush:
		return p.PushToken
	case ChannelInApp:
		return p.UserID
	default:
		return ""
	}
}

// skipReason explains why IsEnabled returned false.
func (p Preferences) skipReason(c Channel) string {
	switch c {
	case ChannelEmail:
		if !p.EmailEnabled {
			return "email notifications disabled by user"
		}
		return "no email address on file"
	case ChannelSMS:
		if !p.SMSEnabled {
			return "sms notifications disabled by user"
		}
		return "no phone number on file"
	case ChannelPush:
		if !p.PushEnabled {
			return "push notifications disabled by user"
		}
		return "no push token on file"
	case ChannelInApp:
		return "in-app notifications disabled by user"
	default:
		return "unsupported channel " + string(c)
	}
}

func (p Preferences) clone() Preferences {
	p.Extra = cloneMap(p.Extra)
	return p
}

// PreferencesUpdate is a partial update. Nil fields are left untouched.
type PreferencesUpdate struct {
	UserID       string         `json:"userId"`
	EmailEnabled *bool          `json:"emailEnabled,omitempty"`
	SMSEnabled   *bool          `json:"smsEnabled,omitempty"`
	PushEnabled  *bool          `json:"pushEnabled,omitempty"`
	InAppEnabled *bool          `json:"inAppEnabled,omitempty"`
	EmailAddress *string        `json:"emailAddress,omitempty"`
	PhoneNumber  *string        `json:"phoneNumber,omitempty"`
	PushToken    *string        `json:"pushToken,omitempty"`
	Extra        map[string]any `json:"preferences,omitempty"`
}

// Apply writes the provided fields onto p and reports whether anything changed.
func (u PreferencesUpdate) Apply(p *Preferences) bool {
	changed := false
	setBool := func(dst *bool, src *bool) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setString := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setBool(&p.EmailEnabled, u.EmailEnabled)
	setBool(&p.SMSEnabled, u.SMSEnabled)
	setBool(&p.PushEnabled, u.PushEnabled)
	setBool(&p.InAppEnabled, u.InAppEnabled)
	setString(&p.EmailAddress, u.EmailAddress)
	setString(&p.PhoneNumber, u.PhoneNumber)
	setString(&p.PushToken, u.PushToken)
	if u.Extra != nil {
		p.Extra = cloneMap(u.Extra)
		changed = true
	}
	return changed
}

// GetUserPreferences returns the user's record or ErrPreferencesNotFound.
func (m *Manager) GetUserPreferences(ctx context.Context, userID string) (*Preferences, error) {
	return m.store.Preferences(ctx, userID)
}

// UpdateUserPreferences upserts the user's preferences. A new record starts
// with every channel enabled before the update is applied. Changes to an
// existing record publish preferences.updated.
func (m *Manager) UpdateUserPreferences(ctx context.Context, u PreferencesUpdate) (*Preferences, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	existing, err := m.store.Preferences(ctx, u.UserID)
	switch {
	case errors.Is(err, ErrPreferencesNotFound):
		p := DefaultPreferences(u.UserID)
		p.CreatedAt = now
		p.UpdatedAt = now
		u.Apply(&p)
		if err := m.store.SavePreferences(ctx, p); err != nil {
			return nil, err
		}
		m.logger.LogAttrs(ctx, slog.LevelInfo, "preferences created", logger.UserID(p.UserID))
		return &p, nil
	case err != nil:
		return nil, err
	}

	if !u.Apply(existing) {
		return existing, nil
	}
	existing.UpdatedAt = now
	if err := m.store.SavePreferences(ctx, *existing); err != nil {
		return nil, err
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "preferences updated", logger.UserID(existing.UserID))
	m.publish(ctx, EventsTopic, RoutingKeyPreferencesUpdated, PreferencesUpdatedEvent{
		UserID:    existing.UserID,
		Timestamp: now,
	})
	return existing, nil
}
