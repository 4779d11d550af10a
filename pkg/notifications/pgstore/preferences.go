package pgstore

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

func (s *Store) Preferences(ctx context.Context, userID string) (*notifications.Preferences, error) {
	var p notifications.Preferences
	err := s.db.QueryRow(ctx, `
		SELECT user_id, email_enabled, sms_enabled, push_enabled, in_app_enabled,
		       email_address, phone_number, push_token, preferences, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1`,
		userID,
	).Scan(
		&p.UserID, &p.EmailEnabled, &p.SMSEnabled, &p.PushEnabled, &p.InAppEnabled,
		&p.EmailAddress, &p.PhoneNumber, &p.PushToken, &p.Extra, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notifications.ErrPreferencesNotFound
		}
		return nil, persistence("get preferences", err)
	}
	return &p, nil
}

func (s *Store) SavePreferences(ctx context.Context, p notifications.Preferences) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_preferences (
			user_id, email_enabled, sms_enabled, push_enabled, in_app_enabled,
			email_address, phone_number, push_token, preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			push_enabled = EXCLUDED.push_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			email_address = EXCLUDED.email_address,
			phone_number = EXCLUDED.phone_number,
			push_token = EXCLUDED.push_token,
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.EmailEnabled, p.SMSEnabled, p.PushEnabled, p.InAppEnabled,
		p.EmailAddress, p.PhoneNumber, p.PushToken, p.Extra, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return persistence("save preferences", err)
	}
	return nil
}
