package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

const templateColumns = `id, name, type, subject, content, variables, is_active, created_at, updated_at`

func scanTemplate(row pgx.Row) (*notifications.Template, error) {
	var (
		t       notifications.Template
		channel string
	)
	if err := row.Scan(&t.ID, &t.Name, &channel, &t.Subject, &t.Content, &t.Variables, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Channel = notifications.Channel(channel)
	return &t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t notifications.Template) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Name, string(t.Channel), t.Subject, t.Content, t.Variables, t.IsActive, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return notifications.ErrTemplateAlreadyExists
		}
		return persistence("insert template", err)
	}
	return nil
}

func (s *Store) TemplateByName(ctx context.Context, name string) (*notifications.Template, error) {
	t, err := scanTemplate(s.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE name = $1 AND is_active`, name))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notifications.ErrTemplateNotFound
		}
		return nil, persistence("get template", err)
	}
	return t, nil
}

func (s *Store) Templates(ctx context.Context) ([]notifications.Template, error) {
	rows, err := s.db.Query(ctx, `SELECT `+templateColumns+` FROM notification_templates ORDER BY name`)
	if err != nil {
		return nil, persistence("list templates", err)
	}
	defer rows.Close()

	out := []notifications.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, persistence("scan template", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("scan templates", err)
	}
	return out, nil
}
