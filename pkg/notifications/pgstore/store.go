package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a PostgreSQL notifications.Store.
type Store struct {
	db DB
}

var _ notifications.Store = (*Store)(nil)

// New creates a store on top of db.
func New(db DB) *Store {
	return &Store{db: db}
}

const maxSweepLimit = 1000

const notificationColumns = `id, user_id, template_id, type, subject, content, status, priority,
	scheduled_at, sent_at, delivered_at, metadata, error_message, retry_count, max_retries,
	created_at, updated_at`

func persistence(op string, err error) error {
	return errors.Join(notifications.ErrPersistence, fmt.Errorf("%s: %w", op, err))
}

// validID reports whether id can be compared with a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanNotification(row pgx.Row) (*notifications.Notification, error) {
	var (
		n                         notifications.Notification
		templateID                *string
		channel, status, priority string
	)
	err := row.Scan(
		&n.ID, &n.UserID, &templateID, &channel, &n.Subject, &n.Content, &status, &priority,
		&n.ScheduledAt, &n.SentAt, &n.DeliveredAt, &n.Metadata, &n.ErrorMessage, &n.RetryCount, &n.MaxRetries,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if templateID != nil {
		n.TemplateID = *templateID
	}
	n.Channel = notifications.Channel(channel)
	n.Status = notifications.Status(status)
	n.Priority = notifications.Priority(priority)
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]notifications.Notification, error) {
	defer rows.Close()
	out := []notifications.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (s *Store) CreateNotification(ctx context.Context, n notifications.Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (
			id, user_id, template_id, type, subject, content, status, priority,
			scheduled_at, metadata, error_message, retry_count, max_retries, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		n.ID, n.UserID, nullable(n.TemplateID), string(n.Channel), n.Subject, n.Content,
		string(n.Status), string(n.Priority), n.ScheduledAt, n.Metadata, n.ErrorMessage,
		n.RetryCount, n.MaxRetries, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return persistence("insert notification", err)
	}
	return nil
}

func (s *Store) Notification(ctx context.Context, id string) (*notifications.Notification, error) {
	if !validID(id) {
		return nil, notifications.ErrNotificationNotFound
	}
	n, err := scanNotification(s.db.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, persistence("get notification", err)
	}
	return n, nil
}

func (s *Store) NotificationsByUser(ctx context.Context, userID string, limit, offset int) ([]notifications.Notification, error) {
	if limit <= 0 {
		limit = notifications.MaxListLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, persistence("list notifications", err)
	}
	out, err := collectNotifications(rows)
	if err != nil {
		return nil, persistence("scan notifications", err)
	}
	return out, nil
}

func sweepArgs(q notifications.SweepQuery) (after *time.Time, afterID *string, limit int) {
	if q.After != nil {
		after = &q.After.CreatedAt
		afterID = &q.After.ID
	}
	limit = q.Limit
	if limit <= 0 || limit > maxSweepLimit {
		limit = maxSweepLimit
	}
	return after, afterID, limit
}

func (s *Store) DueScheduled(ctx context.Context, q notifications.SweepQuery) ([]notifications.Notification, error) {
	var staleBefore *time.Time
	if !q.StaleBefore.IsZero() {
		staleBefore = &q.StaleBefore
	}
	after, afterID, limit := sweepArgs(q)

	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = 'pending'
		  AND (scheduled_at <= $1
		       OR (scheduled_at IS NULL AND $2::timestamptz IS NOT NULL AND created_at < $2::timestamptz))
		  AND (claim_token IS NULL OR claim_expires_at < now())
		  AND ($3::timestamptz IS NULL OR (created_at, id) > ($3::timestamptz, $4::uuid))
		ORDER BY created_at, id
		LIMIT $5`,
		q.Now, staleBefore, after, afterID, limit,
	)
	if err != nil {
		return nil, persistence("select due notifications", err)
	}
	out, err := collectNotifications(rows)
	if err != nil {
		return nil, persistence("scan due notifications", err)
	}
	return out, nil
}

func (s *Store) Retryable(ctx context.Context, q notifications.SweepQuery) ([]notifications.Notification, error) {
	after, afterID, limit := sweepArgs(q)

	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = 'failed'
		  AND retry_count < max_retries
		  AND (claim_token IS NULL OR claim_expires_at < now())
		  AND ($1::timestamptz IS NULL OR (created_at, id) > ($1::timestamptz, $2::uuid))
		ORDER BY created_at, id
		LIMIT $3`,
		after, afterID, limit,
	)
	if err != nil {
		return nil, persistence("select retryable notifications", err)
	}
	out, err := collectNotifications(rows)
	if err != nil {
		return nil, persistence("scan retryable notifications", err)
	}
	return out, nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, persistence("check notification", err)
	}
	return ok, nil
}

// missOrConflict resolves an update that matched no row.
func (s *Store) missOrConflict(ctx context.Context, id string) error {
	ok, err := s.exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notifications.ErrNotificationNotFound
	}
	return notifications.ErrTransitionConflict
}

func (s *Store) Claim(ctx context.Context, id string, expect notifications.Expectation, lease time.Duration) (string, *notifications.Notification, error) {
	if !validID(id) {
		return "", nil, notifications.ErrNotificationNotFound
	}
	token := uuid.NewString()
	n, err := scanNotification(s.db.QueryRow(ctx, `
		UPDATE notifications
		SET claim_token = $4,
		    claim_expires_at = now() + ($5::double precision * interval '1 millisecond')
		WHERE id = $1
		  AND status = $2
		  AND retry_count = $3
		  AND (claim_token IS NULL OR claim_expires_at < now())
		RETURNING `+notificationColumns,
		id, string(expect.Status), expect.RetryCount, token, float64(lease.Milliseconds()),
	))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", nil, s.missOrConflict(ctx, id)
		}
		return "", nil, persistence("claim notification", err)
	}
	return token, n, nil
}

func (s *Store) Complete(ctx context.Context, id, token string, upd notifications.StatusUpdate, entry notifications.LogEntry) (_ *notifications.Notification, err error) {
	if !validID(id) {
		return nil, notifications.ErrNotificationNotFound
	}
	if !validID(token) {
		return nil, notifications.ErrTransitionConflict
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, persistence("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current *string
	row := tx.QueryRow(ctx, `SELECT `+notificationColumns+`, claim_token FROM notifications WHERE id = $1 FOR UPDATE`, id)
	n, err := scanNotification(scanWithExtra{row: row, extra: []any{&current}})
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, persistence("lock notification", err)
	}
	if current == nil || *current != token {
		return nil, notifications.ErrTransitionConflict
	}
	if err = notifications.CheckTransition(*n, upd.Status); err != nil {
		return nil, err
	}

	updated, err := scanNotification(tx.QueryRow(ctx, `
		UPDATE notifications
		SET status = $2,
		    error_message = $3,
		    retry_count = CASE WHEN $4 THEN LEAST(retry_count + 1, max_retries) ELSE retry_count END,
		    sent_at = CASE WHEN $2 = 'sent' THEN $5 ELSE sent_at END,
		    delivered_at = CASE WHEN $2 = 'delivered' THEN $5 ELSE delivered_at END,
		    updated_at = $5,
		    claim_token = NULL,
		    claim_expires_at = NULL
		WHERE id = $1
		RETURNING `+notificationColumns,
		id, string(upd.Status), upd.ErrorMessage, upd.IncrementRetry, upd.At,
	))
	if err != nil {
		return nil, persistence("update notification", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, err = tx.Exec(ctx, `
		INSERT INTO notification_logs (id, notification_id, event, status, message, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, id, entry.Event, string(entry.Status), entry.Message, entry.Metadata, entry.Timestamp,
	); err != nil {
		return nil, persistence("insert log entry", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, persistence("commit transaction", err)
	}
	return updated, nil
}

func (s *Store) Release(ctx context.Context, id, token string) error {
	if !validID(id) {
		return notifications.ErrNotificationNotFound
	}
	if !validID(token) {
		return notifications.ErrTransitionConflict
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET claim_token = NULL, claim_expires_at = NULL
		WHERE id = $1 AND claim_token = $2`,
		id, token,
	)
	if err != nil {
		return persistence("release claim", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

func (s *Store) Logs(ctx context.Context, notificationID string) ([]notifications.LogEntry, error) {
	if !validID(notificationID) {
		return nil, notifications.ErrNotificationNotFound
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, notification_id, event, status, message, metadata, timestamp
		FROM notification_logs
		WHERE notification_id = $1
		ORDER BY timestamp, id`,
		notificationID,
	)
	if err != nil {
		return nil, persistence("list log entries", err)
	}
	defer rows.Close()

	out := []notifications.LogEntry{}
	for rows.Next() {
		var (
			e      notifications.LogEntry
			status string
		)
		if err := rows.Scan(&e.ID, &e.NotificationID, &e.Event, &status, &e.Message, &e.Metadata, &e.Timestamp); err != nil {
			return nil, persistence("scan log entry", err)
		}
		e.Status = notifications.Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("scan log entries", err)
	}

	if len(out) == 0 {
		ok, err := s.exists(ctx, notificationID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notifications.ErrNotificationNotFound
		}
	}
	return out, nil
}

// scanWithExtra appends destinations to a Scan call, letting the shared
// notification scanner read queries that select additional columns.
type scanWithExtra struct {
	row   pgx.Row
	extra []any
}

func (s scanWithExtra) Scan(dest ...any) error {
	return s.row.Scan(append(dest, s.extra...)...)
}
