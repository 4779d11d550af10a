package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Sweep names, used in logs and metrics.
const (
	SweepScheduled = "scheduled"
	SweepRetry     = "retry"
)

// SweepResult counts what a sweep did with the rows it selected.
type SweepResult struct {
	Selected  int `json:"selected"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`
}

// ProcessScheduledNotifications sends every pending row whose ScheduledAt has
// passed. Pending rows without a schedule that are older than the claim lease
// are picked up too, so an interrupted immediate send is eventually completed.
func (m *Manager) ProcessScheduledNotifications(ctx context.Context) (SweepResult, error) {
	return m.sweep(ctx, SweepScheduled, m.store.DueScheduled)
}

// RetryFailedNotifications re-sends every failed row that has retries left.
func (m *Manager) RetryFailedNotifications(ctx context.Context) (SweepResult, error) {
	return m.sweep(ctx, SweepRetry, m.store.Retryable)
}

type sweepSource func(ctx context.Context, q SweepQuery) ([]Notification, error)

// sweep walks the matching rows in batches ordered by (createdAt, id). Each row
// is sent independently; failures are counted and never stop the sweep.
func (m *Manager) sweep(ctx context.Context, name string, source sweepSource) (SweepResult, error) {
	var res SweepResult
	now := m.now().UTC()
	q := SweepQuery{
		Now:         now,
		StaleBefore: now.Add(-m.lease),
		Limit:       m.batchSize,
	}

	defer func() {
		m.metrics.SweepRows(name, "sent", res.Sent)
		m.metrics.SweepRows(name, "failed", res.Failed)
		m.metrics.SweepRows(name, "skipped", res.Skipped)
		m.metrics.SweepRows(name, "conflict", res.Conflicts)
		m.metrics.SweepRows(name, "error", res.Errors)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rows, err := source(ctx, q)
		if err != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "sweep query failed",
				logger.Sweep(name),
				logger.Error(err),
			)
			return res, err
		}

		for _, n := range rows {
			res.Selected++
			updated, err := m.send(ctx, n, nil)
			switch {
			case err == nil:
				res.count(updated.Status)
			case errors.Is(err, ErrTransitionConflict):
				res.Conflicts++
			default:
				res.Errors++
				m.logger.LogAttrs(ctx, slog.LevelWarn, "sweep failed to send notification",
					logger.Sweep(name),
					logger.NotificationID(n.ID),
					logger.Error(err),
				)
			}
		}

		if len(rows) < q.Limit {
			break
		}
		last := rows[len(rows)-1]
		q.After = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	if res.Selected > 0 {
		m.logger.LogAttrs(ctx, slog.LevelInfo, "sweep finished",
			logger.Sweep(name),
			slog.Int("selected", res.Selected),
			slog.Int("sent", res.Sent),
			slog.Int("failed", res.Failed),
			slog.Int("skipped", res.Skipped),
			slog.Int("conflicts", res.Conflicts),
			slog.Int("errors", res.Errors),
		)
	}
	return res, nil
}

func (r *SweepResult) count(s Status) {
	switch s {
	case StatusSent:
		r.Sent++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}
