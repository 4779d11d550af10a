package notifications

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRow struct {
	n            Notification
	claimToken   string
	claimExpires time.Time
}

// MemoryStorage is an in-memory Store.
// Suitable for development and testing.
type MemoryStorage struct {
	mu          sync.RWMutex
	rows        map[string]*memoryRow
	logs        map[string][]LogEntry
	templates   map[string]Template
	preferences map[string]Preferences
	now         func() time.Time
}

// MemoryOption configures a MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithMemoryClock overrides the clock used for claim leases.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStorage creates a new in-memory store.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{
		rows:        make(map[string]*memoryRow),
		logs:        make(map[string][]LogEntry),
		templates:   make(map[string]Template),
		preferences: make(map[string]Preferences),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStorage) CreateNotification(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		return fmt.Errorf("%w: notification id is required", ErrPersistence)
	}
	if _, exists := s.rows[n.ID]; exists {
		return fmt.Errorf("%w: duplicate notification id %s", ErrPersistence, n.ID)
	}
	s.rows[n.ID] = &memoryRow{n: n.clone()}
	return nil
}

func (s *MemoryStorage) Notification(_ context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	n := row.n.clone()
	return &n, nil
}

func (s *MemoryStorage) NotificationsByUser(_ context.Context, userID string, limit, offset int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, row := range s.rows {
		if row.n.UserID == userID {
			out = append(out, row.n.clone())
		}
	}
	slices.SortFunc(out, func(a, b Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if offset >= len(out) {
		return []Notification{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) DueScheduled(_ context.Context, q SweepQuery) ([]Notification, error) {
	return s.sweep(q, func(n Notification) bool {
		if n.Status != StatusPending {
			return false
		}
		if n.ScheduledAt != nil {
			return !n.ScheduledAt.After(q.Now)
		}
		return !q.StaleBefore.IsZero() && n.CreatedAt.Before(q.StaleBefore)
	}), nil
}

func (s *MemoryStorage) Retryable(_ context.Context, q SweepQuery) ([]Notification, error) {
	return s.sweep(q, Notification.CanRetry), nil
}

func (s *MemoryStorage) sweep(q SweepQuery, match func(Notification) bool) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []Notification
	for _, row := range s.rows {
		if row.claimToken != "" && row.claimExpires.After(now) {
			continue
		}
		if match(row.n) && q.After.After(row.n) {
			out = append(out, row.n.clone())
		}
	}
	slices.SortFunc(out, func(a, b Notification) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (s *MemoryStorage) Claim(_ context.Context, id string, expect Expectation, lease time.Duration) (string, *Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return "", nil, ErrNotificationNotFound
	}
	now := s.now()
	if row.n.Status != expect.Status || row.n.RetryCount != expect.RetryCount {
		return "", nil, ErrTransitionConflict
	}
	if row.claimToken != "" && row.claimExpires.After(now) {
		return "", nil, ErrTransitionConflict
	}

	row.claimToken = uuid.NewString()
	row.claimExpires = now.Add(lease)
	n := row.n.clone()
	return row.claimToken, &n, nil
}

func (s *MemoryStorage) Complete(_ context.Context, id, token string, upd StatusUpdate, entry LogEntry) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	if token == "" || row.claimToken != token {
		return nil, ErrTransitionConflict
	}
	if err := CheckTransition(row.n, upd.Status); err != nil {
		return nil, err
	}

	applyUpdate(&row.n, upd)
	row.claimToken = ""
	row.claimExpires = time.Time{}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.NotificationID = id
	entry.Metadata = cloneMap(entry.Metadata)
	s.logs[id] = append(s.logs[id], entry)

	n := row.n.clone()
	return &n, nil
}

func (s *MemoryStorage) Release(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return ErrNotificationNotFound
	}
	if row.claimToken != token {
		return ErrTransitionConflict
	}
	row.claimToken = ""
	row.claimExpires = time.Time{}
	return nil
}

func (s *MemoryStorage) Logs(_ context.Context, notificationID string) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rows[notificationID]; !ok {
		return nil, ErrNotificationNotFound
	}
	entries := s.logs[notificationID]
	out := make([]LogEntry, len(entries))
	for i, e := range entries {
		e.Metadata = cloneMap(e.Metadata)
		out[i] = e
	}
	return out, nil
}

func (s *MemoryStorage) CreateTemplate(_ context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.Name]; exists {
		return ErrTemplateAlreadyExists
	}
	s.templates[t.Name] = t.clone()
	return nil
}

func (s *MemoryStorage) TemplateByName(_ context.Context, name string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[name]
	if !ok || !t.IsActive {
		return nil, ErrTemplateNotFound
	}
	t = t.clone()
	return &t, nil
}

func (s *MemoryStorage) Templates(_ context.Context) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.clone())
	}
	slices.SortFunc(out, func(a, b Template) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *MemoryStorage) Preferences(_ context.Context, userID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[userID]
	if !ok {
		return nil, ErrPreferencesNotFound
	}
	p = p.clone()
	return &p, nil
}

func (s *MemoryStorage) SavePreferences(_ context.Context, p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferences[p.UserID] = p.clone()
	return nil
}
