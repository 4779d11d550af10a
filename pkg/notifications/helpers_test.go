package notifications_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// MockPublisher is a mock implementation of notifications.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, routingKey string, payload any) error {
	args := m.Called(ctx, topic, routingKey, payload)
	return args.Error(0)
}

// stubDispatcher records deliveries and answers with a fixed outcome.
type stubDispatcher struct {
	mu      sync.Mutex
	calls   []notifications.Delivery
	outcome notifications.Outcome
}

func (d *stubDispatcher) Deliver(_ context.Context, del notifications.Delivery) notifications.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, del)
	return d.outcome
}

func (d *stubDispatcher) Calls() []notifications.Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notifications.Delivery(nil), d.calls...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *notifications.MemoryStorage
	registry *notifications.Registry
	email    *stubDispatcher
	clock    *fakeClock
	manager  *notifications.Manager
}

func newFixture(opts ...notifications.ManagerOption) *fixture {
	f := &fixture{
		email: &stubDispatcher{outcome: notifications.Delivered("msg-1")},
		clock: newFakeClock(),
	}
	f.store = notifications.NewMemoryStorage(notifications.WithMemoryClock(f.clock.Now))
	f.registry = notifications.NewRegistry().Register(notifications.ChannelEmail, f.email)
	base := []notifications.ManagerOption{
		notifications.WithClock(f.clock.Now),
		notifications.WithManagerLogger(logger.Discard()),
	}
	f.manager = notifications.NewManager(f.store, f.registry, append(base, opts...)...)
	return f
}

func (f *fixture) savePrefs(p notifications.Preferences) {
	if err := f.store.SavePreferences(context.Background(), p); err != nil {
		panic(err)
	}
}

func emailPrefs(userID string) notifications.Preferences {
	p := notifications.DefaultPreferences(userID)
	p.EmailAddress = "a@b.com"
	return p
}

func ptr[T any](v T) *T { return &v }
