// Package notifications is a notification delivery engine: it renders
// templated content, records delivery intent durably, routes delivery to one
// of several channels according to user preferences and tracks each
// notification through a bounded-retry lifecycle.
//
// The package has no knowledge of HTTP, message brokers or provider SDKs.
// Those plug in through the Store, Dispatcher, Publisher and MetricsRecorder
// interfaces.
//
// # Architecture
//
//   - Store: notification rows, their append-only log, templates and preferences
//   - Registry: one Dispatcher per Channel
//   - Manager: creates rows, sends them and runs the scheduled and retry sweeps
//
// # Lifecycle
//
//	pending -> sent | failed | skipped
//	sent    -> delivered
//	failed  -> sent | failed       (while retryCount < maxRetries)
//
// Every failed attempt increments retryCount, the first one included. A failed
// row whose retryCount reached maxRetries is terminal, as are delivered and
// skipped rows. Each transition appends exactly one LogEntry in the same
// atomic step.
//
// # Concurrency
//
// There is no process-wide lock. Before sending, the Manager claims the row
// with a conditional update on its last committed status and retry count.
// Only one caller wins; the others get ErrTransitionConflict and never reach
// the dispatcher. Claims are leases, so a crashed sender does not strand a row.
//
// # Basic Usage
//
//	store := notifications.NewMemoryStorage()
//	registry := notifications.NewRegistry().
//	    Register(notifications.ChannelEmail, emailDispatcher).
//	    Register(notifications.ChannelInApp, inAppDispatcher)
//
//	manager := notifications.NewManager(store, registry,
//	    notifications.WithPublisher(publisher),
//	)
//
//	n, err := manager.Create(ctx, notifications.CreateRequest{
//	    UserID:       "user123",
//	    Channel:      notifications.ChannelEmail,
//	    TemplateName: "welcome_email",
//	    Variables:    map[string]any{"firstName": "Ada"},
//	})
//
// The sweeps are plain methods so they can be driven by any scheduler or
// called directly in tests:
//
//	res, err := manager.RetryFailedNotifications(ctx)
//
// # Error Handling
//
// Validation failures return *ValidationError (errors.Is ErrValidation) and
// write nothing. Lookup misses match ErrNotFound. Store failures wrap
// ErrPersistence. Provider failures are never returned: they are recorded on
// the row as a failed status.
package notifications
