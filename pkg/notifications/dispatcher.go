package notifications

import (
	"context"
	"slices"
	"sync"
)

// Delivery is the rendered message handed to a channel.
type Delivery struct {
	NotificationID string
	UserID         string
	Destination    string
	Subject        string
	Body           string
	Metadata       map[string]any
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Success           bool
	ProviderMessageID string
	ErrorDetail       string
}

// Failed builds an unsuccessful Outcome.
func Failed(detail string) Outcome {
	return Outcome{Success: false, ErrorDetail: detail}
}

// Delivered builds a successful Outcome.
func Delivered(providerMessageID string) Outcome {
	return Outcome{Success: true, ProviderMessageID: providerMessageID}
}

// Dispatcher delivers a message on one channel.
// Implementations never return errors: provider failures are reported as a
// failed Outcome.
type Dispatcher interface {
	Deliver(ctx context.Context, d Delivery) Outcome
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, d Delivery) Outcome

func (f DispatcherFunc) Deliver(ctx context.Context, d Delivery) Outcome { return f(ctx, d) }

// BulkOutcome holds one Outcome per item, in input order.
type BulkOutcome struct {
	Outcomes []Outcome
	// Success is true when every item succeeded.
	Success bool
}

// BulkDispatcher is implemented by dispatchers with a native batch API.
type BulkDispatcher interface {
	Dispatcher
	DeliverBulk(ctx context.Context, items []Delivery) BulkOutcome
}

// DeliverBulk delivers items through d, natively when d is a BulkDispatcher
// and sequentially otherwise.
func DeliverBulk(ctx context.Context, d Dispatcher, items []Delivery) BulkOutcome {
	if bd, ok := d.(BulkDispatcher); ok {
		return bd.DeliverBulk(ctx, items)
	}
	res := BulkOutcome{Outcomes: make([]Outcome, len(items)), Success: true}
	for i, item := range items {
		res.Outcomes[i] = d.Deliver(ctx, item)
		res.Success = res.Success && res.Outcomes[i].Success
	}
	return res
}

// Registry maps channels to dispatchers. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	dispatchers map[Channel]Dispatcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dispatchers: make(map[Channel]Dispatcher)}
}

// Register binds d to the channel, replacing any previous binding.
func (r *Registry) Register(c Channel, d Dispatcher) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatchers[c] = d
	return r
}

// Lookup returns the dispatcher bound to the channel.
func (r *Registry) Lookup(c Channel) (Dispatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dispatchers[c]
	return d, ok
}

// Channels lists registered channels in a stable order.
func (r *Registry) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, 0, len(r.dispatchers))
	for c := range r.dispatchers {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
