package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
)

// Push delivers notifications through a push.Sender. It implements
// notifications.BulkDispatcher, using the sender's batch API when available.
type Push struct {
	base
	sender push.Sender
}

// NewPush creates the push dispatcher.
func NewPush(sender push.Sender, opts ...Option) *Push {
	return &Push{base: newBase(notifications.ChannelPush, opts), sender: sender}
}

// Deliver implements notifications.Dispatcher.
func (p *Push) Deliver(ctx context.Context, d notifications.Delivery) notifications.Outcome {
	msg := pushMessage(d)
	return p.call(ctx, d, func() (string, error) { return p.sender.Send(ctx, msg) })
}

// DeliverBulk implements notifications.BulkDispatcher. The native batch
// counts as one breaker request, failed only when every message failed.
func (p *Push) DeliverBulk(ctx context.Context, items []notifications.Delivery) notifications.BulkOutcome {
	bs, ok := p.sender.(push.BatchSender)
	if !ok {
		return notifications.DeliverBulk(ctx, notifications.DispatcherFunc(p.Deliver), items)
	}

	msgs := make([]push.Message, len(items))
	for i, d := range items {
		msgs[i] = pushMessage(d)
	}

	var results []push.Result
	err := p.guard(func() error {
		results = bs.SendBatch(ctx, msgs)
		if len(results) != len(msgs) {
			return fmt.Errorf("%w: got %d results for %d messages", errBatchMismatch, len(results), len(msgs))
		}
		for _, r := range results {
			if r.Err == nil {
				return nil
			}
		}
		return errBatchFailed
	})

	out := notifications.BulkOutcome{Outcomes: make([]notifications.Outcome, len(items)), Success: true}
	if err != nil && !errors.Is(err, errBatchFailed) {
		for i, d := range items {
			p.logFailure(ctx, d.NotificationID, err)
			out.Outcomes[i] = notifications.Failed(err.Error())
		}
		out.Success = len(items) == 0
		return out
	}

	for i, r := range results {
		if r.Err != nil {
			p.logFailure(ctx, items[i].NotificationID, r.Err)
			out.Outcomes[i] = notifications.Failed(r.Err.Error())
			out.Success = false
			continue
		}
		out.Outcomes[i] = notifications.Delivered(r.MessageID)
	}
	return out
}

var (
	errBatchFailed   = errors.New("every message in the batch failed")
	errBatchMismatch = errors.New("push batch result count mismatch")
)

func pushMessage(d notifications.Delivery) push.Message {
	data := make(map[string]string, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		if v != nil {
			data[k] = fmt.Sprint(v)
		}
	}
	data["notificationId"] = d.NotificationID
	return push.Message{
		Token: d.Destination,
		Title: d.Subject,
		Body:  d.Body,
		Data:  data,
	}
}
