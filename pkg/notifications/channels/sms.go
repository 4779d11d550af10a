package channels

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/sms"
)

// SMS delivers notifications through an sms.Sender.
// Destinations are normalised to E.164 first; an invalid number fails the
// attempt without touching the provider or the breaker.
type SMS struct {
	base
	sender sms.Sender
	region string
}

// NewSMS creates the SMS dispatcher. region is used for numbers stored
// without a country code.
func NewSMS(sender sms.Sender, region string, opts ...Option) *SMS {
	return &SMS{base: newBase(notifications.ChannelSMS, opts), sender: sender, region: region}
}

// Deliver implements notifications.Dispatcher.
func (s *SMS) Deliver(ctx context.Context, d notifications.Delivery) notifications.Outcome {
	to, err := sms.Normalize(d.Destination, s.region)
	if err != nil {
		return notifications.Failed(err.Error())
	}
	return s.call(ctx, d, func() (string, error) {
		return s.sender.Send(ctx, sms.Message{To: to, Body: d.Body})
	})
}
