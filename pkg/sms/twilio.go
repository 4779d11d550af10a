package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the subset of the Twilio API used by TwilioSender.
type MessageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// TwilioOption configures TwilioSender.
type TwilioOption func(*TwilioSender)

// WithMessageCreator replaces the Twilio API client. Useful for testing.
func WithMessageCreator(c MessageCreator) TwilioOption {
	return func(s *TwilioSender) { s.api = c }
}

// TwilioSender sends SMS through the Twilio Programmable Messaging API.
type TwilioSender struct {
	api  MessageCreator
	from string
}

// NewTwilioSender creates a Twilio-backed sender.
func NewTwilioSender(cfg Config, opts ...TwilioOption) (*TwilioSender, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return nil, fmt.Errorf("%w: TwilioAccountSID and TwilioAuthToken are required", ErrInvalidConfig)
	}
	from, err := Normalize(cfg.FromNumber, cfg.DefaultRegion)
	if err != nil {
		return nil, fmt.Errorf("%w: FromNumber: %v", ErrInvalidConfig, err)
	}

	s := &TwilioSender{from: from}
	for _, opt := range opts {
		opt(s)
	}
	if s.api == nil {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
		s.api = client.Api
	}
	return s, nil
}

// Send implements Sender. The Twilio client has no context support, so ctx
// is only checked before the request.
func (s *TwilioSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}

	params := &api.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(msg.To)
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", errors.Join(ErrFailedToSend, err)
	}
	if resp == nil || resp.Sid == nil {
		return "", fmt.Errorf("%w: response carries no message sid", ErrFailedToSend)
	}
	return *resp.Sid, nil
}
