package sms

import "errors"

var (
	ErrFailedToSend    = errors.New("sms: failed to send message")
	ErrInvalidConfig   = errors.New("sms: invalid config")
	ErrInvalidNumber   = errors.New("sms: invalid phone number")
	ErrEmptyBody       = errors.New("sms: empty message body")
	ErrUnknownProvider = errors.New("sms: unknown provider")
)
