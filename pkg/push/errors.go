package push

import "errors"

var (
	ErrFailedToSend      = errors.New("push: failed to send message")
	ErrInvalidConfig     = errors.New("push: invalid config")
	ErrInvalidCredential = errors.New("push: invalid service account credentials")
	ErrMissingToken      = errors.New("push: missing device token")
	ErrUnregistered      = errors.New("push: device token is no longer registered")
	ErrUnknownProvider   = errors.New("push: unknown provider")
)
