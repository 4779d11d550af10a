package events

import "errors"

var (
	ErrUnknownDriver    = errors.New("events: unknown driver")
	ErrInvalidConfig    = errors.New("events: invalid config")
	ErrPublishFailed    = errors.New("events: publish failed")
	ErrInvalidEnvelope  = errors.New("events: invalid envelope")
	ErrNoHandlers       = errors.New("events: no handlers registered")
	ErrConsumerStopped  = errors.New("events: delivery channel closed")
	ErrHandlerDuplicate = errors.New("events: queue already has a handler")
)

// permanentError marks a handler failure that redelivery cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the consumer drops the message instead of
// requeueing it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
