package notifications

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

var (
	// ErrNotFound is matched by every lookup miss in this package.
	ErrNotFound = errors.New("not found")

	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrTemplateNotFound     = fmt.Errorf("template %w", ErrNotFound)
	ErrPreferencesNotFound  = fmt.Errorf("preferences %w", ErrNotFound)

	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence wraps failures of the underlying storage engine.
	ErrPersistence = errors.New("persistence failure")

	// ErrTransitionConflict is returned when a row changed, or is claimed by
	// another caller, between read and conditional update.
	ErrTransitionConflict = errors.New("notification status changed concurrently")

	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrTemplateAlreadyExists = errors.New("template already exists")

	ErrNoDispatcher = errors.New("no dispatcher registered for channel")

	// ErrSendDeferred marks a Create failure that happened after the row was
	// stored. The row is left to the scheduled sweep, so the request must not
	// be repeated.
	ErrSendDeferred = errors.New("notification stored, send deferred")
)

// ValidationError reports a rejected request. No row is written for it.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string { return e.Errors.Error() }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Errors }

// Fields returns validation messages grouped by field.
func (e *ValidationError) Fields() map[string][]string { return e.Errors.Map() }

// newValidationError converts the result of validator.Apply. Nil stays nil.
func newValidationError(err error) error {
	if err == nil {
		return nil
	}
	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
		return &ValidationError{Errors: verrs}
	}
	return err
}
