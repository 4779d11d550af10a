package api

import (
	"errors"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

var (
	ErrInvalidJSON          = errors.New("invalid JSON body")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidQuery         = errors.New("invalid query parameter")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrRouteNotFound        = errors.New("route not found")
	ErrMethodNotAllowed     = errors.New("method not allowed")
	ErrInboxDisabled        = errors.New("in-app inbox is not enabled")
	ErrNilResponse          = errors.New("handler returned nil response")
)

func invalidField(field, msg string) error {
	return &notifications.ValidationError{Errors: validator.ValidationErrors{{
		Field:   field,
		Message: msg,
		Code:    "validation.invalid",
	}}}
}
