package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/jwt"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Envelope is the body of every API response.
type Envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// Response renders itself to the client.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

type jsonResponse struct {
	status int
	body   Envelope
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption adjusts a JSON response.
type JSONOption func(*jsonResponse)

// WithMessage sets the human readable message.
func WithMessage(msg string) JSONOption {
	return func(j *jsonResponse) { j.body.Message = msg }
}

// WithMeta attaches pagination or aggregate data.
func WithMeta(meta map[string]any) JSONOption {
	return func(j *jsonResponse) { j.body.Meta = meta }
}

// JSON wraps data in an Envelope with the given status.
func JSON(status int, data any, opts ...JSONOption) Response {
	j := jsonResponse{status: status, body: Envelope{Code: status, Data: data}}
	for _, opt := range opts {
		opt(&j)
	}
	return j
}

// Error maps err to a status and an ErrorDetail.
func Error(err error) Response { return errorResponse(err) }

func errorResponse(err error) jsonResponse {
	status, detail := describeError(err)
	return jsonResponse{
		status: status,
		body:   Envelope{Code: status, Message: http.StatusText(status), Error: detail},
	}
}

func describeError(err error) (int, *ErrorDetail) {
	var verr *notifications.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    "validation_error",
			Message: "request validation failed",
			Details: verr.Fields(),
		}
	case errors.Is(err, notifications.ErrNotFound):
		return http.StatusNotFound, detail("not_found", err)
	case errors.Is(err, notifications.ErrTemplateAlreadyExists):
		return http.StatusConflict, detail("template_exists", err)
	case errors.Is(err, notifications.ErrInvalidTransition):
		return http.StatusConflict, detail("invalid_transition", err)
	case errors.Is(err, notifications.ErrTransitionConflict):
		return http.StatusConflict, detail("conflict", err)
	case errors.Is(err, notifications.ErrPersistence):
		return http.StatusServiceUnavailable, &ErrorDetail{Code: "storage_unavailable", Message: "storage is temporarily unavailable"}
	case errors.Is(err, ErrInvalidJSON), errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest, detail("bad_request", err)
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, detail("unsupported_media_type", err)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, jwt.ErrMissingToken),
		errors.Is(err, jwt.ErrInvalidToken), errors.Is(err, jwt.ErrExpiredToken):
		return http.StatusUnauthorized, detail("unauthorized", err)
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, detail("forbidden", err)
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, detail("rate_limited", err)
	case errors.Is(err, ErrRouteNotFound), errors.Is(err, ErrInboxDisabled):
		return http.StatusNotFound, detail("not_found", err)
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, detail("method_not_allowed", err)
	default:
		return http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: "internal server error"}
	}
}

func detail(code string, err error) *ErrorDetail {
	return &ErrorDetail{Code: code, Message: err.Error()}
}
