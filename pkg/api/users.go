package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// DefaultInboxLimit is used when the inbox request has no limit.
const DefaultInboxLimit = 20

func (a *API) listUserNotifications(r *http.Request) Response {
	limit, err := queryInt(r, "limit", notifications.DefaultListLimit)
	if err != nil {
		return a.fail(r, err)
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return a.fail(r, err)
	}

	list, err := a.svc.ListByUser(r.Context(), chi.URLParam(r, "userID"), limit, offset)
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, list, WithMeta(map[string]any{
		"limit":  min(max(limit, 1), notifications.MaxListLimit),
		"offset": offset,
		"count":  len(list),
	}))
}

func (a *API) userInbox(r *http.Request) Response {
	if a.inbox == nil {
		return a.fail(r, ErrInboxDisabled)
	}
	limit, err := queryInt(r, "limit", DefaultInboxLimit)
	if err != nil {
		return a.fail(r, err)
	}
	items, err := a.inbox.Inbox(r.Context(), chi.URLParam(r, "userID"), int64(limit))
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, items, WithMeta(map[string]any{"count": len(items)}))
}

func (a *API) getPreferences(r *http.Request) Response {
	p, err := a.svc.GetUserPreferences(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, p)
}

// updatePreferences takes the user from the path; a userId in the body must match it.
func (a *API) updatePreferences(r *http.Request) Response {
	userID := chi.URLParam(r, "userID")

	var u notifications.PreferencesUpdate
	if err := decodeJSON(r, &u); err != nil {
		return a.fail(r, err)
	}
	if u.UserID != "" && u.UserID != userID {
		return a.fail(r, invalidField("userId", "must match the user in the path"))
	}
	u.UserID = userID

	p, err := a.svc.UpdateUserPreferences(r.Context(), u)
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, p, WithMessage("preferences updated"))
}
