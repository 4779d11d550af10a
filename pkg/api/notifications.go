package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// MaxBulkSize caps the number of items in one bulk request.
const MaxBulkSize = 1000

type bulkRequest struct {
	Notifications []notifications.CreateRequest `json:"notifications"`
}

type bulkItemResult struct {
	Index          int          `json:"index"`
	Success        bool         `json:"success"`
	NotificationID string       `json:"notificationId,omitempty"`
	Status         string       `json:"status,omitempty"`
	Error          *ErrorDetail `json:"error,omitempty"`
}

func (a *API) createNotification(r *http.Request) Response {
	var req notifications.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		return a.fail(r, err)
	}
	n, err := a.svc.Create(r.Context(), req)
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusCreated, n, WithMessage("notification created"))
}

func (a *API) createBulk(r *http.Request) Response {
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		return a.fail(r, err)
	}
	if len(req.Notifications) == 0 {
		return a.fail(r, invalidField("notifications", "must not be empty"))
	}
	if len(req.Notifications) > MaxBulkSize {
		return a.fail(r, invalidField("notifications", "must contain at most 1000 items"))
	}

	res := a.svc.CreateBulk(r.Context(), req.Notifications)
	items := make([]bulkItemResult, len(res.Items))
	for i, it := range res.Items {
		items[i] = bulkItemResult{Index: i, Success: it.Err == nil}
		if it.Err != nil {
			_, items[i].Error = describeError(it.Err)
			continue
		}
		items[i].NotificationID = it.Notification.ID
		items[i].Status = it.Notification.Status.String()
	}

	return JSON(http.StatusOK, items,
		WithMessage("bulk notifications processed"),
		WithMeta(map[string]any{
			"total":        len(items),
			"successCount": res.Succeeded,
			"failedCount":  res.Failed,
		}),
	)
}

func (a *API) getNotification(r *http.Request) Response {
	n, err := a.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, n)
}

func (a *API) notificationLogs(r *http.Request) Response {
	id := chi.URLParam(r, "id")
	if _, err := a.svc.GetByID(r.Context(), id); err != nil {
		return a.fail(r, err)
	}
	logs, err := a.svc.Logs(r.Context(), id)
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, logs, WithMeta(map[string]any{"count": len(logs)}))
}

func (a *API) markDelivered(r *http.Request) Response {
	n, err := a.svc.MarkDelivered(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, n, WithMessage("notification marked delivered"))
}

func (a *API) runScheduledSweep(r *http.Request) Response {
	res, err := a.svc.ProcessScheduledNotifications(r.Context())
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, res, WithMessage("scheduled sweep finished"))
}

func (a *API) runRetrySweep(r *http.Request) Response {
	res, err := a.svc.RetryFailedNotifications(r.Context())
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, res, WithMessage("retry sweep finished"))
}
