package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func (a *API) createTemplate(r *http.Request) Response {
	var in notifications.TemplateInput
	if err := decodeJSON(r, &in); err != nil {
		return a.fail(r, err)
	}
	t, err := a.svc.CreateTemplate(r.Context(), in)
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusCreated, t, WithMessage("template created"))
}

func (a *API) getTemplate(r *http.Request) Response {
	t, err := a.svc.GetTemplate(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, t)
}

func (a *API) listTemplates(r *http.Request) Response {
	list, err := a.svc.ListTemplates(r.Context())
	if err != nil {
		return a.fail(r, err)
	}
	return JSON(http.StatusOK, list, WithMeta(map[string]any{"count": len(list)}))
}
