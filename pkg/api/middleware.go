package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifykit/pkg/jwt"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// observe logs every request and feeds the HTTP metrics, labelled with the
// matched route pattern rather than the raw path.
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if a.metrics != nil {
			a.metrics.ObserveHTTP(route, r.Method, status, elapsed)
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.LogAttrs(r.Context(), level, "http request",
			logger.Component("api"),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			logger.Duration(elapsed),
		)
	})
}

func (a *API) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.render(w, r, a.fail(r, fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (a *API) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// requireSelf lets callers read and change only their own data unless they
// are admins. It is a no-op without authentication.
func (a *API) requireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, ok := jwt.ClaimsFromContext(r.Context())
		if !ok {
			a.render(w, r, Error(ErrUnauthorized))
			return
		}
		if claims.Role != RoleAdmin && claims.UserID != chi.URLParam(r, "userID") {
			a.render(w, r, Error(ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole restricts a route to callers with role. It is a no-op without
// authentication.
func (a *API) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.auth == nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, ok := jwt.ClaimsFromContext(r.Context())
			if !ok {
				a.render(w, r, Error(ErrUnauthorized))
				return
			}
			if claims.Role != role {
				a.render(w, r, Error(ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
