package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/jwt"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/channels"
	"github.com/dmitrymomot/notifykit/pkg/ratelimiter"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

// RoleAdmin may call every route, including sweeps and template creation.
const RoleAdmin = "admin"

// Service is the part of notifications.Manager the API exposes.
type Service interface {
	Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error)
	CreateBulk(ctx context.Context, reqs []notifications.CreateRequest) notifications.BulkResult
	GetByID(ctx context.Context, id string) (*notifications.Notification, error)
	Logs(ctx context.Context, id string) ([]notifications.LogEntry, error)
	MarkDelivered(ctx context.Context, id string) (*notifications.Notification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]notifications.Notification, error)
	GetUserPreferences(ctx context.Context, userID string) (*notifications.Preferences, error)
	UpdateUserPreferences(ctx context.Context, u notifications.PreferencesUpdate) (*notifications.Preferences, error)
	CreateTemplate(ctx context.Context, in notifications.TemplateInput) (*notifications.Template, error)
	GetTemplate(ctx context.Context, name string) (*notifications.Template, error)
	ListTemplates(ctx context.Context) ([]notifications.Template, error)
	ProcessScheduledNotifications(ctx context.Context) (notifications.SweepResult, error)
	RetryFailedNotifications(ctx context.Context) (notifications.SweepResult, error)
}

// InboxReader lists in-app notifications kept by the in-app channel.
type InboxReader interface {
	Inbox(ctx context.Context, userID string, limit int64) ([]channels.InboxItem, error)
}

// Metrics records HTTP traffic and serves the Prometheus endpoint.
type Metrics interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
	Handler() http.Handler
}

// API is the HTTP surface of the notification service.
type API struct {
	svc          Service
	inbox        InboxReader
	metrics      Metrics
	auth         *jwt.Service
	limiter      *ratelimiter.Limiter
	checks       []httpserver.Check
	logger       *slog.Logger
	maxBodyBytes int64
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithInbox enables GET /v1/users/{userID}/inbox.
func WithInbox(in InboxReader) Option {
	return func(a *API) { a.inbox = in }
}

// WithMetrics enables request metrics and GET /metrics.
func WithMetrics(m Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithAuth requires a bearer token on every /v1 route.
func WithAuth(s *jwt.Service) Option {
	return func(a *API) { a.auth = s }
}

// WithRateLimiter limits /v1 requests per client IP.
func WithRateLimiter(l *ratelimiter.Limiter) Option {
	return func(a *API) { a.limiter = l }
}

// WithReadinessChecks sets the dependencies probed by /health/ready.
func WithReadinessChecks(checks ...httpserver.Check) Option {
	return func(a *API) { a.checks = append(a.checks, checks...) }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// New returns an API serving svc.
func New(svc Service, opts ...Option) *API {
	a := &API{
		svc:          svc,
		logger:       slog.Default(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		requestid.Middleware,
		a.observe,
		a.recoverPanics,
	)
	r.NotFound(a.wrap(func(*http.Request) Response { return Error(ErrRouteNotFound) }))
	r.MethodNotAllowed(a.wrap(func(*http.Request) Response { return Error(ErrMethodNotAllowed) }))

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(a.logger, a.checks...))
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(a.limitBody)
		if a.limiter != nil {
			r.Use(ratelimiter.Middleware(a.limiter, ratelimiter.ByRemoteIP, a.wrap(func(*http.Request) Response {
				return Error(ErrRateLimited)
			})))
		}
		if a.auth != nil {
			r.Use(jwt.Middleware(a.auth, func(w http.ResponseWriter, r *http.Request, err error) {
				a.render(w, r, Error(err))
			}))
		}

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", a.wrap(a.createNotification))
			r.Post("/bulk", a.wrap(a.createBulk))
			r.Get("/{id}", a.wrap(a.getNotification))
			r.Get("/{id}/logs", a.wrap(a.notificationLogs))
			r.Post("/{id}/delivered", a.wrap(a.markDelivered))
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(a.requireSelf)
			r.Get("/notifications", a.wrap(a.listUserNotifications))
			r.Get("/inbox", a.wrap(a.userInbox))
			r.Get("/preferences", a.wrap(a.getPreferences))
			r.Put("/preferences", a.wrap(a.updatePreferences))
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", a.wrap(a.listTemplates))
			r.Get("/{name}", a.wrap(a.getTemplate))
			r.With(a.requireRole(RoleAdmin)).Post("/", a.wrap(a.createTemplate))
		})

		r.Route("/sweeps", func(r chi.Router) {
			r.Use(a.requireRole(RoleAdmin))
			r.Post("/scheduled", a.wrap(a.runScheduledSweep))
			r.Post("/retry", a.wrap(a.runRetrySweep))
		})
	})

	return r
}

// HandlerFunc produces the response for a request.
type HandlerFunc func(r *http.Request) Response

func (a *API) wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h(r)
		if resp == nil {
			resp = Error(ErrNilResponse)
		}
		a.render(w, r, resp)
	}
}

func (a *API) render(w http.ResponseWriter, r *http.Request, resp Response) {
	if err := resp.Render(w, r); err != nil {
		a.logger.LogAttrs(r.Context(), slog.LevelWarn, "failed to write response",
			logger.Component("api"),
			logger.Error(err),
		)
	}
}

// fail maps err to an error response. Server-side failures are logged with
// the cause, which is never sent to the client.
func (a *API) fail(r *http.Request, err error) Response {
	resp := errorResponse(err)
	if resp.status >= http.StatusInternalServerError {
		a.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			logger.Component("api"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	return resp
}
