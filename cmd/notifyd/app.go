package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/api"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/events"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/jwt"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/metrics"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/channels"
	"github.com/dmitrymomot/notifykit/pkg/notifications/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/push"
	"github.com/dmitrymomot/notifykit/pkg/ratelimiter"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
	"github.com/dmitrymomot/notifykit/pkg/sms"
)

//go:embed templates.yaml
var seedTemplates []byte

// app holds the wired service. Everything in closers is released after the
// HTTP server has drained.
type app struct {
	cfg       configs
	log       *slog.Logger
	manager   *notifications.Manager
	handler   *api.API
	scheduler *scheduler.Scheduler
	consumer  *events.RabbitConsumer
	closers   []func() error
}

func newApp(ctx context.Context, cfg configs, log *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.close())
		}
	}()

	var checks []httpserver.Check

	store, check, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if check != nil {
		checks = append(checks, *check)
	}

	var rdb *goredis.Client
	if cfg.app.RedisEnabled {
		rdb, err = redis.Connect(ctx, cfg.redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)})
	}

	registry, inbox, err := a.buildRegistry(ctx, rdb)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()

	transport, err := events.Open(ctx, cfg.events, log)
	if err != nil {
		return nil, fmt.Errorf("open event transport: %w", err)
	}
	a.closers = append(a.closers, transport.Close)

	a.manager = notifications.NewManager(store, registry,
		notifications.WithManagerLogger(log),
		notifications.WithPublisher(transport.Publisher),
		notifications.WithMetrics(rec),
		notifications.WithLease(cfg.app.ClaimLease),
		notifications.WithSweepBatchSize(cfg.app.SweepBatchSize),
	)

	if err := a.seed(ctx); err != nil {
		return nil, err
	}

	if a.scheduler, err = a.buildScheduler(); err != nil {
		return nil, err
	}

	if transport.Consumer != nil {
		if err := events.RegisterNotificationHandlers(transport.Consumer, a.manager, log); err != nil {
			return nil, fmt.Errorf("register event handlers: %w", err)
		}
		a.consumer = transport.Consumer
	}

	apiOpts := []api.Option{
		api.WithLogger(log),
		api.WithMetrics(rec),
		api.WithReadinessChecks(checks...),
	}
	if inbox != nil {
		apiOpts = append(apiOpts, api.WithInbox(inbox))
	}
	if cfg.auth.Secret != "" {
		auth, err := jwt.New(cfg.auth)
		if err != nil {
			return nil, err
		}
		apiOpts = append(apiOpts, api.WithAuth(auth))
	} else {
		log.Warn("JWT_SECRET is empty, API authentication is disabled")
	}
	if cfg.rateLimit.Enabled {
		var limitStore ratelimiter.Store = ratelimiter.NewMemoryStore(time.Now)
		if rdb != nil {
			limitStore = ratelimiter.NewRedisStore(rdb, ratelimiter.DefaultKeyPrefix)
		}
		limiter, err := ratelimiter.New(limitStore, cfg.rateLimit, ratelimiter.WithLogger(log))
		if err != nil {
			return nil, err
		}
		apiOpts = append(apiOpts, api.WithRateLimiter(limiter))
	}
	a.handler = api.New(a.manager, apiOpts...)

	return a, nil
}

// openStore returns the storage backend and, for postgres, its readiness check.
func (a *app) openStore(ctx context.Context) (notifications.Store, *httpserver.Check, error) {
	switch a.cfg.app.StorageDriver {
	case storageMemory:
		a.log.Warn("using in-memory storage, data is lost on restart")
		return notifications.NewMemoryStorage(), nil, nil
	case storagePostgres:
		pool, err := pg.Connect(ctx, a.cfg.pg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		if a.cfg.pg.AutoMigrate {
			if _, err := pg.Migrate(ctx, pool, pgstore.Migrations(), a.cfg.pg, a.log); err != nil {
				return nil, nil, err
			}
		}
		return pgstore.New(pool), &httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", a.cfg.app.StorageDriver)
	}
}

// buildRegistry wires one dispatcher per channel. The in-app channel needs
// redis and is left unregistered without it.
func (a *app) buildRegistry(ctx context.Context, rdb *goredis.Client) (*notifications.Registry, *channels.InApp, error) {
	emailSender, err := email.New(ctx, a.cfg.email)
	if err != nil {
		return nil, nil, fmt.Errorf("email sender: %w", err)
	}
	smsSender, err := sms.New(a.cfg.sms, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("sms sender: %w", err)
	}
	pushSender, err := push.New(ctx, a.cfg.push, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("push sender: %w", err)
	}

	opts := func(c notifications.Channel) []channels.Option {
		return []channels.Option{
			channels.WithLogger(a.log),
			channels.WithBreaker(channels.NewBreaker(c.String())),
		}
	}

	registry := notifications.NewRegistry().
		Register(notifications.ChannelEmail, channels.NewEmail(emailSender, opts(notifications.ChannelEmail)...)).
		Register(notifications.ChannelSMS, channels.NewSMS(smsSender, a.cfg.sms.DefaultRegion, opts(notifications.ChannelSMS)...)).
		Register(notifications.ChannelPush, channels.NewPush(pushSender, opts(notifications.ChannelPush)...))

	if rdb == nil {
		a.log.Warn("redis is disabled, in-app notifications will fail")
		return registry, nil, nil
	}
	inbox := channels.NewInApp(rdb,
		channels.WithInboxSize(a.cfg.app.InboxSize),
		channels.WithInboxTTL(a.cfg.app.InboxTTL),
		channels.WithInAppOptions(opts(notifications.ChannelInApp)...),
	)
	registry.Register(notifications.ChannelInApp, inbox)
	return registry, inbox, nil
}

// seed inserts the bundled templates, or those from TEMPLATES_FILE, skipping
// names that already exist.
func (a *app) seed(ctx context.Context) error {
	var src io.Reader = bytes.NewReader(seedTemplates)
	if path := a.cfg.app.TemplatesFile; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open templates file: %w", err)
		}
		defer f.Close()
		src = f
	}

	inputs, err := notifications.LoadTemplates(src)
	if err != nil {
		return err
	}
	n, err := a.manager.SeedTemplates(ctx, inputs)
	if err != nil {
		return err
	}
	a.log.InfoContext(ctx, "templates seeded", slog.Int("created", n), slog.Int("total", len(inputs)))
	return nil
}

func (a *app) buildScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(scheduler.WithLogger(a.log))
	sweep := func(fn func(context.Context) (notifications.SweepResult, error)) scheduler.Job {
		return func(ctx context.Context) error {
			_, err := fn(ctx)
			return err
		}
	}
	if err := s.AddJob("scheduled", scheduler.Every(a.cfg.app.ScheduledSweepInterval),
		sweep(a.manager.ProcessScheduledNotifications)); err != nil {
		return nil, err
	}
	if err := s.AddJob("retry", scheduler.Every(a.cfg.app.RetrySweepInterval),
		sweep(a.manager.RetryFailedNotifications)); err != nil {
		return nil, err
	}
	return s, nil
}

// run serves until ctx is cancelled. Shared connections close only after
// the server, scheduler and consumer have all returned.
func (a *app) run(ctx context.Context) error {
	srv := httpserver.NewFromConfig(a.cfg.http,
		httpserver.WithLogger(a.log),
		httpserver.WithOnShutdown(func() { a.log.Info("http server drained") }),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, a.handler.Routes()) })
	g.Go(func() error { return ignoreCanceled(a.scheduler.Start(gctx)) })
	if a.consumer != nil {
		g.Go(func() error { return ignoreCanceled(a.consumer.Run(gctx)) })
	}
	err := g.Wait()
	if cerr := a.close(); cerr != nil {
		a.log.Error("failed to release resources", logger.Error(cerr))
	}
	return err
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
