package main

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/events"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/jwt"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/push"
	"github.com/dmitrymomot/notifykit/pkg/ratelimiter"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/sms"
)

const (
	storagePostgres = "postgres"
	storageMemory   = "memory"
)

type appConfig struct {
	Env           string `env:"APP_ENV" envDefault:"development"`
	ServiceName   string `env:"SERVICE_NAME" envDefault:"notifykit"`
	LogLevel      string `env:"LOG_LEVEL"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	// TemplatesFile replaces the built-in seed templates when set.
	TemplatesFile string `env:"TEMPLATES_FILE"`

	ScheduledSweepInterval time.Duration `env:"SWEEP_SCHEDULED_INTERVAL" envDefault:"60s"`
	RetrySweepInterval     time.Duration `env:"SWEEP_RETRY_INTERVAL" envDefault:"300s"`
	SweepBatchSize         int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	ClaimLease             time.Duration `env:"CLAIM_LEASE" envDefault:"5m"`

	InboxSize int64         `env:"INAPP_INBOX_SIZE" envDefault:"100"`
	InboxTTL  time.Duration `env:"INAPP_INBOX_TTL" envDefault:"720h"`
}

// configs groups every package configuration the daemon reads.
type configs struct {
	app       appConfig
	http      httpserver.Config
	redis     redis.Config
	email     email.Config
	sms       sms.Config
	push      push.Config
	events    events.Config
	auth      jwt.Config
	rateLimit ratelimiter.Config
	// pg is loaded only for the postgres storage driver.
	pg pg.Config
}

func loadConfigs() (configs, error) {
	var c configs
	loaders := []func() error{
		func() error { return config.Load(&c.app) },
		func() error { return config.Load(&c.http) },
		func() error { return config.Load(&c.redis) },
		func() error { return config.Load(&c.email) },
		func() error { return config.Load(&c.sms) },
		func() error { return config.Load(&c.push) },
		func() error { return config.Load(&c.events) },
		func() error { return config.Load(&c.auth) },
		func() error { return config.Load(&c.rateLimit) },
	}
	for _, load := range loaders {
		if err := load(); err != nil {
			return configs{}, err
		}
	}
	if c.app.StorageDriver == storagePostgres {
		if err := config.Load(&c.pg); err != nil {
			return configs{}, err
		}
	}
	return c, nil
}
