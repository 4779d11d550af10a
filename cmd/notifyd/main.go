// Command notifyd runs the notification delivery service: the HTTP API, the
// event consumer and the scheduled and retry sweeps.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/notifykit/pkg/environment"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

func main() {
	cfgs, err := loadConfigs()
	if err != nil {
		slog.Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	env := environment.Parse(cfgs.app.Env)
	opts := []logger.Option{
		logger.WithEnvironment(env, cfgs.app.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfgs.app.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfgs.app.LogLevel))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfgs, log)
	if err != nil {
		log.ErrorContext(ctx, "failed to start", logger.Error(err))
		os.Exit(1)
	}
	if err := a.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "service stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("service stopped")
}
