// Package logger builds the service's *slog.Logger and keeps attribute naming
// consistent across packages.
//
// New creates a logger configured by Option functions: output format, level,
// static attributes and ContextExtractor callbacks that inject values stored
// in context.Context (request id, environment) into every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Parse(cfg.Env), "notifyd"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers in attr.go (Error, UserID, NotificationID, Channel,
// Status, RetryCount, ...) return empty attributes for empty inputs, so calls
// such as
//
//	log.LogAttrs(ctx, slog.LevelWarn, "dispatch failed",
//	    logger.NotificationID(n.ID),
//	    logger.Error(err),
//	)
//
// need no nil checks.
package logger
