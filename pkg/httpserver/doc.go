// Package httpserver runs an http.Handler with configurable timeouts,
// graceful shutdown and health probes.
//
// Run blocks until the context is cancelled or the process receives SIGINT
// or SIGTERM, then calls Shutdown, which drains in-flight requests within the
// shutdown timeout and runs the WithOnShutdown callbacks. Listen failures are
// joined with ErrStart and drain failures with ErrShutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	r.Get("/health/live", httpserver.LivenessHandler())
//	r.Get("/health/ready", httpserver.ReadinessHandler(log,
//		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
//	))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
