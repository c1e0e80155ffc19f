// Package httpserver runs an http.Handler until its context is cancelled and
// then shuts it down gracefully. It also provides liveness and readiness
// handlers for orchestrator probes.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
package httpserver
