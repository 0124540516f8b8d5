// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, life-cycle hooks, and structured logging. The analytics read API
// runs on it: Run blocks until the context is cancelled or an interrupt/TERM
// signal arrives, then drains in-flight requests within the shutdown
// deadline.
//
// Construction goes through New or NewFromConfig with Option helpers:
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithShutdownTimeout(10*time.Second),
//		httpserver.WithLogger(log),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", "err", err)
//	}
//
// Listen failures wrap ErrStart and shutdown failures wrap ErrShutdown, so
// callers can distinguish them with errors.Is.
package httpserver
