// Package httpserver runs an http.Handler until its context is canceled and
// then drains in-flight requests.
//
//	var cfg httpserver.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	return srv.Run(ctx, router)
//
// Signal handling belongs to the caller, typically via signal.NotifyContext.
// HealthCheckHandler provides liveness and readiness endpoints.
package httpserver
