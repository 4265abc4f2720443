package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/dmitrymomot/tempshare/pkg/logger"
)

var (
	// ErrStart wraps listen and serve failures.
	ErrStart = errors.New("httpserver: failed to start")
	// ErrShutdown wraps drain failures, usually the shutdown timeout.
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)

// Server runs one http.Handler until its context is canceled.
type Server struct {
	cfg      *Config
	log      *slog.Logger
	listener net.Listener
}

// Option configures Server.
type Option func(*Server)

// WithLogger sets the logger. Without it the server logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithListener serves on l instead of listening on Config.Addr.
func WithListener(l net.Listener) Option {
	return func(s *Server) { s.listener = l }
}

// New returns a Server for cfg. Zero Addr and ShutdownTimeout fall back to
// ":8080" and 15s; other zero timeouts mean no limit.
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg: cfg.withDefaults(),
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("http"))
	return s
}

// Run serves h and blocks until ctx is canceled, then drains in-flight
// requests for at most ShutdownTimeout. A nil h serves 404 for everything.
func (s *Server) Run(ctx context.Context, h http.Handler) error {
	if h == nil {
		h = http.NotFoundHandler()
	}

	ln := s.listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", s.cfg.Addr); err != nil {
			return errors.Join(ErrStart, err)
		}
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.InfoContext(ctx, "http server started", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		s.log.ErrorContext(ctx, "http server failed", logger.Error(err))
		return errors.Join(ErrStart, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.ErrorContext(ctx, "http server shutdown failed", logger.Error(err))
		return errors.Join(ErrShutdown, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrStart, err)
	}

	s.log.InfoContext(ctx, "http server stopped")
	return nil
}
