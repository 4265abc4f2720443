package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/tempshare/handler"
	"github.com/dmitrymomot/tempshare/pkg/binder"
	"github.com/dmitrymomot/tempshare/pkg/httpserver"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/requestid"
	"github.com/dmitrymomot/tempshare/pkg/share"
)

// multipartOverhead is allowed on top of the upload size for form fields and
// part headers.
const multipartOverhead = 1 << 20

// ErrNilService is returned by New when no share service is given.
var ErrNilService = errors.New("api: share service is nil")

// API serves the HTTP boundary of the share service.
type API struct {
	svc             *share.Service
	log             *slog.Logger
	metrics         *prometheus.Registry
	readiness       []func(context.Context) error
	maxUploadSize   int64
	multipartMemory int64
	errorHandler    handler.ErrorHandler
}

// Option configures API.
type Option func(*API)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetricsRegistry registers the HTTP metrics on reg and serves reg on
// /metrics. Without it /metrics is not mounted.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *API) {
		a.metrics = reg
	}
}

// WithReadinessChecks adds checks run by /health/ready.
func WithReadinessChecks(checks ...func(context.Context) error) Option {
	return func(a *API) {
		a.readiness = append(a.readiness, checks...)
	}
}

// WithMaxUploadSize caps upload request bodies. Zero disables the cap.
func WithMaxUploadSize(n int64) Option {
	return func(a *API) {
		if n >= 0 {
			a.maxUploadSize = n
		}
	}
}

// WithMultipartMemory sets how much of a multipart body is kept in memory
// before parts spill to temporary files.
func WithMultipartMemory(n int64) Option {
	return func(a *API) {
		a.multipartMemory = n
	}
}

// New creates the API for svc.
func New(svc *share.Service, opts ...Option) (*API, error) {
	if svc == nil {
		return nil, ErrNilService
	}
	a := &API{
		svc: svc,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	// The error handler tags its own component.
	a.errorHandler = handler.NewErrorHandler(a.log, classify)
	a.log = a.log.With(logger.Component("api"))
	return a, nil
}

// Router returns the routes:
//
//	GET    /file/{id}           stream a shared file
//	DELETE /file/{id}           delete a shared file
//	POST   /create-temp-link    upload to the default provider
//	POST   /upload-file         upload to a chosen provider
//	GET    /list-temp-files     list registered files
//	GET    /cloud-files         list backend objects
//	DELETE /cloud-file          delete a backend object
//	GET    /cloud-link          signed link to a backend object
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	if a.metrics != nil {
		r.Use(newHTTPMetrics(a.metrics).middleware)
		r.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	}

	r.Get("/health/live", httpserver.HealthCheckHandler(a.log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(a.log, a.readiness...))

	path := binder.Path(chi.URLParam)
	query := binder.Query()
	form := binder.Form(a.multipartMemory)

	r.Get("/file/{id}", wrap(a, a.getFile, path))
	r.Delete("/file/{id}", wrap(a, a.deleteFile, path))
	r.Get("/list-temp-files", wrap(a, a.listTempFiles))

	r.Group(func(r chi.Router) {
		r.Use(a.limitBody)
		r.Post("/create-temp-link", wrap(a, a.createTempLink, form))
		r.Post("/upload-file", wrap(a, a.uploadFile, form))
	})

	r.Get("/cloud-files", wrap(a, a.cloudFiles, query))
	r.Delete("/cloud-file", wrap(a, a.deleteCloudFile, query))
	r.Get("/cloud-link", wrap(a, a.cloudLink, query))

	return r
}

func wrap[R any](a *API, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders(binders...),
		handler.WithErrorHandler(a.errorHandler),
	)
}

func (a *API) limitBody(next http.Handler) http.Handler {
	if a.maxUploadSize <= 0 {
		return next
	}
	limit := a.maxUploadSize + multipartOverhead
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
