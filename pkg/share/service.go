package share

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/registry"
	"github.com/dmitrymomot/tempshare/pkg/storage"
	"github.com/dmitrymomot/tempshare/pkg/validator"
)

const (
	// MinExpirationMinutes is the shortest lifetime a shared file may have.
	MinExpirationMinutes = 5
	// DefaultExpirationMinutes applies when the caller does not choose one.
	DefaultExpirationMinutes = 60
	// DefaultMaxExpirationMinutes caps lifetimes at 30 days.
	DefaultMaxExpirationMinutes = 30 * 24 * 60
	// DefaultLinkMinutes is the signed link lifetime when none is requested.
	DefaultLinkMinutes = 60
	// MaxFilenameLength bounds original_name.
	MaxFilenameLength = 255
)

// Service orchestrates uploads into storage backends and gated retrieval
// through the registry. Backend I/O never happens while the registry is
// locked: uploads store content first and register afterwards, retrievals
// open content before the admission check.
type Service struct {
	files    *registry.Registry
	backends *storage.Set
	log      *slog.Logger
	metrics  *Metrics
	links    *linkCache
	now      func() time.Time
	newID    func() string

	defaultProvider      string
	maxUploadSize        int64
	maxExpirationMinutes int
	linkCacheSize        int
	linkCacheTTL         time.Duration
}

// Option configures Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now. Used by tests to move through expiry windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv4 record id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithDefaultProvider sets the provider used when an upload names none.
func WithDefaultProvider(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultProvider = name
		}
	}
}

// WithMaxUploadSize rejects uploads larger than n bytes. Zero means no limit.
func WithMaxUploadSize(n int64) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxUploadSize = n
		}
	}
}

// WithMaxExpirationMinutes caps expiration_minutes and signed link lifetimes.
func WithMaxExpirationMinutes(n int) Option {
	return func(s *Service) {
		if n >= MinExpirationMinutes {
			s.maxExpirationMinutes = n
		}
	}
}

// WithLinkCache caches up to size signed links for ttl.
func WithLinkCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.linkCacheSize = size
		s.linkCacheTTL = ttl
	}
}

// New creates the service over a registry and the configured backends.
func New(files *registry.Registry, backends *storage.Set, opts ...Option) (*Service, error) {
	if files == nil || backends == nil {
		return nil, ErrNilDependency
	}

	s := &Service{
		files:                files,
		backends:             backends,
		log:                  slog.Default(),
		now:                  time.Now,
		newID:                uuid.NewString,
		defaultProvider:      storage.ProviderLocal,
		maxExpirationMinutes: DefaultMaxExpirationMinutes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	s.links = newLinkCache(s.linkCacheSize, s.linkCacheTTL, s.metrics)
	s.log = s.log.With(logger.Component("share"))

	return s, nil
}

// Providers returns the configured provider names.
func (s *Service) Providers() []string {
	return s.backends.Names()
}

// DefaultProvider returns the provider used when an upload names none.
func (s *Service) DefaultProvider() string {
	return s.defaultProvider
}

// backend resolves a provider name. Unknown names are caller errors.
func (s *Service) backend(provider string) (storage.Storage, error) {
	if err := validator.Apply(
		validator.RequiredString("provider", provider),
		validator.InListString("provider", provider, s.backends.Names()),
	); err != nil {
		return nil, err
	}
	return s.backends.Get(provider)
}

func (s *Service) backendError(provider, op string, err error) error {
	s.metrics.backendErrors.WithLabelValues(provider, op).Inc()
	return &BackendError{Provider: provider, Operation: op, Err: err}
}

// registryError maps registry failures that are not caller errors.
func registryError(err error) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return errors.Join(ErrInternal, err)
	}
}
