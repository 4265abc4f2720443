package share

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/registry"
	"github.com/dmitrymomot/tempshare/pkg/storage"
	"github.com/dmitrymomot/tempshare/pkg/validator"
)

// UploadInput describes one file to share.
type UploadInput struct {
	Name              string
	Body              io.Reader
	Size              int64
	Provider          string // empty selects the default provider
	Folder            string
	ExpirationMinutes int
	AccessLimit       int // registry.Unlimited for no quota
}

// UploadResult describes a registered upload.
type UploadResult struct {
	FileID      string    `json:"file_id"`
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	Provider    string    `json:"provider"`
	Location    string    `json:"-"`
	URL         string    `json:"url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessLimit int       `json:"access_limit"`
}

// RetrievalPath returns the gateway path of a file id.
func RetrievalPath(id string) string {
	return "/file/" + id
}

func (s *Service) validateUpload(in UploadInput) error {
	return validator.Apply(
		validator.RequiredString("file", in.Name),
		validator.MaxLenString("file", in.Name, MaxFilenameLength),
		validator.Rule{
			Check: func() bool { return in.Body != nil },
			Error: validator.ValidationError{Field: "file", Message: "file content is required"},
		},
		validator.Positive("file", in.Size, "file is empty"),
		validator.MaxNum("file", in.Size, s.maxUploadSize),
		validator.InListString("provider", in.Provider, s.backends.Names()),
		validator.NoPathTraversal("folder", in.Folder),
		validator.MinNum("expiration_minutes", in.ExpirationMinutes, MinExpirationMinutes),
		validator.MaxNum("expiration_minutes", in.ExpirationMinutes, s.maxExpirationMinutes),
		validator.MinNum("access_limit", in.AccessLimit, registry.Unlimited),
	)
}

// Upload validates the input, stores the content in the selected backend and
// registers it. Validation happens before any backend call. When the content
// is stored but cannot be registered the result is an *OrphanedObjectError;
// a best-effort delete of the stray object is attempted first.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Provider == "" {
		in.Provider = s.defaultProvider
	}
	if err := s.validateUpload(in); err != nil {
		return nil, err
	}

	backend, err := s.backends.Get(in.Provider)
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}

	log := s.log.With(logger.Provider(in.Provider))

	obj, err := backend.Store(ctx, in.Body, in.Size, in.Name, in.Folder)
	if err != nil {
		s.metrics.uploads.WithLabelValues(in.Provider, "backend_error").Inc()
		log.ErrorContext(ctx, "store failed", logger.Error(err))
		return nil, s.backendError(in.Provider, "store", err)
	}
	s.metrics.uploadedBytes.WithLabelValues(in.Provider).Add(float64(obj.Size))

	now := s.now()
	ttl := time.Duration(in.ExpirationMinutes) * time.Minute
	rec := registry.NewRecord(s.newID(), in.Name, in.Provider, obj.Location, obj.Size, now, ttl, in.AccessLimit)

	if err := s.files.Put(ctx, rec); err != nil {
		return nil, s.orphaned(ctx, backend, rec, err)
	}
	s.metrics.uploads.WithLabelValues(in.Provider, "ok").Inc()

	result := &UploadResult{
		FileID:      rec.ID,
		Path:        RetrievalPath(rec.ID),
		Filename:    rec.OriginalName,
		Size:        rec.Size,
		Provider:    rec.Provider,
		Location:    rec.Location,
		ExpiresAt:   rec.ExpiresAt(),
		AccessLimit: rec.AccessLimit,
	}

	if backend.Capabilities().Has(storage.CapSignedURL) {
		// The link may expire before the record on providers with a presign limit.
		url, err := backend.SignedURL(ctx, obj.Location, storage.LinkTTL(backend, ttl))
		if err != nil {
			log.WarnContext(ctx, "signed link unavailable", logger.FileID(rec.ID), logger.Error(err))
		} else {
			result.URL = url
		}
	}

	log.InfoContext(ctx, "file uploaded",
		logger.FileID(rec.ID),
		logger.Location(rec.Location),
		logger.Size(rec.Size),
	)

	return result, nil
}

func (s *Service) orphaned(ctx context.Context, backend storage.Storage, rec registry.Record, cause error) error {
	s.metrics.uploads.WithLabelValues(rec.Provider, "orphaned").Inc()
	s.metrics.orphans.Inc()

	oerr := &OrphanedObjectError{Provider: rec.Provider, Location: rec.Location, Err: cause}
	if err := backend.Delete(context.WithoutCancel(ctx), rec.Location); err != nil {
		oerr.CleanupErr = err
	} else {
		oerr.Removed = true
	}

	s.log.ErrorContext(ctx, "uploaded object not registered",
		logger.FileID(rec.ID),
		logger.Provider(rec.Provider),
		logger.Location(rec.Location),
		logger.Errors(cause, oerr.CleanupErr),
		slog.Bool("removed", oerr.Removed),
	)
	return oerr
}
