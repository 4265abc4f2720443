package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/tempshare/pkg/admission"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/registry"
	"github.com/dmitrymomot/tempshare/pkg/storage"
)

// FileView is a record as listed to callers, with its lifecycle state
// computed at query time.
type FileView struct {
	registry.Record
	Status           string `json:"status"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
	Remaining        int    `json:"remaining_accesses"`
}

func newFileView(rec registry.Record, now time.Time) FileView {
	return FileView{
		Record:           rec,
		Status:           admission.Status(rec, now),
		ExpiresInMinutes: admission.ExpiresIn(rec, now),
		Remaining:        admission.Remaining(rec),
	}
}

// List returns every registered file, newest first, including expired and
// exhausted ones.
func (s *Service) List(ctx context.Context) []FileView {
	now := s.now()
	records := s.files.List(ctx)
	out := make([]FileView, 0, len(records))
	for _, rec := range records {
		out = append(out, newFileView(rec, now))
	}
	return out
}

// Get returns one registered file without touching its backend or counter.
func (s *Service) Get(ctx context.Context, id string) (FileView, error) {
	rec, err := s.files.Get(ctx, id)
	if err != nil {
		return FileView{}, registryError(err)
	}
	return newFileView(rec, s.now()), nil
}

// Delete removes the record and then its backend object. The record goes
// first so the file is unreachable even if the backend delete fails.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.files.Get(ctx, id)
	if err != nil {
		return registryError(err)
	}

	removed, err := s.files.Delete(ctx, id)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	log := s.log.With(logger.FileID(id), logger.Provider(rec.Provider), logger.Location(rec.Location))
	if err := s.removeObject(ctx, rec); err != nil {
		log.ErrorContext(ctx, "record deleted but backend object remains", logger.Error(err))
		return err
	}
	log.InfoContext(ctx, "file deleted")

	return nil
}

// removeObject deletes the backend object of rec. A missing object counts as removed.
func (s *Service) removeObject(ctx context.Context, rec registry.Record) error {
	backend, err := s.backends.Get(rec.Provider)
	if err != nil {
		return s.backendError(rec.Provider, "delete", err)
	}
	s.links.forget(rec.Provider, rec.Location)

	err = backend.Delete(ctx, rec.Location)
	switch {
	case errors.Is(err, storage.ErrFileNotFound):
		s.log.WarnContext(ctx, "backend object already gone",
			logger.FileID(rec.ID),
			logger.Location(rec.Location),
		)
		return nil
	case err != nil:
		return s.backendError(rec.Provider, "delete", err)
	}
	return nil
}
