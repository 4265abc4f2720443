package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/storage"
	"github.com/dmitrymomot/tempshare/pkg/validator"
)

// LinkResult is a signed link issued by a backend.
type LinkResult struct {
	URL              string `json:"url"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// capable resolves provider and checks that it supports c.
func (s *Service) capable(provider string, c storage.Capability) (storage.Storage, error) {
	backend, err := s.backend(provider)
	if err != nil {
		return nil, err
	}
	if !backend.Capabilities().Has(c) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, provider)
	}
	return backend, nil
}

// CloudList lists backend objects under prefix. These are raw objects and
// need not be registered.
func (s *Service) CloudList(ctx context.Context, provider, prefix string) ([]storage.Entry, error) {
	if err := validator.Apply(validator.NoPathTraversal("prefix", prefix)); err != nil {
		return nil, err
	}
	backend, err := s.capable(provider, storage.CapList)
	if err != nil {
		return nil, err
	}

	entries, err := backend.List(ctx, prefix)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupported) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, provider)
		}
		return nil, s.backendError(provider, "list", err)
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	return entries, nil
}

// CloudDelete removes a backend object directly. Registered records that
// point at it are left alone and will report not found on retrieval.
func (s *Service) CloudDelete(ctx context.Context, provider, path string) error {
	if err := validator.Apply(
		validator.RequiredString("file_path", path),
		validator.NoPathTraversal("file_path", path),
	); err != nil {
		return err
	}
	backend, err := s.backend(provider)
	if err != nil {
		return err
	}

	s.links.forget(provider, path)
	err = backend.Delete(ctx, path)
	switch {
	case errors.Is(err, storage.ErrFileNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case err != nil:
		return s.backendError(provider, "delete", err)
	}

	s.log.InfoContext(ctx, "backend object deleted", logger.Provider(provider), logger.Location(path))
	return nil
}

// CloudLink issues a signed link valid for minutes. Zero selects DefaultLinkMinutes.
func (s *Service) CloudLink(ctx context.Context, provider, path string, minutes int) (*LinkResult, error) {
	if minutes == 0 {
		minutes = DefaultLinkMinutes
	}
	backend, err := s.capable(provider, storage.CapSignedURL)
	if err != nil {
		return nil, err
	}
	limit := s.maxExpirationMinutes
	if l, ok := backend.(storage.LinkLimiter); ok && l.MaxLinkTTL() > 0 {
		limit = min(limit, int(l.MaxLinkTTL()/time.Minute))
	}
	if err := validator.Apply(
		validator.RequiredString("file_path", path),
		validator.NoPathTraversal("file_path", path),
		validator.Positive("expiration_minutes", minutes, ""),
		validator.MaxNum("expiration_minutes", minutes, limit),
	); err != nil {
		return nil, err
	}

	if url, ok := s.links.get(provider, path, minutes); ok {
		return &LinkResult{URL: url, ExpiresInMinutes: minutes}, nil
	}

	url, err := backend.SignedURL(ctx, path, time.Duration(minutes)*time.Minute)
	switch {
	case errors.Is(err, storage.ErrUnsupported):
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, provider)
	case errors.Is(err, storage.ErrFileNotFound):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case err != nil:
		return nil, s.backendError(provider, "signed_url", err)
	}
	s.links.add(provider, path, minutes, url)

	return &LinkResult{URL: url, ExpiresInMinutes: minutes}, nil
}
