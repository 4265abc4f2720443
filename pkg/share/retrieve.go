package share

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrymomot/tempshare/pkg/admission"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/registry"
	"github.com/dmitrymomot/tempshare/pkg/storage"
)

// Delivery is an admitted retrieval holding one access slot. The caller
// streams Body, closes it and calls Service.Commit once every byte has been
// delivered, or Service.Release when the delivery is abandoned.
type Delivery struct {
	Record      registry.Record
	Body        io.ReadCloser
	ContentType string

	slot *registry.Reservation
}

// Open runs the gateway checks in their fixed order: registry lookup, backend
// open, then admission. A record whose backend object is gone is reported as
// ErrNotFound even though the record exists.
//
// Admission reserves a slot against the latest access count, so concurrent
// deliveries of a limited record never exceed its limit.
func (s *Service) Open(ctx context.Context, id string) (*Delivery, error) {
	rec, err := s.files.Get(ctx, id)
	if err != nil {
		s.metrics.retrievals.WithLabelValues("not_found").Inc()
		return nil, registryError(err)
	}

	backend, err := s.backends.Get(rec.Provider)
	if err != nil {
		// Record points at a provider that is no longer configured.
		s.metrics.retrievals.WithLabelValues("backend_error").Inc()
		return nil, s.backendError(rec.Provider, "retrieve", err)
	}

	body, err := backend.Retrieve(ctx, rec.Location)
	switch {
	case errors.Is(err, storage.ErrFileNotFound):
		s.metrics.retrievals.WithLabelValues("not_found").Inc()
		s.log.WarnContext(ctx, "backend object missing",
			logger.FileID(rec.ID),
			logger.Provider(rec.Provider),
			logger.Location(rec.Location),
		)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case err != nil:
		s.metrics.retrievals.WithLabelValues("backend_error").Inc()
		return nil, s.backendError(rec.Provider, "retrieve", err)
	}

	slot, err := s.files.Reserve(ctx, id, s.admit)
	if err != nil {
		body.Close()
		switch {
		case errors.Is(err, ErrExpired):
			s.metrics.retrievals.WithLabelValues("expired").Inc()
		case errors.Is(err, ErrQuotaExceeded):
			s.metrics.retrievals.WithLabelValues("quota_exceeded").Inc()
		default:
			// Deleted between lookup and admission.
			s.metrics.retrievals.WithLabelValues("not_found").Inc()
			return nil, registryError(err)
		}
		return nil, err
	}

	return &Delivery{
		Record:      slot.Record(),
		Body:        body,
		ContentType: storage.ContentType(rec.OriginalName),
		slot:        slot,
	}, nil
}

func (s *Service) admit(rec registry.Record, inFlight int) error {
	switch admission.EvaluateInFlight(rec, inFlight, s.now()) {
	case admission.Expired:
		return fmt.Errorf("%w: %s", ErrExpired, rec.ID)
	case admission.QuotaExceeded:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, rec.ID)
	}
	return nil
}

// Commit records a completed delivery. Bytes already left the gateway, so a
// failure is logged and counted but never returned to the client.
func (s *Service) Commit(ctx context.Context, d *Delivery) {
	rec, err := d.slot.Commit(context.WithoutCancel(ctx))
	if err != nil {
		s.metrics.retrievals.WithLabelValues("delivered_uncounted").Inc()
		s.metrics.accessNotCounted.Inc()
		s.log.ErrorContext(ctx, "access not recorded after delivery",
			logger.FileID(d.Record.ID),
			logger.Error(err),
		)
		return
	}
	s.metrics.retrievals.WithLabelValues("delivered").Inc()
	s.log.DebugContext(ctx, "file delivered",
		logger.FileID(rec.ID),
		logger.Size(rec.Size),
	)
}

// Release gives back the slot of an abandoned delivery without counting it.
// It is a no-op after Commit.
func (s *Service) Release(d *Delivery) {
	d.slot.Release()
}

// Fetch opens id, copies it into w and commits the access.
// A copy failure leaves the access count unchanged.
func (s *Service) Fetch(ctx context.Context, id string, w io.Writer) (registry.Record, error) {
	d, err := s.Open(ctx, id)
	if err != nil {
		return registry.Record{}, err
	}
	defer d.Body.Close()
	defer s.Release(d)

	if _, err := io.Copy(w, d.Body); err != nil {
		s.metrics.retrievals.WithLabelValues("aborted").Inc()
		return registry.Record{}, s.backendError(d.Record.Provider, "retrieve", err)
	}
	s.Commit(ctx, d)

	return d.Record, nil
}
