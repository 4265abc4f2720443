package share

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/tempshare/pkg/admission"
	"github.com/dmitrymomot/tempshare/pkg/logger"
	"github.com/dmitrymomot/tempshare/pkg/registry"
)

// SweepResult summarizes one sweeper run.
type SweepResult struct {
	Removed  int
	Errors   int
	Duration time.Duration
}

// Sweeper periodically removes records that stayed expired (and optionally
// quota-exhausted) for longer than the grace period, then deletes their
// backend objects. It is not started unless configured.
type Sweeper struct {
	svc            *Service
	interval       time.Duration
	grace          time.Duration
	quotaExhausted bool

	mu sync.Mutex // one run at a time
}

// SweeperOption configures Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepGrace keeps expired records for d after they expire.
func WithSweepGrace(d time.Duration) SweeperOption {
	return func(sw *Sweeper) {
		if d >= 0 {
			sw.grace = d
		}
	}
}

// WithSweepQuotaExhausted also removes records whose access limit is used up.
func WithSweepQuotaExhausted(enabled bool) SweeperOption {
	return func(sw *Sweeper) {
		sw.quotaExhausted = enabled
	}
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(svc *Service, interval time.Duration, opts ...SweeperOption) *Sweeper {
	sw := &Sweeper{svc: svc, interval: interval}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Run sweeps every interval until ctx is done. A non-positive interval returns immediately.
func (sw *Sweeper) Run(ctx context.Context) error {
	if sw.interval <= 0 {
		return nil
	}
	log := sw.svc.log.With(logger.Component("sweeper"))
	log.InfoContext(ctx, "sweeper started", slog.Duration("interval", sw.interval))

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "sweeper stopped")
			return nil
		case <-ticker.C:
			sw.Sweep(ctx)
		}
	}
}

func (sw *Sweeper) reclaimable(now time.Time) func(registry.Record) bool {
	cutoff := now.Add(-sw.grace)
	return func(rec registry.Record) bool {
		switch admission.Evaluate(rec, now) {
		case admission.Expired:
			return rec.ExpiresAt().Before(cutoff) || rec.ExpiresAt().Equal(cutoff)
		case admission.QuotaExceeded:
			return sw.quotaExhausted
		}
		return false
	}
}

// Sweep runs one pass. Records are purged in a single registry save before
// any backend delete, so a failed backend delete only leaves a stray object.
func (sw *Sweeper) Sweep(ctx context.Context) SweepResult {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	s := sw.svc
	start := time.Now()
	var result SweepResult

	removed, err := s.files.Purge(ctx, sw.reclaimable(s.now()))
	if err != nil {
		result.Errors++
		s.log.ErrorContext(ctx, "sweep purge failed", logger.Error(err))
	}
	for _, rec := range removed {
		if err := s.removeObject(ctx, rec); err != nil {
			result.Errors++
			s.log.WarnContext(ctx, "swept record left backend object",
				logger.FileID(rec.ID),
				logger.Provider(rec.Provider),
				logger.Location(rec.Location),
				logger.Error(err),
			)
		}
	}
	result.Removed = len(removed)
	result.Duration = time.Since(start)

	s.metrics.sweepRuns.Inc()
	s.metrics.sweepRemoved.Add(float64(result.Removed))
	s.metrics.sweepDuration.Observe(result.Duration.Seconds())

	if result.Removed > 0 || result.Errors > 0 {
		s.log.InfoContext(ctx, "sweep finished",
			slog.Int("removed", result.Removed),
			slog.Int("errors", result.Errors),
			logger.Duration(result.Duration),
		)
	}
	return result
}
