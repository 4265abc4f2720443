// Package admission decides whether a registry record may be delivered.
package admission

import (
	"time"

	"github.com/dmitrymomot/tempshare/pkg/registry"
)

// Decision is the outcome of Evaluate.
type Decision int

const (
	Admitted Decision = iota
	Expired
	QuotaExceeded
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Expired:
		return "expired"
	case QuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// Status values reported in listings.
const (
	StatusActive         = "active"
	StatusExpired        = "expired"
	StatusQuotaExhausted = "quota_exhausted"
)

// Evaluate checks expiry before quota. A record is expired once now is past
// Expires; a record with a non-negative limit is exhausted once AccessCount
// reaches it.
func Evaluate(rec registry.Record, now time.Time) Decision {
	return EvaluateInFlight(rec, 0, now)
}

// EvaluateInFlight is Evaluate with inFlight admitted but uncommitted
// deliveries counted against the limit.
func EvaluateInFlight(rec registry.Record, inFlight int, now time.Time) Decision {
	if registry.Epoch(now) > rec.Expires {
		return Expired
	}
	if rec.AccessLimit >= 0 && rec.AccessCount+max(inFlight, 0) >= rec.AccessLimit {
		return QuotaExceeded
	}
	return Admitted
}

// Status maps Evaluate to the lifecycle state name.
func Status(rec registry.Record, now time.Time) string {
	switch Evaluate(rec, now) {
	case Expired:
		return StatusExpired
	case QuotaExceeded:
		return StatusQuotaExhausted
	default:
		return StatusActive
	}
}

// Remaining returns how many more deliveries are allowed, or -1 when unlimited.
func Remaining(rec registry.Record) int {
	if rec.Unlimited() {
		return registry.Unlimited
	}
	return max(rec.AccessLimit-rec.AccessCount, 0)
}

// ExpiresIn returns whole minutes until expiry, never negative.
func ExpiresIn(rec registry.Record, now time.Time) int {
	d := rec.ExpiresAt().Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}
