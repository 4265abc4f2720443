package registry

import (
	"fmt"
	"math"
	"time"
)

// Unlimited is the access limit value that disables the quota.
const Unlimited = -1

// Record describes one shared file. JSON names match the persisted document.
type Record struct {
	ID           string  `json:"id"`
	OriginalName string  `json:"original_name"`
	Provider     string  `json:"provider"`
	Location     string  `json:"location"`
	Size         int64   `json:"size"`
	Created      float64 `json:"created"` // epoch seconds
	Expires      float64 `json:"expires"` // epoch seconds
	AccessLimit  int     `json:"access_limit"`
	AccessCount  int     `json:"access_count"`
}

// NewRecord builds a record created at now that expires after ttl.
func NewRecord(id, name, provider, location string, size int64, now time.Time, ttl time.Duration, accessLimit int) Record {
	return Record{
		ID:           id,
		OriginalName: name,
		Provider:     provider,
		Location:     location,
		Size:         size,
		Created:      Epoch(now),
		Expires:      Epoch(now.Add(ttl)),
		AccessLimit:  accessLimit,
	}
}

// CreatedAt returns Created as time.
func (r Record) CreatedAt() time.Time { return FromEpoch(r.Created) }

// ExpiresAt returns Expires as time.
func (r Record) ExpiresAt() time.Time { return FromEpoch(r.Expires) }

// Unlimited reports whether the record has no access quota.
func (r Record) Unlimited() bool { return r.AccessLimit == Unlimited }

// Validate checks the record invariants.
func (r Record) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	case r.Provider == "":
		return fmt.Errorf("%w: empty provider", ErrInvalidRecord)
	case !(r.Expires > r.Created):
		return fmt.Errorf("%w: expires must be after created", ErrInvalidRecord)
	case r.AccessLimit < Unlimited:
		return fmt.Errorf("%w: access_limit must be -1 or non-negative", ErrInvalidRecord)
	case r.AccessCount < 0:
		return fmt.Errorf("%w: negative access_count", ErrInvalidRecord)
	}
	return nil
}

// Epoch converts t to fractional epoch seconds.
func Epoch(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// FromEpoch converts fractional epoch seconds to time.
func FromEpoch(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond))
}
