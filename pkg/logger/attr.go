package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute keys shared by every component.
const (
	KeyError     = "error"
	KeyErrors    = "errors"
	KeyRequestID = "request_id"
	KeyComponent = "component"
	KeyFileID    = "file_id"
	KeyProvider  = "provider"
	KeyLocation  = "location"
	KeySize      = "size"
	KeyDuration  = "duration"
)

// Error records err under "error". A nil err yields an empty Attr, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}

// Errors groups the non-nil errs under "errors", keyed by argument position.
func Errors(errs ...error) slog.Attr {
	var group []slog.Attr
	for i, err := range errs {
		if err != nil {
			group = append(group, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(group) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: KeyErrors, Value: slog.GroupValue(group...)}
}

// RequestID is empty for an empty id.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String(KeyRequestID, id)
}

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

func FileID(id string) slog.Attr { return slog.String(KeyFileID, id) }

func Provider(name string) slog.Attr { return slog.String(KeyProvider, name) }

// Location is a backend object handle: a key, blob name or Drive file id.
func Location(loc string) slog.Attr { return slog.String(KeyLocation, loc) }

func Size(n int64) slog.Attr { return slog.Int64(KeySize, n) }

func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }
