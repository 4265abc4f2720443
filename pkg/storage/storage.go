package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider names accepted by NewSet and selected per upload.
const (
	ProviderLocal        = "local"
	ProviderS3           = "aws_s3"
	ProviderS3Compatible = "s3_compatible"
	ProviderGCS          = "google_cloud_storage"
	ProviderAzure        = "azure_blob"
	ProviderDrive        = "google_drive"
)

// Capability is a bit set of optional operations a backend supports.
type Capability uint8

const (
	// CapList marks backends that can enumerate objects under a prefix.
	CapList Capability = 1 << iota
	// CapSignedURL marks backends that can issue time-limited direct links.
	CapSignedURL
)

// Has reports whether all capabilities in o are present in c.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

// MaxPresignTTL is the longest lifetime a SigV4 presigned link may have.
const MaxPresignTTL = 7 * 24 * time.Hour

// LinkLimiter is implemented by backends whose signed links cannot outlive
// a fixed lifetime.
type LinkLimiter interface {
	MaxLinkTTL() time.Duration
}

// LinkTTL clamps ttl to the signed link limit of s, if it has one.
func LinkTTL(s Storage, ttl time.Duration) time.Duration {
	if l, ok := s.(LinkLimiter); ok {
		if limit := l.MaxLinkTTL(); limit > 0 && ttl > limit {
			return limit
		}
	}
	return ttl
}

// Object describes content persisted by Store.
type Object struct {
	Location    string // Backend-specific handle: relative path, object key or file ID
	Size        int64
	ContentType string
}

// Entry is a listing descriptor returned by List. It is not persisted anywhere.
type Entry struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Storage is the capability contract every backend satisfies.
// Optional operations (List, SignedURL) return ErrUnsupported when the
// matching Capability bit is absent; callers should check Capabilities first.
type Storage interface {
	// Provider returns the provider name this adapter is registered under.
	Provider() string
	// Capabilities reports which optional operations are available.
	Capabilities() Capability
	// Store persists content and returns its backend handle.
	// size may be -1 when unknown.
	Store(ctx context.Context, r io.Reader, size int64, name, folder string) (*Object, error)
	// Retrieve opens stored content. Returns ErrFileNotFound if the object is gone.
	Retrieve(ctx context.Context, location string) (io.ReadCloser, error)
	// Delete removes stored content. Returns ErrFileNotFound if the object is gone.
	Delete(ctx context.Context, location string) error
	// List enumerates objects under prefix.
	List(ctx context.Context, prefix string) ([]Entry, error)
	// SignedURL issues a time-limited direct link to the object.
	SignedURL(ctx context.Context, location string, ttl time.Duration) (string, error)
}

// Set holds the configured adapters keyed by provider name.
// It is read-only after construction and safe for concurrent use.
type Set struct {
	adapters map[string]Storage
	names    []string
}

// NewSet builds a Set. Nil adapters are skipped so optional providers
// can be passed unconditionally.
func NewSet(adapters ...Storage) (*Set, error) {
	s := &Set{adapters: make(map[string]Storage, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		name := a.Provider()
		if _, exists := s.adapters[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
		}
		s.adapters[name] = a
		s.names = append(s.names, name)
	}
	slices.Sort(s.names)
	return s, nil
}

// Get returns the adapter registered for provider.
func (s *Set) Get(provider string) (Storage, error) {
	if a, ok := s.adapters[provider]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
}

// Has reports whether provider is configured.
func (s *Set) Has(provider string) bool {
	_, ok := s.adapters[provider]
	return ok
}

// Names returns configured provider names in sorted order.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

var contentTypes = map[string]string{
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
}

// DefaultContentType is used for extensions outside the fixed table.
const DefaultContentType = "application/octet-stream"

// ContentType maps a filename to a MIME type using a fixed extension table.
// Unknown extensions map to DefaultContentType.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}

// SanitizeFilename removes any path components and dangerous characters from a filename
// to prevent path traversal attacks.
// Returns "unnamed" for empty or special directory references.
//
// Example:
//
//	safe := storage.SanitizeFilename("../../../etc/passwd") // Returns "passwd"
//	safe = storage.SanitizeFilename("C:\\Windows\\file.txt") // Returns "file.txt"
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = path.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}

	return filename
}

// ObjectKey builds a collision-free key for name inside folder.
// Two uploads with the same name never overwrite each other.
func ObjectKey(folder, name string) (string, error) {
	folder, err := cleanKey(folder)
	if err != nil {
		return "", err
	}
	key := uuid.NewString() + "_" + SanitizeFilename(name)
	if folder == "" {
		return key, nil
	}
	return path.Join(folder, key), nil
}

// cleanKey normalizes an object key and rejects traversal segments.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.Trim(key, "/")
	if key == "" {
		return "", nil
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %s", ErrInvalidPath, key)
		}
	}
	return path.Clean(key), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// checkContext returns early when ctx is already done.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
