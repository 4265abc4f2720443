package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// LocalStorage keeps content in files below one base directory. Locations
// are slash-separated paths relative to that directory and can never resolve
// outside it. There are no signed links: on-disk content is reachable only
// through the retrieval gateway.
type LocalStorage struct {
	root    string
	timeout time.Duration
}

// LocalOption configures LocalStorage.
type LocalOption func(*LocalStorage)

// WithLocalUploadTimeout bounds each Store call. Zero leaves the caller's deadline alone.
func WithLocalUploadTimeout(d time.Duration) LocalOption {
	return func(s *LocalStorage) { s.timeout = d }
}

// NewLocalStorage creates root if needed and returns an adapter rooted there.
func NewLocalStorage(root string, opts ...LocalOption) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: local storage directory is required", ErrInvalidConfig)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve base directory: %v", ErrLocalIO, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrLocalIO, err)
	}

	s := &LocalStorage{root: abs}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *LocalStorage) Provider() string { return ProviderLocal }

func (s *LocalStorage) Capabilities() Capability { return CapList }

// Store copies r into a new file under folder. Partial files are removed
// when the copy fails or ctx ends first.
func (s *LocalStorage) Store(ctx context.Context, r io.Reader, _ int64, name, folder string) (*Object, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if r == nil {
		return nil, ErrNilReader
	}

	key, err := ObjectKey(folder, name)
	if err != nil {
		return nil, err
	}

	absPath, err := s.resolvePath(key)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrLocalIO, err)
	}

	// O_EXCL: keys are unique, an existing file means something is wrong
	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create file: %v", ErrLocalIO, err)
	}

	written, err := copyWithContext(ctx, dst, r)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: write file: %v", ErrLocalIO, closeErr)
	}
	if err != nil {
		_ = os.Remove(absPath)
		return nil, err
	}

	return &Object{
		Location:    filepath.ToSlash(key),
		Size:        written,
		ContentType: ContentType(name),
	}, nil
}

// copyWithContext copies src to dst checking ctx between chunks so large
// uploads can be aborted.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var written int64
	buf := make([]byte, 32*1024)
	for {
		if err := checkContext(ctx); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)
			if writeErr != nil {
				return written, fmt.Errorf("%w: write file: %v", ErrLocalIO, writeErr)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("%w: read content: %w", ErrLocalIO, readErr)
		}
	}
}

// Retrieve opens a stored file for reading.
func (s *LocalStorage) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	absPath, err := s.resolvePath(location)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, location)
		}
		return nil, fmt.Errorf("%w: stat: %v", ErrLocalIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, location)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open file: %v", ErrLocalIO, err)
	}
	return f, nil
}

// Delete removes one file. Directories are refused with ErrIsDirectory.
func (s *LocalStorage) Delete(ctx context.Context, location string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	absPath, err := s.resolvePath(location)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, location)
		}
		return fmt.Errorf("%w: stat: %v", ErrLocalIO, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, location)
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("%w: remove file: %v", ErrLocalIO, err)
	}

	return nil
}

// List walks the base directory and returns every file whose relative path
// starts with prefix. Listing never escapes the base directory.
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	prefix, err := cleanKey(prefix)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := checkContext(ctx); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		entries = append(entries, Entry{
			Name:         d.Name(),
			Path:         rel,
			Size:         info.Size(),
			LastModified: formatTime(info.ModTime()),
		})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: walk directory: %v", ErrLocalIO, err)
	}

	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return entries, nil
}

// SignedURL is not available for on-disk content.
func (s *LocalStorage) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", fmt.Errorf("%w: %s signed links", ErrUnsupported, ProviderLocal)
}

// resolvePath maps a location to an absolute path strictly below root.
func (s *LocalStorage) resolvePath(p string) (string, error) {
	p = filepath.Clean(filepath.FromSlash(p))
	absPath, err := filepath.Abs(filepath.Join(s.root, p))
	if err != nil {
		return "", fmt.Errorf("%w: resolve path: %v", ErrLocalIO, err)
	}

	if !strings.HasPrefix(absPath, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}

	return absPath, nil
}
