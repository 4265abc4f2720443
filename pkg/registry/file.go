package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDocument stores the registry document as a JSON file on disk.
// Saves are atomic: temp file, fsync, rename.
type FileDocument struct {
	path string
}

// NewFileDocument creates a file-backed document store. The parent
// directory is created if it does not exist.
func NewFileDocument(path string) (*FileDocument, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty document path", ErrNilDocumentStore)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	return &FileDocument{path: path}, nil
}

// Path returns the document file path.
func (d *FileDocument) Path() string { return d.path }

// Load reads the document file.
func (d *FileDocument) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	return data, nil
}

// Save replaces the document file atomically.
func (d *FileDocument) Save(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(doc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp document: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync temp document: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp document: %w", err)
	}

	if err := os.Rename(tmpPath, d.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename document: %w", err)
	}

	return nil
}
