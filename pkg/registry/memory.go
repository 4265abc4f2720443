package registry

import (
	"context"
	"slices"
	"sync"
)

// MemoryDocument keeps the registry document in process memory.
// Contents are lost on restart.
type MemoryDocument struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryDocument creates an empty in-memory document store.
func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{}
}

func (d *MemoryDocument) Load(_ context.Context) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.data == nil {
		return nil, ErrDocumentNotFound
	}
	return slices.Clone(d.data), nil
}

func (d *MemoryDocument) Save(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.data = slices.Clone(doc)
	d.mu.Unlock()
	return nil
}
