package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/tempshare/pkg/logger"
)

// DefaultRetiredLimit keeps every deleted id, so an id is unique across
// live and retired records for the lifetime of the document.
const DefaultRetiredLimit = 0

// Registry is the authoritative index of shared files.
//
// Reads (Get, List) load the latest committed snapshot and never block.
// Mutations are serialized by a single mutex; each one builds the next
// snapshot, saves the whole document and publishes the snapshot only after
// the save succeeds. The registry performs no backend I/O.
type Registry struct {
	store        DocumentStore
	log          *slog.Logger
	retiredLimit int

	mu      sync.Mutex // serializes mutations and guards pending
	state   atomic.Pointer[snapshot]
	pending map[string]int // reserved, not yet committed accesses per id
}

// Option configures Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRetiredLimit bounds how many deleted ids are kept to reject reuse.
// Zero keeps every id. A bound trades strict uniqueness for a smaller
// document; ids are UUIDv4, so reuse past the window needs a random collision.
func WithRetiredLimit(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.retiredLimit = n
		}
	}
}

// Open loads the registry from store. A missing document yields an empty registry;
// an unreadable one fails with ErrLoad and a malformed one with ErrCorruptDocument.
func Open(ctx context.Context, store DocumentStore, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, ErrNilDocumentStore
	}

	r := &Registry{
		store:        store,
		log:          slog.Default(),
		retiredLimit: DefaultRetiredLimit,
		pending:      map[string]int{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("registry"))

	data, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		r.state.Store(emptySnapshot())
		r.log.InfoContext(ctx, "registry document not found, starting empty")
		return r, nil
	case err != nil:
		return nil, errors.Join(ErrLoad, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	r.state.Store(snap)
	r.log.InfoContext(ctx, "registry loaded", slog.Int("records", len(snap.files)))

	return r, nil
}

// Get returns the record with the given id.
func (r *Registry) Get(_ context.Context, id string) (Record, error) {
	rec, ok := r.state.Load().files[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// List returns all records, newest first.
func (r *Registry) List(_ context.Context) []Record {
	files := r.state.Load().files
	out := make([]Record, 0, len(files))
	for _, rec := range files {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b Record) int {
		if c := cmp.Compare(b.Created, a.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	return len(r.state.Load().files)
}

// Put inserts a new record. Ids already in use, live or deleted, are rejected.
func (r *Registry) Put(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.state.Load()
	if cur.used(rec.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}

	next := cur.clone()
	next.files[rec.ID] = rec
	return r.commit(ctx, next)
}

// RecordAccess atomically increments the access counter and returns the updated record.
func (r *Registry) RecordAccess(ctx context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.recordAccess(ctx, id)
}

// recordAccess must be called with mu held.
func (r *Registry) recordAccess(ctx context.Context, id string) (Record, error) {
	cur := r.state.Load()
	rec, ok := cur.files[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rec.AccessCount++
	next := cur.clone()
	next.files[id] = rec
	if err := r.commit(ctx, next); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Reserve holds one access slot for id until the reservation is committed
// or released. admit sees the latest committed record and the number of
// slots already held by other callers; a non-nil result is returned as is
// and nothing is reserved.
func (r *Registry) Reserve(_ context.Context, id string, admit func(rec Record, inFlight int) error) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.state.Load().files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if admit != nil {
		if err := admit(rec, r.pending[id]); err != nil {
			return nil, err
		}
	}
	r.pending[id]++

	return &Reservation{reg: r, rec: rec}, nil
}

// InFlight returns how many reservations are open for id.
func (r *Registry) InFlight(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[id]
}

// release must be called with mu held.
func (r *Registry) release(id string) {
	if r.pending[id] <= 1 {
		delete(r.pending, id)
		return
	}
	r.pending[id]--
}

// Reservation is an admitted, uncommitted access. Exactly one of Commit or
// Release takes effect; later calls are no-ops.
type Reservation struct {
	reg  *Registry
	rec  Record
	done bool // guarded by reg.mu
}

// Record returns the record as it was when the slot was reserved.
func (res *Reservation) Record() Record { return res.rec }

// Commit frees the slot and persists the access in the same critical section.
// On error the access is not counted.
func (res *Reservation) Commit(ctx context.Context) (Record, error) {
	r := res.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.done {
		return Record{}, ErrReservationClosed
	}
	res.done = true
	r.release(res.rec.ID)

	return r.recordAccess(ctx, res.rec.ID)
}

// Release frees the slot without counting an access.
func (res *Reservation) Release() {
	r := res.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.done {
		return
	}
	res.done = true
	r.release(res.rec.ID)
}

// Delete removes the record and retires its id.
// It reports false without error when the id is unknown.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.state.Load()
	if _, ok := cur.files[id]; !ok {
		return false, nil
	}

	next := cur.clone()
	delete(next.files, id)
	next.retire(r.retiredLimit, id)
	if err := r.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Purge removes every record matching pred in a single save and returns them.
func (r *Registry) Purge(ctx context.Context, pred func(Record) bool) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.state.Load()
	var removed []Record
	for _, rec := range cur.files {
		if pred(rec) {
			removed = append(removed, rec)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	next := cur.clone()
	ids := make([]string, 0, len(removed))
	for _, rec := range removed {
		delete(next.files, rec.ID)
		ids = append(ids, rec.ID)
	}
	slices.Sort(ids)
	next.retire(r.retiredLimit, ids...)
	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}
	return removed, nil
}

// commit saves next and publishes it. Must be called with mu held.
func (r *Registry) commit(ctx context.Context, next *snapshot) error {
	data, err := next.encode()
	if err != nil {
		return errors.Join(ErrPersist, err)
	}
	if err := r.store.Save(ctx, data); err != nil {
		r.log.ErrorContext(ctx, "registry save failed", logger.Error(err))
		return errors.Join(ErrPersist, err)
	}
	r.state.Store(next)
	return nil
}
