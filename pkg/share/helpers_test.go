package share_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tempshare/pkg/registry"
	"github.com/dmitrymomot/tempshare/pkg/share"
	"github.com/dmitrymomot/tempshare/pkg/storage"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: t0} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStorage is an in-memory backend with injectable failures.
type fakeStorage struct {
	name string
	caps storage.Capability

	mu          sync.Mutex
	objects     map[string][]byte
	seq         int
	stores      int
	signs       int
	closed      int
	storeErr    error
	retrieveErr error
	deleteErr   error
	listErr     error
	signErr     error
}

func newFakeStorage(name string, caps storage.Capability) *fakeStorage {
	return &fakeStorage{name: name, caps: caps, objects: map[string][]byte{}}
}

func (f *fakeStorage) Provider() string                 { return f.name }
func (f *fakeStorage) Capabilities() storage.Capability { return f.caps }

func (f *fakeStorage) Store(_ context.Context, r io.Reader, _ int64, name, folder string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.seq++
	key := fmt.Sprintf("%s/%d_%s", strings.Trim(folder, "/"), f.seq, name)
	f.objects[key] = data
	return &storage.Object{Location: key, Size: int64(len(data)), ContentType: storage.ContentType(name)}, nil
}

type trackedBody struct {
	io.Reader
	f *fakeStorage
}

func (b trackedBody) Close() error {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	b.f.closed++
	return nil
}

func (f *fakeStorage) Retrieve(_ context.Context, location string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	data, ok := f.objects[location]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	return trackedBody{Reader: bytes.NewReader(data), f: f}, nil
}

func (f *fakeStorage) Delete(_ context.Context, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[location]; !ok {
		return storage.ErrFileNotFound
	}
	delete(f.objects, location)
	return nil
}

func (f *fakeStorage) List(_ context.Context, prefix string) ([]storage.Entry, error) {
	if !f.caps.Has(storage.CapList) {
		return nil, storage.ErrUnsupported
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []storage.Entry
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.Entry{Name: key, Path: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeStorage) SignedURL(_ context.Context, location string, ttl time.Duration) (string, error) {
	if !f.caps.Has(storage.CapSignedURL) {
		return "", storage.ErrUnsupported
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signs++
	if f.signErr != nil {
		return "", f.signErr
	}
	return fmt.Sprintf("https://%s.example.com/%s?ttl=%d&n=%d", f.name, location, int(ttl.Seconds()), f.signs), nil
}

func (f *fakeStorage) has(location string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[location]
	return ok
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// failingDocument accepts the first limit saves and fails the rest.
type failingDocument struct {
	*registry.MemoryDocument
	mu    sync.Mutex
	saves int
	limit int
}

func newFailingDocument(limit int) *failingDocument {
	return &failingDocument{MemoryDocument: registry.NewMemoryDocument(), limit: limit}
}

func (d *failingDocument) Save(ctx context.Context, doc []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saves >= d.limit {
		return errors.New("disk full")
	}
	d.saves++
	return d.MemoryDocument.Save(ctx, doc)
}

type fixture struct {
	svc   *share.Service
	files *registry.Registry
	local *storage.LocalStorage
	clock *clock
}

func newFixture(t *testing.T, doc registry.DocumentStore, extra []storage.Storage, opts ...share.Option) fixture {
	t.Helper()
	if doc == nil {
		doc = registry.NewMemoryDocument()
	}

	files, err := registry.Open(context.Background(), doc)
	require.NoError(t, err)

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	set, err := storage.NewSet(append([]storage.Storage{local}, extra...)...)
	require.NoError(t, err)

	clk := newClock()
	opts = append([]share.Option{
		share.WithClock(clk.Now),
		share.WithMetrics(share.NewMetrics(prometheus.NewRegistry())),
	}, opts...)

	svc, err := share.New(files, set, opts...)
	require.NoError(t, err)

	return fixture{svc: svc, files: files, local: local, clock: clk}
}

func (f fixture) upload(t *testing.T, name, content string, minutes, limit int) *share.UploadResult {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), share.UploadInput{
		Name:              name,
		Body:              strings.NewReader(content),
		Size:              int64(len(content)),
		ExpirationMinutes: minutes,
		AccessLimit:       limit,
	})
	require.NoError(t, err)
	return res
}

func (f fixture) fetch(id string) (string, error) {
	var buf bytes.Buffer
	_, err := f.svc.Fetch(context.Background(), id, &buf)
	return buf.String(), err
}

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
