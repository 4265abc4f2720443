package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tempshare/pkg/registry"
)

func TestFileDocument(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := registry.NewFileDocument("")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		doc, err := registry.NewFileDocument(filepath.Join(t.TempDir(), "nested", "registry.json"))
		require.NoError(t, err)
		_, err = doc.Load(context.Background())
		require.ErrorIs(t, err, registry.ErrDocumentNotFound)
	})

	t.Run("save replaces atomically", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		doc, err := registry.NewFileDocument(filepath.Join(dir, "registry.json"))
		require.NoError(t, err)

		require.NoError(t, doc.Save(context.Background(), []byte(`{"files":{}}`)))
		require.NoError(t, doc.Save(context.Background(), []byte(`{"files":{"a":{}}}`)))

		data, err := doc.Load(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, `{"files":{"a":{}}}`, string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1, "temp files must not be left behind")
		assert.Equal(t, "registry.json", entries[0].Name())
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		doc, err := registry.NewFileDocument(filepath.Join(t.TempDir(), "registry.json"))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, doc.Save(ctx, []byte(`{}`)), context.Canceled)
	})

	t.Run("registry round trip", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "registry.json")
		doc, err := registry.NewFileDocument(path)
		require.NoError(t, err)

		r, err := registry.Open(context.Background(), doc)
		require.NoError(t, err)
		rec := newRecord(t, 2)
		require.NoError(t, r.Put(context.Background(), rec))

		doc2, err := registry.NewFileDocument(path)
		require.NoError(t, err)
		r2, err := registry.Open(context.Background(), doc2)
		require.NoError(t, err)
		got, err := r2.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})
}
