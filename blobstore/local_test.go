package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreLifecycle(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	data := []byte("hello world, this is a test blob")
	require.NoError(t, store.Put(ctx, "run/ri_2_df_in", data))
	require.NoError(t, store.Put(ctx, "run/ri_2_df_out", []byte("out")))
	require.NoError(t, store.Put(ctx, "other", []byte("x")))

	blob, err := store.Open(ctx, "run/ri_2_df_in")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
	require.NoError(t, blob.Close())

	got, err := ReadAll(ctx, store, "run/ri_2_df_in")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "run/")
	require.NoError(t, err)
	assert.Equal(t, []string{"run/ri_2_df_in", "run/ri_2_df_out"}, names)

	// overwrite
	require.NoError(t, store.Put(ctx, "run/ri_2_df_out", []byte("again")))
	got, err = ReadAll(ctx, store, "run/ri_2_df_out")
	require.NoError(t, err)
	assert.Equal(t, "again", string(got))

	require.NoError(t, store.Delete(ctx, "run/ri_2_df_in"))
	require.NoError(t, store.Delete(ctx, "run/ri_2_df_in"))
	_, err = store.Open(ctx, "run/ri_2_df_in")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	testStoreLifecycle(t, NewLocalStore(dir))

	// no temporary files left behind
	entries, err := os.ReadDir(filepath.Join(dir, "run"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), tempPrefix)
	}
}

func TestLocalStoreMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore(t *testing.T) {
	testStoreLifecycle(t, NewMemoryStore())
}

func TestReadAllEmpty(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "empty", nil))

	got, err := ReadAll(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}
