package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeSuite exercises the Store contract against any implementation.
func storeSuite(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// Missing blobs.
	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "missing"))

	// Put / Open / ReadAll round trip.
	payload := []byte("hello, blob")
	require.NoError(t, store.Put(ctx, "dir/a", payload))

	got, err := ReadAll(ctx, store, "dir/a")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Range reads.
	blob, err := store.Open(ctx, "dir/a")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), blob.Size())

	rc, err := blob.ReadRange(ctx, 7, 4)
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = rc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "blob", string(buf))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	// Streaming create.
	w, err := store.Create(ctx, "dir/b")
	require.NoError(t, err)
	_, err = w.Write([]byte("part1-"))
	require.NoError(t, err)
	_, err = w.Write([]byte("part2"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err = ReadAll(ctx, store, "dir/b")
	require.NoError(t, err)
	assert.Equal(t, "part1-part2", string(got))

	// Listing.
	require.NoError(t, store.Put(ctx, "other/c", []byte("x")))
	names, err := store.List(ctx, "dir/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/a", "dir/b"}, names)

	// Delete.
	require.NoError(t, store.Delete(ctx, "dir/a"))
	_, err = store.Open(ctx, "dir/a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeSuite(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	storeSuite(t, store)
}

func TestMemoryStore_OpenIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "a", []byte("v1")))
	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer blob.Close() //nolint:errcheck // test cleanup

	// Overwriting after Open must not change the open handle.
	require.NoError(t, store.Put(ctx, "a", []byte("v2")))

	buf := make([]byte, 2)
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(buf))
}
