package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securecloudx/securecloudx/internal/common"
)

func TestLocalStore_PutGetRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("ciphertext bytes")

	require.NoError(t, store.Put(ctx, "files/abc", data))

	got, err := store.Get(ctx, "files/abc")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", []byte("old")))
	require.NoError(t, store.Put(ctx, "k", []byte("new")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestLocalStore_GetMissingKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLocalStore_RejectsTraversalKeys(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, store.Put(ctx, "../escape", []byte("x")))
	assert.Error(t, store.Put(ctx, "", []byte("x")))

	_, err = store.Get(ctx, "../escape")
	assert.Error(t, err)
}

func TestLocalStore_BlobFilesAreOwnerOnly(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "k", []byte("x")))

	fi, err := os.Stat(filepath.Join(root, "k"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}
