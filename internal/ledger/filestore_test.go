package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_LoadMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "chain.json"))

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain", "chain.json")
	store := NewFileStore(path)

	l, err := Open(context.Background(), store)
	require.NoError(t, err)

	_, err = l.Append(context.Background(), issuePayload("file-1", "alice"))
	require.NoError(t, err)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, ActionGenesis, loaded[0].Data.Action)
	assert.Equal(t, ActionIssue, loaded[1].Data.Action)

	// The chain survives a full reopen with hashes intact.
	reloaded, err := Open(context.Background(), store)
	require.NoError(t, err)
	require.NoError(t, reloaded.Err())
	require.NoError(t, reloaded.Validate())
}

func TestFileStore_LoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_TamperedFileDetectedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	store := NewFileStore(path)

	l, err := Open(context.Background(), store)
	require.NoError(t, err)
	_, err = l.Append(context.Background(), issuePayload("file-1", "alice"))
	require.NoError(t, err)

	// Edit the persisted document without recomputing hashes.
	records, err := store.Load(context.Background())
	require.NoError(t, err)
	records[1].Data.OwnerID = "mallory"
	require.NoError(t, store.Save(context.Background(), records))

	reloaded, err := Open(context.Background(), store)
	require.NoError(t, err)

	var cve *ChainValidationError
	require.ErrorAs(t, reloaded.Err(), &cve)
	assert.Equal(t, 1, cve.Index)
}
