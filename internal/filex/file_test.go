package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "a", "b")

	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "chain")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "chain")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o660))

	require.Error(t, EnsureDir(path), "should fail when a file exists with the same name")
}

func TestWriteFileAtomic_WritesContent(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "sub", "chain.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`[]`), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `[]`, string(got))
}

func TestWriteFileAtomic_ReplacesExistingContent(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "chain.json")

	require.NoError(t, WriteFileAtomic(path, []byte("old"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "chain.json")

	require.NoError(t, WriteFileAtomic(path, []byte("data"), 0o600))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the target file should remain")
}
