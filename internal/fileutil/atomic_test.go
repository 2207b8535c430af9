package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "preflop.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("As Ad 85.00\n"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("Ks Kd 82.00\n"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ks Kd 82.00\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not remain")
	assert.Equal(t, "preflop.txt", entries[0].Name())
}

func TestWriteFileAtomicFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteFileAtomic(filepath.Join(blocker, "child.txt"), []byte("data"), 0o644)
	assert.Error(t, err)

	data, err := os.ReadFile(blocker)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
