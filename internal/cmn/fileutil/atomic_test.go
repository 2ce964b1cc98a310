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

	t.Run("writes content with the given permissions", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "license")

		require.NoError(t, WriteFileAtomic(path, []byte("blob"), 0600))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "blob", string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("replaces existing content and leaves no temp files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "license")
		require.NoError(t, WriteFileAtomic(path, []byte("old"), 0600))
		require.NoError(t, WriteFileAtomic(path, []byte("new"), 0600))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("fails when the directory does not exist", func(t *testing.T) {
		t.Parallel()

		err := WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "license"), []byte("x"), 0600)
		assert.Error(t, err)
	})
}

func TestCheckWritableDir(t *testing.T) {
	t.Parallel()

	t.Run("creates missing directories and cleans up the probe", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "a", "b")
		require.NoError(t, CheckWritableDir(dir, 0700))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("fails when a parent is a regular file", func(t *testing.T) {
		t.Parallel()

		parent := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(parent, []byte("x"), 0600))

		assert.Error(t, CheckWritableDir(filepath.Join(parent, "dir"), 0700))
	})

	t.Run("fails for a read-only directory", func(t *testing.T) {
		t.Parallel()
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}

		dir := filepath.Join(t.TempDir(), "ro")
		require.NoError(t, os.Mkdir(dir, 0500))
		t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

		assert.Error(t, CheckWritableDir(dir, 0700))
	})
}
