package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := NewLocal(dir)
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	return local, local.Root()
}

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

// TestNewLocal tests the Local backend constructor
func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		local, err := NewLocal(t.TempDir())
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(local.Root()))
	})

	t.Run("SymlinkedRoot", func(t *testing.T) {
		target := t.TempDir()
		writeFile(t, target, "a.txt", []byte("X"))
		link := filepath.Join(t.TempDir(), "link")
		require.NoError(t, os.Symlink(target, link))

		local, err := NewLocal(link)
		require.NoError(t, err)
		files, err := local.List(context.Background(), ".")
		require.NoError(t, err)

		var rels []string
		for _, f := range files {
			rels = append(rels, f.RelativePath)
		}
		assert.Contains(t, rels, "a.txt")
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		_, err := NewLocal(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := NewLocal(file)
		assert.Error(t, err)
	})
}

func TestLocalWalk(t *testing.T) {
	local, root := newTestLocal(t)
	writeFile(t, root, "a.txt", []byte("X"))
	writeFile(t, root, "sub/b.txt", []byte("Y"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	ctx := context.Background()

	t.Run("YieldsEveryEntryOnce", func(t *testing.T) {
		var files, dirs []string
		for info, err := range local.Walk(ctx, "") {
			require.NoError(t, err)
			if info.IsDir {
				dirs = append(dirs, filepath.ToSlash(info.RelativePath))
			} else if info.IsRegular {
				files = append(files, filepath.ToSlash(info.RelativePath))
			}
		}
		sort.Strings(files)
		sort.Strings(dirs)
		assert.Equal(t, []string{"a.txt", "sub/b.txt"}, files)
		assert.Equal(t, []string{".", "empty", "sub"}, dirs)
	})

	t.Run("StopsEarly", func(t *testing.T) {
		seen := 0
		for range local.Walk(ctx, "") {
			seen++
			if seen == 2 {
				break
			}
		}
		assert.Equal(t, 2, seen)
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		var gotErr error
		for _, err := range local.Walk(cancelled, "") {
			if err != nil {
				gotErr = err
			}
		}
		assert.ErrorIs(t, gotErr, context.Canceled)
	})
}

func TestLocalList(t *testing.T) {
	local, root := newTestLocal(t)
	writeFile(t, root, "a.txt", []byte("X"))
	writeFile(t, root, "sub/b.txt", []byte("Y"))

	files, err := local.List(context.Background(), "sub")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "sub", files[0].RelativePath)
	assert.Equal(t, filepath.Join("sub", "b.txt"), files[1].RelativePath)
	assert.Equal(t, int64(1), files[1].Size)
}

func TestLocalRead(t *testing.T) {
	local, root := newTestLocal(t)
	writeFile(t, root, "read.txt", []byte("content"))

	t.Run("ReadExistingFile", func(t *testing.T) {
		r, err := local.Read(context.Background(), "read.txt")
		require.NoError(t, err)
		defer r.Close()

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("ReadNonExistentFile", func(t *testing.T) {
		_, err := local.Read(context.Background(), "nope.txt")
		assert.Error(t, err)
	})
}

func TestLocalWrite(t *testing.T) {
	local, root := newTestLocal(t)
	ctx := context.Background()

	t.Run("WriteNewFile", func(t *testing.T) {
		content := []byte("new file")
		err := local.Write(ctx, "new.txt", bytes.NewReader(content), int64(len(content)), nil)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(root, "new.txt"))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("WriteCreatesLeafDirectory", func(t *testing.T) {
		content := []byte("leaf")
		err := local.Write(ctx, "leaf/file.txt", bytes.NewReader(content), int64(len(content)), nil)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(root, "leaf", "file.txt"))
	})

	t.Run("WriteWithMetadata", func(t *testing.T) {
		content := []byte("meta")
		modTime := time.Date(2020, 5, 17, 8, 0, 0, 0, time.UTC)
		meta := &FileInfo{ModTime: modTime, Permissions: 0600}

		err := local.Write(ctx, "meta.txt", bytes.NewReader(content), int64(len(content)), meta)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(root, "meta.txt"))
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(modTime))
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("RefusesToClobber", func(t *testing.T) {
		writeFile(t, root, "existing.txt", []byte("original"))

		content := []byte("replacement")
		err := local.Write(ctx, "existing.txt", bytes.NewReader(content), int64(len(content)), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrExist))

		data, err := os.ReadFile(filepath.Join(root, "existing.txt"))
		require.NoError(t, err)
		assert.Equal(t, "original", string(data))
	})

	t.Run("ShortReadLeavesNothing", func(t *testing.T) {
		err := local.Write(ctx, "short.txt", bytes.NewReader([]byte("abc")), 10, nil)
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(root, "short.txt"))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, IsTempFile(e.Name()), "temp file left behind: %s", e.Name())
		}
	})
}

func TestLocalReplace(t *testing.T) {
	local, root := newTestLocal(t)
	writeFile(t, root, "file.txt", []byte("old content"))

	content := []byte("new")
	err := local.Replace(context.Background(), "file.txt", bytes.NewReader(content), int64(len(content)), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocalExistsAndStat(t *testing.T) {
	local, root := newTestLocal(t)
	writeFile(t, root, "dir/file.txt", []byte("12345"))
	ctx := context.Background()

	exists, err := local.Exists(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = local.Exists(ctx, "dir/none.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	info, err := local.Stat(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.True(t, info.IsRegular)
	assert.Equal(t, filepath.Join("dir", "file.txt"), info.RelativePath)

	info, err = local.Stat(ctx, "dir")
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	_, err = local.Stat(ctx, "missing")
	assert.Error(t, err)
}

func TestLocalMkdirAll(t *testing.T) {
	local, root := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, local.MkdirAll(ctx, "a/b/c"))
	assert.DirExists(t, filepath.Join(root, "a", "b", "c"))

	// Existing directories are fine
	require.NoError(t, local.MkdirAll(ctx, "a/b"))
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, IsTempFile(".mediasync-tmp-123"))
	assert.True(t, IsTempFile("dir/.mediasync-tmp-abc"))
	assert.False(t, IsTempFile(".mediasync-tmp-"))
	assert.False(t, IsTempFile("file.txt"))
}

// TestBackendInterface verifies Local implements Backend
func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
}
