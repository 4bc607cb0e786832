package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemLocal(t *testing.T) (*Local, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/mirror", 0755))
	local, err := NewLocalFs(mem, "/mirror")
	require.NoError(t, err)
	return local, mem
}

// ============== Constructor Tests ==============

func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		local, err := NewLocal(t.TempDir())
		require.NoError(t, err)
		require.NotNil(t, local)
		assert.NoError(t, local.Close())
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		_, err := NewLocalFs(afero.NewMemMapFs(), "/nonexistent")
		assert.Error(t, err)
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		mem := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(mem, "/file", []byte("x"), 0644))

		_, err := NewLocalFs(mem, "/file")
		assert.Error(t, err)
	})
}

// ============== Listing Tests ==============

func TestLocalReadDir(t *testing.T) {
	local, mem := newMemLocal(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(mem, "/mirror/orbit00100/b_v01.fits", []byte("b"), 0644))
	require.NoError(t, afero.WriteFile(mem, "/mirror/orbit00100/a_v01.fits", []byte("aa"), 0644))
	require.NoError(t, mem.MkdirAll("/mirror/orbit00200", 0755))

	t.Run("Root", func(t *testing.T) {
		entries, err := local.ReadDir(ctx, ".")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "orbit00100", entries[0].RelativePath)
		assert.True(t, entries[0].IsDir)
	})

	t.Run("SortedByName", func(t *testing.T) {
		entries, err := local.ReadDir(ctx, "orbit00100")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "/mirror/orbit00100/a_v01.fits", entries[0].Path)
		assert.Equal(t, int64(2), entries[0].Size)
		assert.Equal(t, filepath.Join("orbit00100", "b_v01.fits"), entries[1].RelativePath)
	})

	t.Run("AbsolutePathBelowRoot", func(t *testing.T) {
		entries, err := local.ReadDir(ctx, "/mirror/orbit00100")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		_, err := local.ReadDir(ctx, "orbit99900")
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := local.ReadDir(cctx, ".")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalList(t *testing.T) {
	local, mem := newMemLocal(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(mem, "/mirror/a.txt", []byte("a"), 0644))
	require.NoError(t, afero.WriteFile(mem, "/mirror/sub/b.txt", []byte("b"), 0644))
	require.NoError(t, afero.WriteFile(mem, "/mirror/"+StagingDir+"/leftover", []byte("x"), 0644))

	files, err := local.List(ctx, "")
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		rel = append(rel, f.RelativePath)
	}
	assert.ElementsMatch(t, []string{"a.txt", "sub", filepath.Join("sub", "b.txt")}, rel)
}

// ============== Read/Write Tests ==============

func TestLocalReadWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		local, _ := newMemLocal(t)
		content := []byte("spectral cube")

		require.NoError(t, local.Write(ctx, "orbit00100/a_v02.fits", bytes.NewReader(content), int64(len(content)), nil))

		rc, err := local.Read(ctx, "orbit00100/a_v02.fits")
		require.NoError(t, err)
		defer rc.Close()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		local, mem := newMemLocal(t)
		require.NoError(t, afero.WriteFile(mem, "/mirror/f", []byte("old content"), 0644))

		require.NoError(t, local.Write(ctx, "f", strings.NewReader("new"), -1, nil))

		got, err := afero.ReadFile(mem, "/mirror/f")
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("SizeMismatchLeavesNoFile", func(t *testing.T) {
		local, mem := newMemLocal(t)

		err := local.Write(ctx, "short", strings.NewReader("abc"), 10, nil)
		require.Error(t, err)

		ok, err := afero.Exists(mem, "/mirror/short")
		require.NoError(t, err)
		assert.False(t, ok)

		staged, err := afero.ReadDir(mem, "/mirror/"+StagingDir)
		require.NoError(t, err)
		assert.Empty(t, staged)
	})

	t.Run("PreservesMetadata", func(t *testing.T) {
		local, _ := newMemLocal(t)
		mtime := time.Date(2015, 3, 14, 12, 0, 0, 0, time.UTC)

		err := local.Write(ctx, "m", strings.NewReader("m"), 1, &FileInfo{ModTime: mtime, Permissions: 0600})
		require.NoError(t, err)

		info, err := local.Stat(ctx, "m")
		require.NoError(t, err)
		assert.True(t, info.ModTime.Equal(mtime))
		assert.Equal(t, uint32(0600), info.Permissions)
	})

	t.Run("ReadMissing", func(t *testing.T) {
		local, _ := newMemLocal(t)
		_, err := local.Read(ctx, "missing")
		assert.Error(t, err)
	})
}

// ============== Delete/Exists/Mkdir Tests ==============

func TestLocalDelete(t *testing.T) {
	ctx := context.Background()
	local, mem := newMemLocal(t)
	require.NoError(t, afero.WriteFile(mem, "/mirror/orbit00100/a_v01.fits", []byte("a"), 0644))

	require.NoError(t, local.Delete(ctx, "orbit00100/a_v01.fits"))

	ok, err := local.Exists(ctx, "orbit00100/a_v01.fits")
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("RefusesRoot", func(t *testing.T) {
		assert.Error(t, local.Delete(ctx, "."))
		assert.Error(t, local.Delete(ctx, "/mirror"))
	})
}

func TestLocalExistsAndMkdirAll(t *testing.T) {
	ctx := context.Background()
	local, _ := newMemLocal(t)

	ok, err := local.Exists(ctx, "a/b/c")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, local.MkdirAll(ctx, "a/b/c"))

	info, err := local.Stat(ctx, "a/b/c")
	require.NoError(t, err)
	assert.True(t, info.IsDir)
	assert.Equal(t, filepath.Join("a", "b", "c"), info.RelativePath)
}

func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
	var _ Source = (*SFTP)(nil)
}
