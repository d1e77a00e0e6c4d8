package fs

import (
	iofs "io/fs"
	"path/filepath"
	"testing"

	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// implementations runs fn against both filesystems, rooted at a fresh directory.
func implementations(t *testing.T, fn func(t *testing.T, fsys FS, root string)) {
	t.Run("os", func(t *testing.T) {
		fn(t, NewOSFS(), t.TempDir())
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryFS(DirNode("/work")), "/work")
	})
}

func TestFS_CreateReadWrite(t *testing.T) {
	implementations(t, func(t *testing.T, fsys FS, root string) {
		p := filepath.Join(root, "a", "b", "file.txt")

		require.NoError(t, WriteFile(fsys, p, []byte("hello world")))
		assert.True(t, fsys.Exists(filepath.Join(root, "a", "b")))

		data, err := ReadFile(fsys, p)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(data))

		// WriteAll truncates before writing.
		require.NoError(t, WriteFile(fsys, p, []byte("short")))
		data, err = ReadFile(fsys, p)
		require.NoError(t, err)
		assert.Equal(t, "short", string(data))
	})
}

func TestFS_CreateKeepsContent(t *testing.T) {
	implementations(t, func(t *testing.T, fsys FS, root string) {
		p := filepath.Join(root, "keep")
		require.NoError(t, WriteFile(fsys, p, []byte("kept")))

		f, err := fsys.CreateFile(p)
		require.NoError(t, err)
		data, err := fsys.ReadAll(f)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		assert.Equal(t, "kept", string(data))
	})
}

func TestFS_ReadDir(t *testing.T) {
	implementations(t, func(t *testing.T, fsys FS, root string) {
		require.NoError(t, WriteFile(fsys, filepath.Join(root, "zeta"), nil))
		require.NoError(t, WriteFile(fsys, filepath.Join(root, "alpha"), nil))
		require.NoError(t, WriteFile(fsys, filepath.Join(root, "mid", "nested"), nil))
		require.NoError(t, fsys.CreateDir(filepath.Join(root, "empty")))

		entries, err := fsys.ReadDir(root)
		require.NoError(t, err)
		assert.Equal(t, []Entry{
			{Name: "alpha"},
			{Name: "empty", IsDir: true},
			{Name: "mid", IsDir: true},
			{Name: "zeta"},
		}, entries)
	})
}

func TestFS_Delete(t *testing.T) {
	implementations(t, func(t *testing.T, fsys FS, root string) {
		file := filepath.Join(root, "d", "f")
		require.NoError(t, WriteFile(fsys, file, []byte("x")))
		require.NoError(t, WriteFile(fsys, filepath.Join(root, "d", "sub", "g"), []byte("y")))

		require.NoError(t, fsys.DeleteFile(file))
		assert.False(t, fsys.Exists(file))

		err := fsys.DeleteFile(file)
		assert.True(t, kaerrors.IsType(err, kaerrors.ErrorTypeIO))
		assert.ErrorIs(t, err, iofs.ErrNotExist)

		require.NoError(t, fsys.DeleteDir(filepath.Join(root, "d")))
		assert.False(t, fsys.Exists(filepath.Join(root, "d", "sub", "g")))
		assert.False(t, fsys.Exists(filepath.Join(root, "d")))
		assert.True(t, fsys.Exists(root))
	})
}

func TestFS_OpenMissing(t *testing.T) {
	implementations(t, func(t *testing.T, fsys FS, root string) {
		_, err := fsys.OpenFile(filepath.Join(root, "missing"))
		assert.ErrorIs(t, err, iofs.ErrNotExist)

		_, err = fsys.OpenWritable(filepath.Join(root, "missing"))
		assert.ErrorIs(t, err, iofs.ErrNotExist)

		_, err = fsys.ReadDir(filepath.Join(root, "missing"))
		assert.ErrorIs(t, err, iofs.ErrNotExist)
	})
}

func TestMemoryFS_ReadOnlyHandle(t *testing.T) {
	m := NewMemoryFS(FileNode("/f", []byte("x")))

	f, err := m.OpenFile("/f")
	require.NoError(t, err)
	assert.ErrorIs(t, m.WriteAll(f, []byte("y")), iofs.ErrPermission)

	require.NoError(t, f.Close())
	_, err = m.ReadAll(f)
	assert.ErrorIs(t, err, iofs.ErrClosed)
}

func TestMemoryFS_Tree(t *testing.T) {
	m := NewMemoryFS(
		FileNode("/repo/b", []byte("2")),
		FileNode("repo/a", []byte("1")),
		DirNode("/repo/empty"),
	)

	assert.Equal(t, []Node{
		{Path: "/repo", IsDir: true},
		{Path: "/repo/a", Data: []byte("1")},
		{Path: "/repo/b", Data: []byte("2")},
		{Path: "/repo/empty", IsDir: true},
	}, m.Tree())

	assert.Error(t, m.CreateDir("/repo/a/below-file"))
	_, err := m.CreateFile("/repo/empty")
	assert.Error(t, err)
}
