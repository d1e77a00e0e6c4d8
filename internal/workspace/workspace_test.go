package workspace

import (
	"testing"

	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/Melonai/ka/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocations(t *testing.T) {
	loc := NewLocations("/repo/", "")

	assert.Equal(t, "/repo", loc.Root)
	assert.Equal(t, "/repo/.ka", loc.MetaDir)
	assert.Equal(t, "/repo/.ka/files", loc.FilesDir)
	assert.Equal(t, "/repo/.ka/index", loc.IndexPath)

	t.Run("round trip", func(t *testing.T) {
		history, err := loc.HistoryFromWorking("/repo/src/main.go")
		require.NoError(t, err)
		assert.Equal(t, "/repo/.ka/files/src/main.go", history)

		working, err := loc.WorkingFromHistory(history)
		require.NoError(t, err)
		assert.Equal(t, "/repo/src/main.go", working)

		rel, err := loc.Relative(working)
		require.NoError(t, err)
		assert.Equal(t, "src/main.go", rel)
	})

	t.Run("unrelated", func(t *testing.T) {
		for _, p := range []string{"/elsewhere/file", "/repo", "/repository/file"} {
			_, err := loc.HistoryFromWorking(p)
			assert.True(t, kaerrors.IsType(err, kaerrors.ErrorTypeUnrelatedPath), p)
		}

		_, err := loc.WorkingFromHistory("/repo/src/main.go")
		assert.True(t, kaerrors.IsType(err, kaerrors.ErrorTypeUnrelatedPath))
	})

	t.Run("in meta", func(t *testing.T) {
		assert.True(t, loc.InMeta("/repo/.ka"))
		assert.True(t, loc.InMeta("/repo/.ka/files/x"))
		assert.False(t, loc.InMeta("/repo/.kafile"))
		assert.False(t, loc.InMeta("/repo/x"))
	})

	t.Run("custom meta dir", func(t *testing.T) {
		assert.Equal(t, "/repo/.history/index", NewLocations("/repo", ".history").IndexPath)
	})
}

func TestClassifier_Enumerate(t *testing.T) {
	m := fs.NewMemoryFS(
		fs.FileNode("/repo/tracked", []byte("1")),
		fs.FileNode("/repo/new", []byte("2")),
		fs.FileNode("/repo/dir/nested", []byte("3")),
		fs.FileNode("/repo/.ka/index", []byte("{}")),
		fs.FileNode("/repo/.ka/files/tracked", []byte("{}")),
		fs.FileNode("/repo/.ka/files/dir/nested", []byte("{}")),
		fs.FileNode("/repo/.ka/files/gone/file", []byte("{}")),
	)
	c := NewClassifier(m, NewLocations("/repo", ""))

	states, err := c.Enumerate()
	require.NoError(t, err)

	assert.Equal(t, []FileState{
		Tracked{WorkingPath: "/repo/dir/nested", HistoryPath: "/repo/.ka/files/dir/nested"},
		Untracked{WorkingPath: "/repo/new"},
		Tracked{WorkingPath: "/repo/tracked", HistoryPath: "/repo/.ka/files/tracked"},
		Deleted{HistoryPath: "/repo/.ka/files/gone/file"},
	}, states)
}

func TestClassifier_Classify(t *testing.T) {
	m := fs.NewMemoryFS(
		fs.FileNode("/repo/a", []byte("1")),
		fs.FileNode("/repo/.ka/files/a", []byte("{}")),
		fs.FileNode("/repo/.ka/files/b", []byte("{}")),
		fs.FileNode("/repo/c", []byte("3")),
	)
	c := NewClassifier(m, NewLocations("/repo", ""))

	tests := []struct {
		rel  string
		want FileState
	}{
		{"a", Tracked{WorkingPath: "/repo/a", HistoryPath: "/repo/.ka/files/a"}},
		{"b", Deleted{HistoryPath: "/repo/.ka/files/b"}},
		{"c", Untracked{WorkingPath: "/repo/c"}},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, err := c.ClassifyRelative(tt.rel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifier_EnumerateWithoutMetadata(t *testing.T) {
	m := fs.NewMemoryFS(fs.FileNode("/repo/a", []byte("1")))
	c := NewClassifier(m, NewLocations("/repo", ""))

	_, err := c.Enumerate()
	assert.True(t, kaerrors.IsType(err, kaerrors.ErrorTypeIO))
}

func TestFindRoot(t *testing.T) {
	m := fs.NewMemoryFS(
		fs.DirNode("/home/user/project/.ka"),
		fs.DirNode("/home/user/project/src/pkg"),
	)

	root, err := FindRoot(m, "/home/user/project/src/pkg", "")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/project", root)

	_, err = FindRoot(m, "/home/user", "")
	assert.True(t, kaerrors.IsType(err, kaerrors.ErrorTypeNotFound))
}
