// internal/workspace/locations.go
package workspace

import (
	"path/filepath"
	"strings"

	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/Melonai/ka/internal/fs"
)

// DefaultMetaDir is the name of the metadata directory under a repository root.
const DefaultMetaDir = ".ka"

const (
	indexName = "index"
	filesName = "files"
)

// Locations derives every metadata path from the repository root.
type Locations struct {
	Root      string
	MetaDir   string
	FilesDir  string
	IndexPath string
}

// NewLocations returns the layout for root. An empty metaDir means DefaultMetaDir.
func NewLocations(root, metaDir string) Locations {
	if metaDir == "" {
		metaDir = DefaultMetaDir
	}
	root = filepath.Clean(root)
	meta := filepath.Join(root, metaDir)
	return Locations{
		Root:      root,
		MetaDir:   meta,
		FilesDir:  filepath.Join(meta, filesName),
		IndexPath: filepath.Join(meta, indexName),
	}
}

// Relative returns working as a slash separated path relative to the root.
func (l Locations) Relative(working string) (string, error) {
	return relative(l.Root, working)
}

// WorkingPath joins a root relative slash path onto the root.
func (l Locations) WorkingPath(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

// HistoryPath returns where the history of a root relative path is stored.
func (l Locations) HistoryPath(rel string) string {
	return filepath.Join(l.FilesDir, filepath.FromSlash(rel))
}

// HistoryFromWorking maps a working tree path to its history resource.
func (l Locations) HistoryFromWorking(working string) (string, error) {
	rel, err := relative(l.Root, working)
	if err != nil {
		return "", err
	}
	return l.HistoryPath(rel), nil
}

// WorkingFromHistory maps a history resource back to its working tree path.
func (l Locations) WorkingFromHistory(history string) (string, error) {
	rel, err := relative(l.FilesDir, history)
	if err != nil {
		return "", err
	}
	return l.WorkingPath(rel), nil
}

// InMeta reports whether path lies inside the metadata directory.
func (l Locations) InMeta(path string) bool {
	rel, err := filepath.Rel(l.MetaDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func relative(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", kaerrors.UnrelatedPath(target, base)
	}
	return filepath.ToSlash(rel), nil
}

// FindRoot searches upward from start for a directory holding metaDir.
func FindRoot(fsys fs.FS, start, metaDir string) (string, error) {
	if metaDir == "" {
		metaDir = DefaultMetaDir
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if fsys.Exists(filepath.Join(dir, metaDir)) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", kaerrors.NotFound("no repository found in " + start + " or any parent")
}
