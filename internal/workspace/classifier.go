package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/Melonai/ka/internal/fs"
)

// FileState is one of Tracked, Untracked or Deleted.
type FileState interface {
	fileState()
}

// Tracked files exist in the working tree and have a history.
type Tracked struct {
	WorkingPath string
	HistoryPath string
}

// Untracked files exist in the working tree only.
type Untracked struct {
	WorkingPath string
}

// Deleted files have a history but no working file.
type Deleted struct {
	HistoryPath string
}

func (Tracked) fileState()   {}
func (Untracked) fileState() {}
func (Deleted) fileState()   {}

// Classifier resolves paths to FileStates by checking both trees.
type Classifier struct {
	fs  fs.FS
	loc Locations
}

func NewClassifier(fsys fs.FS, loc Locations) *Classifier {
	return &Classifier{fs: fsys, loc: loc}
}

// ClassifyWorking classifies a path of the working tree.
func (c *Classifier) ClassifyWorking(working string) (FileState, error) {
	history, err := c.loc.HistoryFromWorking(working)
	if err != nil {
		return nil, err
	}
	if !c.fs.Exists(history) {
		return Untracked{WorkingPath: working}, nil
	}
	return Tracked{WorkingPath: working, HistoryPath: history}, nil
}

// ClassifyHistory classifies a path of the history file store.
func (c *Classifier) ClassifyHistory(history string) (FileState, error) {
	working, err := c.loc.WorkingFromHistory(history)
	if err != nil {
		return nil, err
	}
	if !c.fs.Exists(working) {
		return Deleted{HistoryPath: history}, nil
	}
	return Tracked{WorkingPath: working, HistoryPath: history}, nil
}

// ClassifyRelative classifies a root relative slash path from either side.
func (c *Classifier) ClassifyRelative(rel string) (FileState, error) {
	working := c.loc.WorkingPath(rel)
	if c.fs.Exists(working) {
		return c.ClassifyWorking(working)
	}
	return c.ClassifyHistory(c.loc.HistoryPath(rel))
}

// Enumerate returns the state of every file in the repository: each working
// file (outside the metadata directory) plus each history whose working file
// is gone. Both walks visit entries in name order and stop at the first error.
func (c *Classifier) Enumerate() ([]FileState, error) {
	var states []FileState

	err := c.walk(c.loc.Root, func(path string) error {
		state, err := c.ClassifyWorking(path)
		if err != nil {
			return err
		}
		states = append(states, state)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking working tree: %w", err)
	}

	err = c.walk(c.loc.FilesDir, func(path string) error {
		state, err := c.ClassifyHistory(path)
		if err != nil {
			return err
		}
		if deleted, ok := state.(Deleted); ok {
			states = append(states, deleted)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking history: %w", err)
	}

	return states, nil
}

func (c *Classifier) walk(dir string, visit func(path string) error) error {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name)
		if path == c.loc.MetaDir {
			continue
		}
		if e.IsDir {
			if err := c.walk(path, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(path); err != nil {
			return err
		}
	}

	return nil
}
