package repository

import (
	"fmt"
	"sort"

	"github.com/Melonai/ka/internal/diff"
	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/Melonai/ka/internal/fs"
	"github.com/Melonai/ka/internal/history"
)

// StatusKind is the change Update would record for a path.
type StatusKind string

const (
	StatusUntracked StatusKind = "untracked"
	StatusModified  StatusKind = "modified"
	StatusDeleted   StatusKind = "deleted"
	// StatusRestored marks a working file that is back after being recorded as deleted.
	StatusRestored StatusKind = "restored"
)

type StatusEntry struct {
	Path string     `json:"path"`
	Kind StatusKind `json:"kind"`
}

// Status reports what Update would record now, in path order.
func (r *Repository) Status() ([]StatusEntry, error) {
	idx, err := r.openIndex(false)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	defer idx.file.Close()

	changes, err := r.plan(idx.history.Cursor)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	entries := make([]StatusEntry, 0, len(changes))
	for _, p := range changes {
		entries = append(entries, StatusEntry{Path: p.rel, Kind: p.kind})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Log returns the repository index.
func (r *Repository) Log() (*history.RepositoryHistory, error) {
	idx, err := r.openIndex(false)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer idx.file.Close()
	return idx.history, nil
}

// FileVersion is the recorded state of one file at one cursor.
type FileVersion struct {
	Path    string `json:"path"`
	Cursor  uint64 `json:"cursor"`
	Deleted bool   `json:"deleted"`
	Content []byte `json:"content"`
}

// Show reconstructs rel, a root relative slash path, at cursor.
func (r *Repository) Show(rel string, cursor uint64) (*FileVersion, error) {
	historyPath := r.loc.HistoryPath(rel)
	if !r.fs.Exists(historyPath) {
		return nil, kaerrors.NotFound(fmt.Sprintf("no history for %s", rel))
	}

	h, raw, err := r.readHistory(historyPath)
	if err != nil {
		return nil, fmt.Errorf("showing %s: %w", rel, err)
	}

	version := &FileVersion{Path: rel, Cursor: cursor, Deleted: h.IsDeleted(cursor), Content: []byte{}}
	if version.Deleted {
		return version, nil
	}

	version.Content, err = r.content(historyPath, h, raw, cursor)
	if err != nil {
		return nil, fmt.Errorf("showing %s: %w", rel, err)
	}
	return version, nil
}

// Diff compares the content of rel at the current cursor with its working file.
// A missing working file or history reads as empty.
func (r *Repository) Diff(rel string) (*diff.DiffResult, error) {
	idx, err := r.openIndex(false)
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", rel, err)
	}
	defer idx.file.Close()

	recorded := []byte{}
	if r.fs.Exists(r.loc.HistoryPath(rel)) {
		version, err := r.Show(rel, idx.history.Cursor)
		if err != nil {
			return nil, err
		}
		recorded = version.Content
	}

	working := []byte{}
	if path := r.loc.WorkingPath(rel); r.fs.Exists(path) {
		working, err = fs.ReadFile(r.fs, path)
		if err != nil {
			return nil, fmt.Errorf("diffing %s: %w", rel, err)
		}
	}

	return diff.NewEngine(3).Diff(recorded, working)
}
