// Package history holds the append-only logs behind a repository: one
// RepositoryHistory per repository and one FileHistory per tracked path.
package history

import "github.com/Melonai/ka/internal/diff"

// RepositoryHistory is the repository index. Cursor selects the version the
// working tree currently reflects; it may point past the end of Changes.
type RepositoryHistory struct {
	Cursor  uint64             `json:"cursor"`
	Changes []RepositoryChange `json:"changes"`
}

// RepositoryChange records one Update batch. AffectedFiles holds the sorted,
// root-relative slash paths that received a FileChange in that batch.
type RepositoryChange struct {
	AffectedFiles []string `json:"affected_files"`
	Timestamp     uint64   `json:"timestamp"`
}

// FileHistory is the per-path change log.
type FileHistory struct {
	Changes []FileChange `json:"changes"`
}

// FileChange is one entry of a FileHistory. ChangeIndex is the repository
// cursor value the change became visible at.
type FileChange struct {
	ChangeIndex uint64
	Variant     Variant
}

// Variant is either Updated or Deleted.
type Variant interface {
	variant()
}

// Updated carries the edit script turning the previous content into the new one.
type Updated struct {
	Changes []diff.ContentChange
}

// Deleted marks the file as removed; later Updated changes start from empty.
type Deleted struct{}

func (Updated) variant() {}
func (Deleted) variant() {}
