package repository

import (
	"fmt"
	"slices"

	"github.com/Melonai/ka/internal/diff"
	"github.com/Melonai/ka/internal/fs"
	"github.com/Melonai/ka/internal/history"
	"github.com/Melonai/ka/internal/workspace"

	"go.uber.org/zap"
)

// UpdateResult describes the batch recorded by Create or Update. AffectedFiles
// is empty and Cursor unchanged when nothing was recorded.
type UpdateResult struct {
	Cursor        uint64   `json:"cursor"`
	AffectedFiles []string `json:"affected_files"`
}

// ShiftResult lists the working files Shift wrote or deleted.
type ShiftResult struct {
	OldCursor uint64   `json:"old_cursor"`
	Cursor    uint64   `json:"cursor"`
	Touched   []string `json:"touched"`
}

// pending is a FileHistory that gained a change and still has to be written.
type pending struct {
	rel         string
	historyPath string
	history     *history.FileHistory
	kind        StatusKind
}

// plan decides, for every enumerated file, which change Update would append
// at cursor+1. Nothing is written.
func (r *Repository) plan(cursor uint64) ([]pending, error) {
	states, err := r.classifier.Enumerate()
	if err != nil {
		return nil, err
	}

	next := cursor + 1
	var out []pending

	for _, state := range states {
		rel, err := r.relativeOf(state)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Classified file", zap.String("path", rel), zap.String("state", fmt.Sprintf("%T", state)))

		switch s := state.(type) {
		case workspace.Deleted:
			h, _, err := r.readHistory(s.HistoryPath)
			if err != nil {
				return nil, err
			}
			if h.IsDeleted(cursor) {
				continue
			}
			h.AddChange(history.FileChange{ChangeIndex: next, Variant: history.Deleted{}})
			out = append(out, pending{rel: rel, historyPath: s.HistoryPath, history: h, kind: StatusDeleted})

		case workspace.Untracked:
			content, err := fs.ReadFile(r.fs, s.WorkingPath)
			if err != nil {
				return nil, err
			}
			historyPath, err := r.loc.HistoryFromWorking(s.WorkingPath)
			if err != nil {
				return nil, err
			}
			out = append(out, pending{rel: rel, historyPath: historyPath, history: history.NewFile(next, content), kind: StatusUntracked})

		case workspace.Tracked:
			h, raw, err := r.readHistory(s.HistoryPath)
			if err != nil {
				return nil, err
			}
			recorded, err := r.content(s.HistoryPath, h, raw, cursor)
			if err != nil {
				return nil, err
			}
			working, err := fs.ReadFile(r.fs, s.WorkingPath)
			if err != nil {
				return nil, err
			}

			changes := diff.DiffTimeout(recorded, working, r.timeout)
			if len(changes) == 0 {
				continue
			}

			kind := StatusModified
			if h.IsDeleted(cursor) {
				kind = StatusRestored
			}
			h.AddChange(history.FileChange{ChangeIndex: next, Variant: history.Updated{Changes: changes}})
			out = append(out, pending{rel: rel, historyPath: s.HistoryPath, history: h, kind: kind})
		}
	}

	return out, nil
}

// Update records every difference between the working tree and the content
// at the current cursor as one new version. When nothing differs no resource
// is written at all.
func (r *Repository) Update(timestamp uint64) (*UpdateResult, error) {
	idx, err := r.openIndex(true)
	if err != nil {
		return nil, fmt.Errorf("updating: %w", err)
	}
	defer idx.file.Close()

	cursor := idx.history.Cursor
	changes, err := r.plan(cursor)
	if err != nil {
		return nil, fmt.Errorf("updating: %w", err)
	}

	if len(changes) == 0 {
		r.logger.Info("Nothing to update", zap.Uint64("cursor", cursor))
		return &UpdateResult{Cursor: cursor, AffectedFiles: []string{}}, nil
	}

	affected := make([]string, 0, len(changes))
	for _, p := range changes {
		if err := r.writeHistory(p.historyPath, p.history); err != nil {
			return nil, fmt.Errorf("updating %s: %w", p.rel, err)
		}
		affected = append(affected, p.rel)
		r.logger.Debug("Recorded change", zap.String("path", p.rel), zap.String("kind", string(p.kind)))
	}

	// Deletions are enumerated after the working tree walk.
	slices.Sort(affected)

	idx.history.AddChange(history.RepositoryChange{AffectedFiles: affected, Timestamp: timestamp})
	idx.history.Cursor = cursor + 1
	if err := r.saveIndex(idx); err != nil {
		return nil, fmt.Errorf("updating: %w", err)
	}

	r.logger.Info("Updated repository",
		zap.Uint64("cursor", idx.history.Cursor),
		zap.Int("affected", len(affected)))

	return &UpdateResult{Cursor: idx.history.Cursor, AffectedFiles: affected}, nil
}

// Create resets the metadata directory, deleting any earlier history, writes an
// empty index and records the files already present as the first version.
func (r *Repository) Create(timestamp uint64) (*UpdateResult, error) {
	if r.fs.Exists(r.loc.MetaDir) {
		if err := r.fs.DeleteDir(r.loc.MetaDir); err != nil {
			return nil, fmt.Errorf("creating: %w", err)
		}
	}
	if err := r.fs.CreateDir(r.loc.FilesDir); err != nil {
		return nil, fmt.Errorf("creating: %w", err)
	}

	empty := &history.RepositoryHistory{Changes: []history.RepositoryChange{}}
	data, err := r.codec.Encode(empty)
	if err != nil {
		return nil, fmt.Errorf("creating: %w", err)
	}
	if err := fs.WriteFile(r.fs, r.loc.IndexPath, data); err != nil {
		return nil, fmt.Errorf("creating: %w", err)
	}

	r.logger.Info("Created repository", zap.String("meta", r.loc.MetaDir))
	return r.Update(timestamp)
}

// Shift moves the working tree to the version at cursor. The cursor is saved
// before any working file is touched; running Shift again with the same
// cursor completes an interrupted shift. Only files recorded in a change
// between the old and the new cursor are visited, and files without history
// are never touched.
func (r *Repository) Shift(cursor uint64) (*ShiftResult, error) {
	idx, err := r.openIndex(true)
	if err != nil {
		return nil, fmt.Errorf("shifting: %w", err)
	}
	defer idx.file.Close()

	old := idx.history.Cursor
	idx.history.Cursor = cursor
	if err := r.saveIndex(idx); err != nil {
		return nil, fmt.Errorf("shifting: %w", err)
	}

	result := &ShiftResult{OldCursor: old, Cursor: cursor, Touched: []string{}}

	for _, rel := range idx.history.AffectedBetween(old, cursor) {
		touched, err := r.materialize(rel, cursor)
		if err != nil {
			return nil, fmt.Errorf("shifting %s: %w", rel, err)
		}
		if touched {
			result.Touched = append(result.Touched, rel)
		}
	}

	r.logger.Info("Shifted repository",
		zap.Uint64("from", old),
		zap.Uint64("to", cursor),
		zap.Int("touched", len(result.Touched)))

	return result, nil
}

// materialize brings one working file to its state at cursor.
func (r *Repository) materialize(rel string, cursor uint64) (bool, error) {
	state, err := r.classifier.ClassifyRelative(rel)
	if err != nil {
		return false, err
	}

	var historyPath, workingPath string
	switch s := state.(type) {
	case workspace.Tracked:
		historyPath, workingPath = s.HistoryPath, s.WorkingPath
	case workspace.Deleted:
		historyPath, workingPath = s.HistoryPath, r.loc.WorkingPath(rel)
	default:
		return false, nil
	}

	h, raw, err := r.readHistory(historyPath)
	if err != nil {
		return false, err
	}

	if h.IsDeleted(cursor) {
		if !r.fs.Exists(workingPath) {
			return false, nil
		}
		r.logger.Debug("Deleting working file", zap.String("path", rel))
		return true, r.fs.DeleteFile(workingPath)
	}

	content, err := r.content(historyPath, h, raw, cursor)
	if err != nil {
		return false, err
	}
	r.logger.Debug("Writing working file", zap.String("path", rel), zap.Int("bytes", len(content)))
	return true, fs.WriteFile(r.fs, workingPath, content)
}
