// Package shared holds the JSON bodies exchanged between the daemon and its clients.
package shared

import (
	"github.com/Melonai/ka/internal/diff"
)

type UpdateRequest struct {
	// Timestamp defaults to the daemon's clock when zero.
	Timestamp uint64 `json:"timestamp,omitempty"`
}

type ShiftRequest struct {
	Cursor *uint64 `json:"cursor" validate:"required"`
}

type Health struct {
	Status      string `json:"status"`
	Root        string `json:"root"`
	Initialized bool   `json:"initialized"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FileDiff struct {
	Path      string     `json:"path"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Hunks     []DiffHunk `json:"hunks"`
}

// DiffHunk represents a section of changes
type DiffHunk struct {
	OldStart int      `json:"old_start"`
	OldLines int      `json:"old_lines"`
	NewStart int      `json:"new_start"`
	NewLines int      `json:"new_lines"`
	Lines    []string `json:"lines"`
}

// NewFileDiff flattens r into rendered hunk lines prefixed "+ ", "- " or "  ".
func NewFileDiff(path string, r *diff.DiffResult) FileDiff {
	out := FileDiff{
		Path:      path,
		Additions: r.Stats.Additions,
		Deletions: r.Stats.Deletions,
		Hunks:     make([]DiffHunk, 0, len(r.Hunks)),
	}
	for _, h := range r.Hunks {
		hunk := DiffHunk{
			OldStart: h.OldStart,
			OldLines: h.OldLines,
			NewStart: h.NewStart,
			NewLines: h.NewLines,
			Lines:    make([]string, 0, len(h.Lines)),
		}
		for _, l := range h.Lines {
			prefix := "  "
			switch l.Type {
			case diff.Addition:
				prefix = "+ "
			case diff.Deletion:
				prefix = "- "
			}
			hunk.Lines = append(hunk.Lines, prefix+l.Content)
		}
		out.Hunks = append(out.Hunks, hunk)
	}
	return out
}
