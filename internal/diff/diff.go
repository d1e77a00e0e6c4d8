// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
	"time"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType
	Content string
	OldNum  int
	NewNum  int
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// DiffResult contains the complete diff information
type DiffResult struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Engine renders line-oriented diffs for display. Stored history always uses
// the byte-level edit scripts from Diff.
type Engine struct {
	contextLines int
	timeout      time.Duration
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	return &Engine{
		contextLines: contextLines,
		timeout:      DefaultTimeout,
	}
}

// Diff generates a line-by-line diff between two contents
func (e *Engine) Diff(oldContent, newContent []byte) (*DiffResult, error) {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	lines := e.annotate(oldLines, newLines)

	result := &DiffResult{Hunks: e.group(lines)}
	for _, hunk := range result.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				result.Stats.Additions++
			case Deletion:
				result.Stats.Deletions++
			}
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions

	return result, nil
}

// annotatedLine keeps the position on both sides at which a line sits, so
// hunks can report their starts even when one side is empty.
type annotatedLine struct {
	Line
	oldPos int
	newPos int
}

func (e *Engine) annotate(oldLines, newLines []string) []annotatedLine {
	var out []annotatedLine
	oldPos, newPos := 1, 1

	emit := func(t LineType, content string) {
		l := annotatedLine{Line: Line{Type: t, Content: content}, oldPos: oldPos, newPos: newPos}
		switch t {
		case Context:
			l.OldNum, l.NewNum = oldPos, newPos
			oldPos++
			newPos++
		case Deletion:
			l.OldNum = oldPos
			oldPos++
		case Addition:
			l.NewNum = newPos
			newPos++
		}
		out = append(out, l)
	}

	for _, o := range alignment(oldLines, newLines, time.Now().Add(e.timeout)) {
		switch o.kind {
		case opEqual:
			for i := 0; i < o.oldLen; i++ {
				emit(Context, oldLines[o.oldIndex+i])
			}
		case opDelete:
			for i := 0; i < o.oldLen; i++ {
				emit(Deletion, oldLines[o.oldIndex+i])
			}
		case opInsert:
			for i := 0; i < o.newLen; i++ {
				emit(Addition, newLines[o.newIndex+i])
			}
		case opReplace:
			for i := 0; i < o.oldLen; i++ {
				emit(Deletion, oldLines[o.oldIndex+i])
			}
			for i := 0; i < o.newLen; i++ {
				emit(Addition, newLines[o.newIndex+i])
			}
		}
	}

	return out
}

// group cuts the annotated lines into hunks, keeping contextLines of
// unchanged lines around each change and merging hunks whose context overlaps.
func (e *Engine) group(lines []annotatedLine) []Hunk {
	var hunks []Hunk

	i := 0
	for i < len(lines) {
		if lines[i].Type == Context {
			i++
			continue
		}

		start := max(0, i-e.contextLines)
		end := i
		for end < len(lines) {
			if lines[end].Type != Context {
				end++
				continue
			}
			run := end
			for run < len(lines) && lines[run].Type == Context {
				run++
			}
			if run == len(lines) || run-end > 2*e.contextLines {
				end = min(len(lines), end+e.contextLines)
				break
			}
			end = run
		}

		hunk := Hunk{
			OldStart: lines[start].oldPos,
			NewStart: lines[start].newPos,
		}
		for _, l := range lines[start:end] {
			hunk.Lines = append(hunk.Lines, l.Line)
			if l.Type != Addition {
				hunk.OldLines++
			}
			if l.Type != Deletion {
				hunk.NewLines++
			}
		}
		hunks = append(hunks, hunk)
		i = end
	}

	return hunks
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	parts := bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(p)
	}
	return lines
}

// Format returns a string representation of the diff
func (r *DiffResult) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+ ")
			case Deletion:
				buf.WriteString("- ")
			case Context:
				buf.WriteString("  ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
