package history

import (
	"fmt"

	"github.com/Melonai/ka/internal/diff"
)

// NewFile returns a history for a path seen for the first time.
func NewFile(changeIndex uint64, content []byte) *FileHistory {
	h := &FileHistory{}
	h.AddChange(FileChange{
		ChangeIndex: changeIndex,
		Variant: Updated{Changes: []diff.ContentChange{
			diff.Inserted{At: 0, NewContent: append([]byte{}, content...)},
		}},
	})
	return h
}

// AddChange appends change to the log. Indexes need not be monotonic: an
// Update after a backward Shift appends a lower index after higher ones.
func (h *FileHistory) AddChange(change FileChange) {
	h.Changes = append(h.Changes, change)
}

// Content replays every change visible at cursor and returns the resulting
// bytes. A Deleted change resets the buffer to empty.
func (h *FileHistory) Content(cursor uint64) ([]byte, error) {
	buffer := []byte{}

	for i, change := range h.Changes {
		if change.ChangeIndex > cursor {
			continue
		}

		switch v := change.Variant.(type) {
		case Updated:
			next, err := diff.ApplyAll(v.Changes, buffer)
			if err != nil {
				return nil, fmt.Errorf("replaying change %d (index %d): %w", i, change.ChangeIndex, err)
			}
			buffer = next
		case Deleted:
			buffer = buffer[:0]
		default:
			return nil, fmt.Errorf("change %d has unknown variant %T", i, v)
		}
	}

	return buffer, nil
}

// IsDeleted reports whether the last change visible at cursor is a deletion.
func (h *FileHistory) IsDeleted(cursor uint64) bool {
	deleted := false
	for _, change := range h.Changes {
		if change.ChangeIndex > cursor {
			continue
		}
		_, deleted = change.Variant.(Deleted)
	}
	return deleted
}

// MaxIndex returns the largest change index in the log, or 0 for an empty
// history. Indexes are not monotonic once an Update follows a backward Shift,
// so this is not necessarily the last entry's index. Every cursor at or past
// MaxIndex reconstructs the same content.
func (h *FileHistory) MaxIndex() uint64 {
	var highest uint64
	for _, change := range h.Changes {
		highest = max(highest, change.ChangeIndex)
	}
	return highest
}
