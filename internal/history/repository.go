package history

import "github.com/Melonai/ka/shared/utils"

// AddChange appends change to the log. The cursor is left to the caller.
func (h *RepositoryHistory) AddChange(change RepositoryChange) {
	h.Changes = append(h.Changes, change)
}

// AffectedBetween returns the sorted union of AffectedFiles over change
// positions [min(a,b), max(a,b)). Positions past the end of the log are
// ignored, so any pair of cursors is valid.
func (h *RepositoryHistory) AffectedBetween(a, b uint64) []string {
	lo, hi := min(a, b), max(a, b)
	hi = min(hi, uint64(len(h.Changes)))
	if lo >= hi {
		return nil
	}

	seen := make(map[string]struct{})
	for _, change := range h.Changes[lo:hi] {
		for _, path := range change.AffectedFiles {
			seen[path] = struct{}{}
		}
	}
	return utils.SortedKeys(seen)
}
