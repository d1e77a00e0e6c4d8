package history

import (
	"encoding/json"
	"fmt"

	"github.com/Melonai/ka/internal/diff"
)

// Wire form of a FileChange:
//
//	{"change_index":3,"variant":{"type":"updated","changes":[...]}}
//	{"change_index":4,"variant":{"type":"deleted"}}

const (
	variantUpdated = "updated"
	variantDeleted = "deleted"
)

type fileChangeJSON struct {
	ChangeIndex uint64      `json:"change_index"`
	Variant     variantJSON `json:"variant"`
}

type variantJSON struct {
	Type    string          `json:"type"`
	Changes json.RawMessage `json:"changes,omitempty"`
}

func (c FileChange) MarshalJSON() ([]byte, error) {
	out := fileChangeJSON{ChangeIndex: c.ChangeIndex}

	switch v := c.Variant.(type) {
	case Updated:
		script := v.Changes
		if script == nil {
			script = []diff.ContentChange{}
		}
		raw, err := json.Marshal(script)
		if err != nil {
			return nil, err
		}
		out.Variant = variantJSON{Type: variantUpdated, Changes: raw}
	case Deleted:
		out.Variant = variantJSON{Type: variantDeleted}
	default:
		return nil, fmt.Errorf("unknown file change variant %T", c.Variant)
	}

	return json.Marshal(out)
}

func (c *FileChange) UnmarshalJSON(data []byte) error {
	var in fileChangeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	c.ChangeIndex = in.ChangeIndex
	switch in.Variant.Type {
	case variantUpdated:
		script, err := diff.UnmarshalScript(in.Variant.Changes)
		if err != nil {
			return fmt.Errorf("change index %d: %w", in.ChangeIndex, err)
		}
		c.Variant = Updated{Changes: script}
	case variantDeleted:
		c.Variant = Deleted{}
	default:
		return fmt.Errorf("change index %d: unknown variant %q", in.ChangeIndex, in.Variant.Type)
	}

	return nil
}
