package diff

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// DefaultTimeout bounds the alignment search performed by Diff.
const DefaultTimeout = 100 * time.Millisecond

var ErrOutOfRange = errors.New("change offset out of range")

// ContentChange is one step of an edit script. Offsets are only valid against
// the buffer produced by every earlier step of the same script.
type ContentChange interface {
	Apply(buffer []byte) ([]byte, error)
	contentChange()
}

// Inserted splices NewContent into the buffer at At.
type Inserted struct {
	At         int
	NewContent []byte
}

// Deleted removes the half-open range [At, Upto).
type Deleted struct {
	At   int
	Upto int
}

func (Inserted) contentChange() {}
func (Deleted) contentChange()  {}

func (c Inserted) Apply(buffer []byte) ([]byte, error) {
	if c.At < 0 || c.At > len(buffer) {
		return nil, fmt.Errorf("inserting at %d into %d bytes: %w", c.At, len(buffer), ErrOutOfRange)
	}
	return slices.Insert(buffer, c.At, c.NewContent...), nil
}

func (c Deleted) Apply(buffer []byte) ([]byte, error) {
	if c.At < 0 || c.At > c.Upto || c.Upto > len(buffer) {
		return nil, fmt.Errorf("deleting [%d,%d) from %d bytes: %w", c.At, c.Upto, len(buffer), ErrOutOfRange)
	}
	return slices.Delete(buffer, c.At, c.Upto), nil
}

// ApplyAll applies changes to buffer in order.
func ApplyAll(changes []ContentChange, buffer []byte) ([]byte, error) {
	var err error
	for i, change := range changes {
		buffer, err = change.Apply(buffer)
		if err != nil {
			return nil, fmt.Errorf("applying change %d: %w", i, err)
		}
	}
	return buffer, nil
}

// Diff returns the edit script turning old into new, giving up on an optimal
// alignment after DefaultTimeout.
func Diff(old, new []byte) []ContentChange {
	return DiffDeadline(old, new, time.Now().Add(DefaultTimeout))
}

// DiffTimeout is Diff with a caller-chosen search budget.
func DiffTimeout(old, new []byte, timeout time.Duration) []ContentChange {
	return DiffDeadline(old, new, time.Now().Add(timeout))
}

// DiffDeadline returns the edit script turning old into new. Past the deadline
// the script stays correct but may no longer be minimal.
func DiffDeadline(old, new []byte, deadline time.Time) []ContentChange {
	var changes []ContentChange
	at := 0

	for _, o := range alignment(old, new, deadline) {
		switch o.kind {
		case opEqual:
			at += o.oldLen
		case opDelete:
			changes = append(changes, Deleted{At: at, Upto: at + o.oldLen})
		case opInsert:
			changes = append(changes, Inserted{At: at, NewContent: clone(new[o.newIndex : o.newIndex+o.newLen])})
			at += o.newLen
		case opReplace:
			changes = append(changes,
				Deleted{At: at, Upto: at + o.oldLen},
				Inserted{At: at, NewContent: clone(new[o.newIndex : o.newIndex+o.newLen])},
			)
			at += o.newLen
		}
	}

	return changes
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}

// Wire form: {"type":"inserted","at":..,"new_content":..} or
// {"type":"deleted","at":..,"upto":..}.

const (
	typeInserted = "inserted"
	typeDeleted  = "deleted"
)

type envelope struct {
	Type       string `json:"type"`
	At         int    `json:"at"`
	Upto       *int   `json:"upto,omitempty"`
	NewContent []byte `json:"new_content,omitempty"`
}

func (c Inserted) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{Type: typeInserted, At: c.At, NewContent: c.NewContent})
}

func (c Deleted) MarshalJSON() ([]byte, error) {
	upto := c.Upto
	return json.Marshal(envelope{Type: typeDeleted, At: c.At, Upto: &upto})
}

// UnmarshalChange decodes one tagged ContentChange.
func UnmarshalChange(data []byte) (ContentChange, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}

	switch e.Type {
	case typeInserted:
		content := e.NewContent
		if content == nil {
			content = []byte{}
		}
		return Inserted{At: e.At, NewContent: content}, nil
	case typeDeleted:
		if e.Upto == nil {
			return nil, fmt.Errorf("deleted change at %d has no upto", e.At)
		}
		return Deleted{At: e.At, Upto: *e.Upto}, nil
	default:
		return nil, fmt.Errorf("unknown content change type %q", e.Type)
	}
}

// UnmarshalScript decodes a JSON array of tagged ContentChanges.
func UnmarshalScript(data []byte) ([]ContentChange, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	changes := make([]ContentChange, 0, len(raw))
	for i, r := range raw {
		change, err := UnmarshalChange(r)
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		changes = append(changes, change)
	}
	return changes, nil
}
