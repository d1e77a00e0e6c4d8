package diff

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_Offsets(t *testing.T) {
	changes := Diff([]byte("This is an old string..."), []byte("This is a new string...!"))

	assert.Equal(t, []ContentChange{
		Inserted{At: 9, NewContent: []byte(" ")},
		Deleted{At: 11, Upto: 15},
		Inserted{At: 11, NewContent: []byte("ew")},
		Inserted{At: 23, NewContent: []byte("!")},
	}, changes)
}

func TestDiff_Edges(t *testing.T) {
	t.Run("from empty", func(t *testing.T) {
		assert.Equal(t, []ContentChange{Inserted{At: 0, NewContent: []byte("abc")}}, Diff(nil, []byte("abc")))
	})

	t.Run("to empty", func(t *testing.T) {
		assert.Equal(t, []ContentChange{Deleted{At: 0, Upto: 3}}, Diff([]byte("abc"), nil))
	})

	t.Run("identical", func(t *testing.T) {
		assert.Empty(t, Diff([]byte("same"), []byte("same")))
		assert.Empty(t, Diff(nil, nil))
	})
}

func TestDiff_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
	}{
		{"append", "abc", "abcdef"},
		{"prepend", "def", "abcdef"},
		{"middle", "abXYef", "abZef"},
		{"repeated runs", "aaaabbbbaaaa", "aabbaabbaa"},
		{"disjoint", "0123456789", "abcdefghij"},
		{"swap halves", "hello world", "world hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyAll(Diff([]byte(tt.old), []byte(tt.new)), []byte(tt.old))
			require.NoError(t, err)
			assert.Equal(t, tt.new, string(got))
		})
	}
}

func TestDiff_RandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	random := func() []byte {
		b := make([]byte, rng.IntN(64))
		for i := range b {
			b[i] = "abc\n"[rng.IntN(4)]
		}
		return b
	}

	for i := 0; i < 200; i++ {
		old, new := random(), random()
		buffer := append([]byte{}, old...)

		got, err := ApplyAll(Diff(old, new), buffer)
		require.NoError(t, err)
		require.Equal(t, string(new), string(got), "old=%q", old)
	}
}

func TestDiffDeadline_Expired(t *testing.T) {
	old := []byte("abcXdef")
	new := []byte("abcYYdef")

	changes := DiffDeadline(old, new, time.Unix(1, 0))

	assert.Equal(t, []ContentChange{
		Deleted{At: 3, Upto: 4},
		Inserted{At: 3, NewContent: []byte("YY")},
	}, changes)

	got, err := ApplyAll(changes, old)
	require.NoError(t, err)
	assert.Equal(t, string(new), string(got))
}

func TestApply_OutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		change ContentChange
	}{
		{"insert past end", Inserted{At: 4, NewContent: []byte("x")}},
		{"insert negative", Inserted{At: -1}},
		{"delete past end", Deleted{At: 1, Upto: 9}},
		{"delete inverted", Deleted{At: 2, Upto: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.change.Apply([]byte("abc"))
			assert.True(t, errors.Is(err, ErrOutOfRange))
		})
	}

	_, err := ApplyAll([]ContentChange{Deleted{At: 0, Upto: 3}, Deleted{At: 0, Upto: 1}}, []byte("abc"))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestContentChange_JSON(t *testing.T) {
	script := []ContentChange{
		Inserted{At: 3, NewContent: []byte("hi")},
		Deleted{At: 1, Upto: 4},
		Inserted{At: 0, NewContent: []byte{}},
	}

	data, err := json.Marshal(script)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"inserted","at":3,"new_content":"aGk="},
		{"type":"deleted","at":1,"upto":4},
		{"type":"inserted","at":0}
	]`, string(data))

	decoded, err := UnmarshalScript(data)
	require.NoError(t, err)
	assert.Equal(t, script, decoded)

	t.Run("unknown type", func(t *testing.T) {
		_, err := UnmarshalChange([]byte(`{"type":"moved","at":1}`))
		assert.Error(t, err)
	})

	t.Run("deleted without upto", func(t *testing.T) {
		_, err := UnmarshalChange([]byte(`{"type":"deleted","at":1}`))
		assert.Error(t, err)
	})
}

func TestEngine_Diff(t *testing.T) {
	engine := NewEngine(3)

	t.Run("single line change", func(t *testing.T) {
		result, err := engine.Diff([]byte("a\nb\nc\n"), []byte("a\nB\nc\n"))
		require.NoError(t, err)

		require.Len(t, result.Hunks, 1)
		assert.Equal(t, 1, result.Stats.Additions)
		assert.Equal(t, 1, result.Stats.Deletions)
		assert.Equal(t, 2, result.Stats.Changes)
		assert.Equal(t, "@@ -1,3 +1,3 @@\n  a\n- b\n+ B\n  c\n", result.Format())
	})

	t.Run("no changes", func(t *testing.T) {
		result, err := engine.Diff([]byte("a\nb\n"), []byte("a\nb\n"))
		require.NoError(t, err)
		assert.Empty(t, result.Hunks)
		assert.Empty(t, result.Format())
	})

	t.Run("new file", func(t *testing.T) {
		result, err := engine.Diff(nil, []byte("x\ny\n"))
		require.NoError(t, err)
		assert.Equal(t, "@@ -1,0 +1,2 @@\n+ x\n+ y\n", result.Format())
	})

	t.Run("distant changes split hunks", func(t *testing.T) {
		old := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
		new := "one\n2\n3\n4\n5\n6\n7\n8\n9\nten\n"

		result, err := NewEngine(1).Diff([]byte(old), []byte(new))
		require.NoError(t, err)
		require.Len(t, result.Hunks, 2)
		assert.Equal(t, 1, result.Hunks[0].OldStart)
		assert.Equal(t, 9, result.Hunks[1].OldStart)
	})
}
