package crdt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertUpdate(origin string, seq, clock uint64, pos int, text string) Update {
	return Update{
		Origin: origin,
		Seq:    seq,
		Clock:  clock,
		Ops:    []Op{{Kind: OpInsert, Pos: pos, Text: text}},
	}
}

func deleteUpdate(origin string, seq, clock uint64, pos, length int) Update {
	return Update{
		Origin: origin,
		Seq:    seq,
		Clock:  clock,
		Ops:    []Op{{Kind: OpDelete, Pos: pos, Len: length}},
	}
}

func TestDocumentApply(t *testing.T) {
	doc := NewDocument()

	fresh, err := doc.Apply(insertUpdate("conn-1", 1, 1, 0, "hello"))
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "hello", doc.Text())
	assert.Equal(t, 1, doc.UpdateCount())
}

func TestDocumentApplyDuplicateIsNoOp(t *testing.T) {
	doc := NewDocument()
	u := insertUpdate("conn-1", 1, 1, 0, "hello")

	fresh, err := doc.Apply(u)
	require.NoError(t, err)
	assert.True(t, fresh)

	// same (origin, seq) again
	fresh, err = doc.Apply(u)
	require.NoError(t, err)
	assert.False(t, fresh)

	assert.Equal(t, 1, doc.UpdateCount())
	assert.Equal(t, "hello", doc.Text())
}

func TestDocumentApplyRejectsInvalid(t *testing.T) {
	doc := NewDocument()

	_, err := doc.Apply(Update{Origin: "", Seq: 1, Ops: []Op{{Kind: OpInsert, Text: "x"}}})
	assert.ErrorIs(t, err, ErrEmptyOrigin)

	_, err = doc.Apply(Update{Origin: "conn-1", Seq: 0, Ops: []Op{{Kind: OpInsert, Text: "x"}}})
	assert.ErrorIs(t, err, ErrZeroSequence)

	_, err = doc.Apply(Update{Origin: "conn-1", Seq: 1})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = doc.Apply(Update{Origin: "conn-1", Seq: 1, Ops: []Op{{Kind: "move", Pos: 0}}})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	// rejected updates are never stored
	assert.Equal(t, 0, doc.UpdateCount())
}

func TestDocumentConvergesUnderReordering(t *testing.T) {
	updates := []Update{
		insertUpdate("conn-1", 1, 1, 0, "hello"),
		insertUpdate("conn-2", 1, 2, 5, " world"),
		deleteUpdate("conn-1", 2, 3, 0, 1),
		insertUpdate("conn-2", 2, 4, 0, "H"),
		insertUpdate("conn-3", 1, 5, 10, "!"),
	}

	reference := NewDocument()
	_, err := reference.ApplyAll(updates)
	require.NoError(t, err)
	want := reference.Text()

	// every delivery order must produce identical text
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]Update, len(updates))
		copy(shuffled, updates)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		doc := NewDocument()
		_, err := doc.ApplyAll(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, doc.Text())
	}
}

func TestDocumentConvergesUnderRedelivery(t *testing.T) {
	updates := []Update{
		insertUpdate("conn-1", 1, 1, 0, "abc"),
		insertUpdate("conn-2", 1, 2, 3, "def"),
	}

	doc := NewDocument()
	_, err := doc.ApplyAll(updates)
	require.NoError(t, err)
	want := doc.Text()

	// redeliver everything twice more
	_, err = doc.ApplyAll(updates)
	require.NoError(t, err)
	_, err = doc.ApplyAll(updates)
	require.NoError(t, err)

	assert.Equal(t, want, doc.Text())
	assert.Equal(t, 2, doc.UpdateCount())
}

func TestDocumentStateVector(t *testing.T) {
	doc := NewDocument()

	_, err := doc.ApplyAll([]Update{
		insertUpdate("conn-1", 1, 1, 0, "a"),
		insertUpdate("conn-1", 2, 2, 1, "b"),
		insertUpdate("conn-2", 1, 3, 2, "c"),
	})
	require.NoError(t, err)

	vector := doc.StateVector()
	assert.Equal(t, uint64(2), vector["conn-1"])
	assert.Equal(t, uint64(1), vector["conn-2"])
}

func TestDocumentDiff(t *testing.T) {
	doc := NewDocument()

	_, err := doc.ApplyAll([]Update{
		insertUpdate("conn-1", 1, 1, 0, "a"),
		insertUpdate("conn-1", 2, 2, 1, "b"),
		insertUpdate("conn-2", 1, 3, 2, "c"),
	})
	require.NoError(t, err)

	// remote has seen conn-1 up to seq 1 and nothing from conn-2
	missing := doc.Diff(StateVector{"conn-1": 1})
	require.Len(t, missing, 2)
	assert.Equal(t, "conn-1", missing[0].Origin)
	assert.Equal(t, uint64(2), missing[0].Seq)
	assert.Equal(t, "conn-2", missing[1].Origin)

	// remote fully caught up
	assert.Empty(t, doc.Diff(doc.StateVector()))

	// empty vector gets everything
	assert.Len(t, doc.Diff(nil), 3)
}

func TestDocumentTextClampsPositions(t *testing.T) {
	doc := NewDocument()

	_, err := doc.ApplyAll([]Update{
		insertUpdate("conn-1", 1, 1, 100, "tail"), // clamps to end of empty text
		deleteUpdate("conn-1", 2, 2, 2, 50),       // delete range clamps to end
	})
	require.NoError(t, err)

	assert.Equal(t, "ta", doc.Text())
}

func TestDocumentNextClock(t *testing.T) {
	doc := NewDocument()

	first := doc.NextClock()
	second := doc.NextClock()
	assert.Greater(t, second, first)

	// merging a remote update with a higher clock advances the local clock
	_, err := doc.Apply(insertUpdate("conn-9", 1, 100, 0, "x"))
	require.NoError(t, err)
	assert.Greater(t, doc.NextClock(), uint64(100))
}

func TestDocumentApplyAllStopsOnInvalid(t *testing.T) {
	doc := NewDocument()

	applied, err := doc.ApplyAll([]Update{
		insertUpdate("conn-1", 1, 1, 0, "a"),
		{Origin: "", Seq: 2},
		insertUpdate("conn-1", 3, 3, 0, "c"),
	})

	assert.Error(t, err)
	assert.Equal(t, 1, applied)
}
