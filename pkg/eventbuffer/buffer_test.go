package eventbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(i int64) Value { return Value{Group: 2, Variation: 1, Int: i} }

func TestUpdateDeduplicatesEqualPendingValue(t *testing.T) {
	b := New(map[Class]int{Class1: 4})
	assert.True(t, b.Update(1, Class1, v(10)))
	assert.False(t, b.Update(1, Class1, v(10)))
	assert.Equal(t, 1, b.Size(Class1))
}

func TestUpdateDoesNotCoalesceDifferentValue(t *testing.T) {
	b := New(map[Class]int{Class1: 4})
	b.Update(1, Class1, v(10))
	assert.True(t, b.Update(1, Class1, v(11)))
	assert.Equal(t, 2, b.Size(Class1))
}

func TestSelectMarksOldestPendingUpToMax(t *testing.T) {
	b := New(map[Class]int{Class1: 8})
	b.Update(1, Class1, v(1))
	b.Update(2, Class1, v(2))
	b.Update(3, Class1, v(3))

	n := b.Select(Class1, 2)
	assert.Equal(t, 2, n)
	sel := b.Selected(Class1)
	require.Len(t, sel, 2)
	assert.EqualValues(t, 1, sel[0].Index)
	assert.EqualValues(t, 2, sel[1].Index)
}

func TestSelectIsIdempotentOnceCapReached(t *testing.T) {
	b := New(map[Class]int{Class1: 8})
	b.Update(1, Class1, v(1))
	b.Select(Class1, 5)
	assert.Equal(t, 0, b.Select(Class1, 5))
}

func TestDeselectReturnsToPending(t *testing.T) {
	b := New(map[Class]int{Class1: 8})
	b.Update(1, Class1, v(1))
	b.Select(Class1, 1)
	require.Len(t, b.Selected(Class1), 1)

	b.Deselect()
	assert.Empty(t, b.Selected(Class1))
	assert.True(t, b.HasPending(Class1))
}

func TestOverflowDuringSelectionDoesNotCountSelectedRecords(t *testing.T) {
	b := New(map[Class]int{Class1: 2})
	b.Update(1, Class1, v(1))
	b.Update(2, Class1, v(2))
	b.Select(Class1, 1) // index 1 selected, no longer counted against capacity

	// Only index 2 is unselected, so a 3rd update still fits under
	// capacity (selected events don't count towards overflow).
	b.Update(3, Class1, v(3))
	assert.False(t, b.Overflow(Class1))
	assert.Equal(t, 3, b.Size(Class1))
}

func TestOverflowEvictsOldestUnselected(t *testing.T) {
	b := New(map[Class]int{Class1: 2})
	b.Update(1, Class1, v(1))
	b.Update(2, Class1, v(2))
	b.Select(Class1, 1) // index 1 selected, immune
	b.Update(3, Class1, v(3)) // still fits: only index 2 is unselected

	b.Update(4, Class1, v(4)) // now 3 unselected (index 2, 3, 4) exceed capacity, evicts index 2
	assert.True(t, b.Overflow(Class1))
	assert.Equal(t, 3, b.Size(Class1))

	indexes := map[uint16]bool{}
	for _, r := range append(b.Selected(Class1), b.records[Class1]...) {
		indexes[r.Index] = true
	}
	assert.True(t, indexes[1])
	assert.False(t, indexes[2])
	assert.True(t, indexes[3])
	assert.True(t, indexes[4])
}

func TestWriteThenClearWrittenDropsBelowCapacityClearsOverflow(t *testing.T) {
	b := New(map[Class]int{Class1: 2})
	b.Update(1, Class1, v(1))
	b.Update(2, Class1, v(2))
	b.Update(3, Class1, v(3)) // evicts index 1, overflow=true

	// Confirm the entire remaining backlog so the unselected count
	// drops strictly under capacity, the only way overflow resets.
	n := b.Select(Class1, 2)
	require.Equal(t, 2, n)
	b.MarkSelectedWritten()
	cleared := b.ClearWritten()
	assert.Equal(t, 2, cleared)
	assert.Equal(t, 0, b.Size(Class1))
	assert.False(t, b.Overflow(Class1))
}

func TestHasPendingReflectsOnlyUnselectedUnwritten(t *testing.T) {
	b := New(map[Class]int{Class2: 4})
	assert.False(t, b.HasPending(Class2))
	b.Update(5, Class2, v(1))
	assert.True(t, b.HasPending(Class2))
	b.Select(Class2, 1)
	assert.False(t, b.HasPending(Class2))
}
