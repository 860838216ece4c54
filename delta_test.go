package bwindex

import (
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
)

func TestChainLengthStopsAtBase(t *testing.T) {
	defer leaktest.Check(t)()

	base := &baseNode{nodeHeader: nodeHeader{kind: kindBase}}
	head := newInsertDelta(1, 1, newDeleteDelta(2, newInsertDelta(2, 2, &base.nodeHeader)))

	require.Equal(t, 3, chainLength(head))
	require.Equal(t, 0, chainLength(&base.nodeHeader))
	require.Equal(t, 0, chainLength(nil))
}

func TestLookupChainNewestWins(t *testing.T) {
	defer leaktest.Check(t)()

	// insert(42,200) -> insert(42,100) -> nil: newest (200) must win.
	head := newInsertDelta(42, 200, newInsertDelta(42, 100, nil))
	value, present, err := lookupChain(head, 42)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, Value(200), value)
}

func TestLookupChainDeleteTombstones(t *testing.T) {
	defer leaktest.Check(t)()

	head := newDeleteDelta(42, newInsertDelta(42, 100, nil))
	_, present, err := lookupChain(head, 42)
	require.NoError(t, err)
	require.False(t, present)
}

func TestLookupChainFallsThroughToBase(t *testing.T) {
	defer leaktest.Check(t)()

	base := &baseNode{
		nodeHeader: nodeHeader{kind: kindBase},
		keys:       []Key{1, 5, 9},
		values:     []Value{10, 50, 90},
	}
	head := newInsertDelta(2, 20, &base.nodeHeader)

	value, present, err := lookupChain(head, 5)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, Value(50), value)

	_, present, err = lookupChain(head, 7)
	require.NoError(t, err)
	require.False(t, present)
}

func TestLookupChainAbsentKey(t *testing.T) {
	defer leaktest.Check(t)()

	head := newInsertDelta(1, 1, nil)
	_, present, err := lookupChain(head, 2)
	require.NoError(t, err)
	require.False(t, present)
}

func TestLookupChainSurfacesStructuralDeltas(t *testing.T) {
	defer leaktest.Check(t)()

	split := newSplitDelta(100, 7, nil)
	_, _, err := lookupChain(split, 100)
	require.ErrorIs(t, err, ErrNeedsStructuralHandling)

	merge := newMergeDelta(3, nil)
	_, _, err = lookupChain(merge, 1)
	require.ErrorIs(t, err, ErrNeedsStructuralHandling)
}

func TestDeltaCasts(t *testing.T) {
	defer leaktest.Check(t)()

	ins := newInsertDelta(1, 2, nil)
	require.Equal(t, Key(1), asInsert(ins).key)
	require.Equal(t, Value(2), asInsert(ins).value)

	del := newDeleteDelta(3, nil)
	require.Equal(t, Key(3), asDelete(del).key)

	sp := newSplitDelta(4, 5, nil)
	require.Equal(t, Key(4), asSplit(sp).splitKey)
	require.Equal(t, PageID(5), asSplit(sp).siblingPage)

	mg := newMergeDelta(6, nil)
	require.Equal(t, PageID(6), asMerge(mg).mergedInto)
}
