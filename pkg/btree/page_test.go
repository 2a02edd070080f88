package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	physpage "storagecore/pkg/page"
	"storagecore/pkg/primitives"
)

func newTestLeaf(t *testing.T, maxSize int) *Page[int, string] {
	t.Helper()
	pool, err := physpage.NewRistrettoBufferPool(16)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	phys, err := pool.NewPage()
	require.NoError(t, err)
	return newLeaf[int, string](phys, maxSize)
}

func newTestInternal(t *testing.T, maxSize int) *Page[int, string] {
	t.Helper()
	pool, err := physpage.NewRistrettoBufferPool(16)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	phys, err := pool.NewPage()
	require.NoError(t, err)
	return newInternal[int, string](phys, maxSize)
}

func TestInsertLeafKeepsSortedOrder(t *testing.T) {
	leaf := newTestLeaf(t, 8)
	for _, k := range []int{5, 1, 9, 3, 7} {
		leaf.InsertLeaf(k, "v", intCmp)
	}

	var got []int
	for i := 0; i < leaf.Size(); i++ {
		got = append(got, leaf.KeyAt(i))
	}
	assert.Equal(t, []int{1, 3, 5, 7, 9}, got)
}

func TestMoveHalfToLeafSplitsAndSplicesChain(t *testing.T) {
	leaf := newTestLeaf(t, 8)
	for i := 1; i <= 5; i++ {
		leaf.InsertLeaf(i, "v", intCmp)
	}
	sibling := newTestLeaf(t, 8)

	leaf.MoveHalfToLeaf(sibling)

	assert.Equal(t, 3, leaf.Size())
	assert.Equal(t, 2, sibling.Size())
	assert.Equal(t, sibling.ID(), leaf.NextPageID)
	assert.Equal(t, 4, sibling.KeyAt(0))
}

func TestMoveAllToLeafMergesAndSplicesChain(t *testing.T) {
	left := newTestLeaf(t, 8)
	right := newTestLeaf(t, 8)
	for i := 1; i <= 3; i++ {
		left.InsertLeaf(i, "v", intCmp)
	}
	for i := 4; i <= 6; i++ {
		right.InsertLeaf(i, "v", intCmp)
	}
	right.NextPageID = primitives.PageID(99)

	right.MoveAllToLeaf(left)

	assert.Equal(t, 6, left.Size())
	assert.Equal(t, primitives.PageID(99), left.NextPageID)
	assert.Equal(t, 0, right.Size())
}

func TestRedistributeLeafEntries(t *testing.T) {
	left := newTestLeaf(t, 8)
	right := newTestLeaf(t, 8)
	left.InsertLeaf(1, "v", intCmp)
	right.InsertLeaf(2, "v", intCmp)
	right.InsertLeaf(3, "v", intCmp)

	right.MoveFirstToEndOfLeaf(left)
	assert.Equal(t, []int{1, 2}, leafKeys(left))
	assert.Equal(t, []int{3}, leafKeys(right))

	left.MoveLastToFrontOfLeaf(right)
	assert.Equal(t, []int{1}, leafKeys(left))
	assert.Equal(t, []int{2, 3}, leafKeys(right))
}

func leafKeys(p *Page[int, string]) []int {
	var got []int
	for i := 0; i < p.Size(); i++ {
		got = append(got, p.KeyAt(i))
	}
	return got
}

func TestInternalInsertNodeAfterAndLookup(t *testing.T) {
	root := newTestInternal(t, 8)
	root.PopulateNewRoot(primitives.PageID(1), 10, primitives.PageID(2))

	require.NoError(t, root.InsertNodeAfter(primitives.PageID(2), 20, primitives.PageID(3)))

	assert.Equal(t, primitives.PageID(1), root.Lookup(5, intCmp))
	assert.Equal(t, primitives.PageID(2), root.Lookup(15, intCmp))
	assert.Equal(t, primitives.PageID(3), root.Lookup(25, intCmp))
}

func TestInternalInsertNodeAfterMissingValueFails(t *testing.T) {
	root := newTestInternal(t, 8)
	root.PopulateNewRoot(primitives.PageID(1), 10, primitives.PageID(2))

	err := root.InsertNodeAfter(primitives.PageID(99), 30, primitives.PageID(4))
	assert.Error(t, err)
}
