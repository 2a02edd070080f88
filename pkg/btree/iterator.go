package btree

import "storagecore/pkg/primitives"

// Iterator is a forward range iterator over leaf pages: a current leaf
// pointer and a position within it, advancing across the leaf chain
// via NextPageID.
type Iterator[K any, V any] struct {
	pager *pager[K, V]
	cmp   Comparator[K]
	leaf  *Page[K, V]
	pos   int
}

// IsEnd reports whether the iterator has no more entries: the leaf
// pointer is nil, or the position has run off the end of a leaf with
// no next page.
func (it *Iterator[K, V]) IsEnd() bool {
	if it.leaf == nil {
		return true
	}
	return it.pos >= it.leaf.Size() && it.leaf.NextPageID == primitives.InvalidPageID
}

// Key and Value return the entry at the iterator's current position.
// Calling them when IsEnd() is true panics; callers must check IsEnd
// first.
func (it *Iterator[K, V]) Key() K   { return it.leaf.KeyAt(it.pos) }
func (it *Iterator[K, V]) Value() V { return it.leaf.ValueAt(it.pos) }

// Next advances the iterator by one entry, crossing into the next
// leaf (unpinning the current one) when the current leaf is
// exhausted.
func (it *Iterator[K, V]) Next() error {
	it.pos++
	if it.pos < it.leaf.Size() {
		return nil
	}
	if it.leaf.NextPageID == primitives.InvalidPageID {
		return nil // now at end
	}

	nextID := it.leaf.NextPageID
	oldID := it.leaf.ID()
	next, err := it.pager.fetch(nextID)
	if err != nil {
		return err
	}
	it.pager.unpin(oldID, false)
	it.leaf = next
	it.pos = 0
	return nil
}

// Close releases the iterator's current leaf pin, if any. Safe to
// call more than once. Only the pin is held between positions — the
// read latch taken during descent is dropped as soon as the starting
// leaf is found.
func (it *Iterator[K, V]) Close() {
	if it.leaf == nil {
		return
	}
	it.pager.unpin(it.leaf.ID(), false)
	it.leaf = nil
}
