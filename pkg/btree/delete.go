package btree

import (
	"storagecore/pkg/errs"
	"storagecore/pkg/primitives"
)

// Remove deletes k, if present. A no-op if the tree is empty or k is
// absent.
func (t *Tree[K, V]) Remove(k K) error {
	held, err := t.findLeafPage(k, IntentRemove, false)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	leaf := held[len(held)-1].page

	if _, exists := leaf.LookupLeaf(k, t.cmp); !exists {
		releaseAll(t.pager, held, false)
		return nil
	}
	newSize := leaf.RemoveAndDeleteRecord(k, t.cmp)

	if len(held) == 1 {
		// Leaf is the root: clear the tree if it just emptied, otherwise
		// a root leaf is exempt from the min_size invariant.
		if newSize == 0 {
			t.rootGuard.Lock()
			t.rootPageID = primitives.InvalidPageID
			t.header.UpdateRecord(t.name, t.rootPageID)
			t.rootGuard.Unlock()
			leaf.WUnlatch()
			t.pager.unpin(leaf.ID(), false)
			return t.pager.free(leaf.ID())
		}
		releaseAll(t.pager, held, true)
		return nil
	}

	if newSize >= leaf.MinSize {
		releaseAll(t.pager, held, true)
		return nil
	}

	return t.coalesceOrRedistribute(held)
}

func isNotFound(err error) bool {
	dbErr, ok := err.(*errs.DBError)
	return ok && dbErr.Category == errs.NotFound
}

// coalesceOrRedistribute walks up from the deficient leaf/internal
// page at the top of held, redistributing with a sibling when there's
// room or coalescing (and recursing on the parent) otherwise.
func (t *Tree[K, V]) coalesceOrRedistribute(held []heldPage[K, V]) error {
	idx := len(held) - 1

	for {
		if idx == 0 {
			return t.adjustRoot(held[0].page)
		}

		node := held[idx].page
		parent := held[idx-1].page

		nodeIdx := parent.ValueIndex(node.ID())
		nodeIsLeftmost := nodeIdx == 0
		var siblingIdx int
		if nodeIsLeftmost {
			siblingIdx = nodeIdx + 1
		} else {
			siblingIdx = nodeIdx - 1
		}

		sibling, err := t.pager.fetch(parent.ChildAt(siblingIdx))
		if err != nil {
			releaseAll(t.pager, held[:idx+1], false)
			return err
		}
		sibling.WLatch()

		redistributed := sibling.Size()+node.Size() >= node.MaxSize
		if redistributed {
			t.redistribute(node, sibling, parent, nodeIdx, nodeIsLeftmost)
			sibling.WUnlatch()
			t.pager.unpin(sibling.ID(), true)

			held[idx].release(t.pager, true)
			releaseAll(t.pager, held[:idx], true)
			return nil
		}

		survivor := t.coalesce(node, sibling, parent, nodeIdx, siblingIdx, nodeIsLeftmost)
		held[idx] = heldPage[K, V]{page: survivor, writeMode: true}
		held[idx].release(t.pager, true)

		if parent.Size() >= parent.MinSize {
			releaseAll(t.pager, held[:idx], true)
			return nil
		}

		idx--
	}
}

// redistribute moves one entry across the node/sibling boundary and
// fixes up the parent's separator key: if node is its parent's
// leftmost child, move sibling's first entry onto node's end; else
// move sibling's last entry onto node's front.
func (t *Tree[K, V]) redistribute(node, sibling, parent *Page[K, V], nodeIdx int, nodeIsLeftmost bool) {
	if nodeIsLeftmost {
		if node.IsLeaf() {
			sibling.MoveFirstToEndOfLeaf(node)
			parent.SetKeyAt(nodeIdx+1, sibling.KeyAt(0))
		} else {
			sep := parent.InternalKeyAt(nodeIdx + 1)
			newSep := sibling.InternalKeyAt(1)
			sibling.MoveFirstToEndOfInternal(node, sep)
			parent.SetKeyAt(nodeIdx+1, newSep)
		}
		return
	}

	if node.IsLeaf() {
		sibling.MoveLastToFrontOfLeaf(node)
		parent.SetKeyAt(nodeIdx, node.KeyAt(0))
	} else {
		sep := parent.InternalKeyAt(nodeIdx)
		newSep := sibling.InternalKeyAt(sibling.Size() - 1)
		sibling.MoveLastToFrontOfInternal(node, sep)
		parent.SetKeyAt(nodeIdx, newSep)
	}
}

// coalesce merges node and sibling into whichever of the two is to the
// left, moving all entries right-to-left, removes the separator from
// parent, and frees the right-hand page. It returns the surviving
// (left) page, still write-latched.
func (t *Tree[K, V]) coalesce(node, sibling, parent *Page[K, V], nodeIdx, siblingIdx int, nodeIsLeftmost bool) *Page[K, V] {
	var left, right *Page[K, V]
	var rightIdxInParent int
	if nodeIsLeftmost {
		left, right = node, sibling
		rightIdxInParent = siblingIdx
	} else {
		left, right = sibling, node
		rightIdxInParent = nodeIdx
	}

	if left.IsLeaf() {
		right.MoveAllToLeaf(left)
	} else {
		sep := parent.InternalKeyAt(rightIdxInParent)
		right.MoveAllToInternal(left, sep)
	}
	parent.Remove(rightIdxInParent)

	right.WUnlatch()
	t.pager.unpin(right.ID(), false)
	_ = t.pager.free(right.ID())

	return left
}

// adjustRoot handles an internal root that may have underflowed: if it
// has only one child left, that child is promoted to root; otherwise
// the root is left as-is (a non-leaf root is exempt from the min_size
// invariant). Fully releases root's latch/pin (and frees it, if it was
// demoted) before returning.
func (t *Tree[K, V]) adjustRoot(root *Page[K, V]) error {
	if root.IsLeaf() || root.Size() != 1 {
		root.WUnlatch()
		t.pager.unpin(root.ID(), true)
		return nil
	}

	onlyChild := root.RemoveAndReturnOnlyChild()

	t.rootGuard.Lock()
	t.rootPageID = onlyChild
	t.header.UpdateRecord(t.name, onlyChild)
	t.rootGuard.Unlock()

	if child, err := t.pager.fetch(onlyChild); err == nil {
		child.WLatch()
		child.ParentPageID = primitives.InvalidPageID
		child.WUnlatch()
		t.pager.unpin(onlyChild, true)
	}

	root.WUnlatch()
	t.pager.unpin(root.ID(), false)
	return t.pager.free(root.ID())
}
