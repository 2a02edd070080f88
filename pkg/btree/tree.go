package btree

import (
	"sync"

	"storagecore/pkg/errs"
	physpage "storagecore/pkg/page"
	"storagecore/pkg/primitives"
)

// Tree is the whole-tree B+ tree index: search, insert, remove, and a
// range iterator over a chain of leaf pages, descending with latch
// crabbing (lock coupling) rather than holding every ancestor latch
// for the whole operation.
type Tree[K any, V any] struct {
	pager *pager[K, V]
	cmp   Comparator[K]
	name  string
	header *physpage.HeaderPage

	// rootGuard serializes root_page_id transitions (grow/shrink).
	rootGuard  sync.RWMutex
	rootPageID primitives.PageID
}

// New creates an empty B+ tree named name (its root page id is
// tracked in header under that name), with pages holding at most
// maxSize entries.
func New[K any, V any](name string, maxSize int, cmp Comparator[K], pool physpage.BufferPool, header *physpage.HeaderPage) *Tree[K, V] {
	t := &Tree[K, V]{
		pager:      newPager[K, V](pool, maxSize),
		cmp:        cmp,
		name:       name,
		header:     header,
		rootPageID: primitives.InvalidPageID,
	}
	if id, ok := header.GetRootPageID(name); ok {
		t.rootPageID = id
	}
	return t
}

// IsEmpty reports whether the tree currently has no root.
func (t *Tree[K, V]) IsEmpty() bool {
	t.rootGuard.RLock()
	defer t.rootGuard.RUnlock()
	return t.rootPageID == primitives.InvalidPageID
}

type heldPage[K any, V any] struct {
	page      *Page[K, V]
	writeMode bool
}

func (h heldPage[K, V]) release(pg *pager[K, V], dirty bool) {
	if h.writeMode {
		h.page.WUnlatch()
	} else {
		h.page.RUnlatch()
	}
	pg.unpin(h.page.ID(), dirty)
}

func isSafe[K any, V any](intent Intent, child *Page[K, V]) bool {
	switch intent {
	case IntentSearch:
		return true
	case IntentInsert:
		return child.Size() < child.MaxSize-1
	case IntentRemove:
		return child.Size() > child.MinSize
	default:
		return false
	}
}

// findLeafPage descends from the root to the leaf that would contain
// k (or the leftmost leaf if leftmost is true), applying latch
// crabbing: ancestors are released as soon as the freshly-latched
// child is proven "safe" for intent, and the remaining, still-latched
// ancestor chain (needed for split/merge propagation on the mutator
// path) is returned alongside the leaf.
func (t *Tree[K, V]) findLeafPage(k K, intent Intent, leftmost bool) ([]heldPage[K, V], error) {
	writeMode := intent != IntentSearch

	var page *Page[K, V]
	for {
		t.rootGuard.RLock()
		rootID := t.rootPageID
		t.rootGuard.RUnlock()

		if rootID == primitives.InvalidPageID {
			return nil, errs.New(errs.NotFound, "EMPTY_TREE", "out of index")
		}

		var err error
		page, err = t.pager.fetch(rootID)
		if err != nil {
			return nil, err
		}
		h := heldPage[K, V]{page: page, writeMode: writeMode}
		if writeMode {
			page.WLatch()
		} else {
			page.RLatch()
		}

		// The root can only be replaced by a holder of its latch, so once
		// latched it stays the root; retry if it changed before that.
		t.rootGuard.RLock()
		stillRoot := t.rootPageID == rootID
		t.rootGuard.RUnlock()
		if stillRoot {
			break
		}
		h.release(t.pager, false)
	}

	held := []heldPage[K, V]{{page: page, writeMode: writeMode}}

	for page.Type == InternalPage {
		var childID primitives.PageID
		if leftmost {
			childID = page.ChildAt(0)
		} else {
			childID = page.Lookup(k, t.cmp)
		}

		child, err := t.pager.fetch(childID)
		if err != nil {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].release(t.pager, false)
			}
			return nil, err
		}
		if writeMode {
			child.WLatch()
		} else {
			child.RLatch()
		}

		if isSafe[K, V](intent, child) {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].release(t.pager, false)
			}
			held = held[:0]
		}

		held = append(held, heldPage[K, V]{page: child, writeMode: writeMode})
		page = child
	}

	return held, nil
}

func releaseAll[K any, V any](pg *pager[K, V], held []heldPage[K, V], dirty bool) {
	for i := len(held) - 1; i >= 0; i-- {
		held[i].release(pg, dirty && i == len(held)-1)
	}
}

// GetValue performs a point query for k.
func (t *Tree[K, V]) GetValue(k K) (V, bool) {
	held, err := t.findLeafPage(k, IntentSearch, false)
	var zero V
	if err != nil {
		return zero, false
	}
	leaf := held[len(held)-1].page
	v, ok := leaf.LookupLeaf(k, t.cmp)
	releaseAll(t.pager, held, false)
	return v, ok
}

// Insert adds (k, v), returning false if k is already present.
func (t *Tree[K, V]) Insert(k K, v V) (bool, error) {
	t.rootGuard.Lock()
	if t.rootPageID == primitives.InvalidPageID {
		leaf, err := t.pager.newLeafPage()
		if err != nil {
			t.rootGuard.Unlock()
			return false, err
		}
		leaf.InsertLeaf(k, v, t.cmp)
		t.rootPageID = leaf.ID()
		t.header.InsertRecord(t.name, t.rootPageID)
		t.pager.unpin(leaf.ID(), true)
		t.rootGuard.Unlock()
		return true, nil
	}
	t.rootGuard.Unlock()

	held, err := t.findLeafPage(k, IntentInsert, false)
	if err != nil {
		return false, err
	}
	leaf := held[len(held)-1].page

	if _, exists := leaf.LookupLeaf(k, t.cmp); exists {
		releaseAll(t.pager, held, false)
		return false, nil
	}

	leaf.InsertLeaf(k, v, t.cmp)

	if leaf.Size() >= leaf.MaxSize {
		err := t.split(held)
		return err == nil, err
	}

	releaseAll(t.pager, held, true)
	return true, nil
}

// split allocates a sibling for the overflowing page at the top of
// held (leaf or, recursively, an internal page) and propagates the new
// separator key into the parent. On every return path — success or
// error — it releases held[idx], the page it was given; ancestors
// above held[0] were already released by findLeafPage's crabbing, and
// the still-latched ancestors held[:idx] are released by
// insertIntoParent before it returns here.
func (t *Tree[K, V]) split(held []heldPage[K, V]) error {
	idx := len(held) - 1
	old := held[idx].page
	defer held[idx].release(t.pager, true)

	if old.IsLeaf() {
		sibling, err := t.pager.newLeafPage()
		if err != nil {
			return err
		}
		old.MoveHalfToLeaf(sibling)
		sibling.ParentPageID = old.ParentPageID
		sepKey := sibling.KeyAt(0)
		err = t.insertIntoParent(held, idx, old, sepKey, sibling)
		t.pager.unpin(sibling.ID(), true)
		return err
	}

	sibling, err := t.pager.newInternalPage()
	if err != nil {
		return err
	}
	old.MoveHalfToInternal(sibling)
	sibling.ParentPageID = old.ParentPageID
	sepKey := sibling.InternalKeyAt(0)
	err = t.insertIntoParent(held, idx, old, sepKey, sibling)
	t.pager.unpin(sibling.ID(), true)
	return err
}

// insertIntoParent propagates a split upward: if old is the root,
// allocate a new root and populate it (held[:idx] is empty in this
// case, so there's nothing else to release); otherwise insert (sepKey,
// newPage) into the already-latched parent at held[idx-1], splitting
// it in turn if it overflows. Every path releases held[:idx] before
// returning — split (the caller) takes care of held[idx] itself — so
// by the time this returns, everything from the root down through idx
// is latch- and pin-free.
func (t *Tree[K, V]) insertIntoParent(held []heldPage[K, V], idx int, old *Page[K, V], sepKey K, newPage *Page[K, V]) error {
	if idx == 0 {
		t.rootGuard.Lock()
		newRoot, err := t.pager.newInternalPage()
		if err != nil {
			t.rootGuard.Unlock()
			return err
		}
		newRoot.PopulateNewRoot(old.ID(), sepKey, newPage.ID())
		old.ParentPageID = newRoot.ID()
		newPage.ParentPageID = newRoot.ID()
		t.rootPageID = newRoot.ID()
		t.header.UpdateRecord(t.name, t.rootPageID)
		t.pager.unpin(newRoot.ID(), true)
		t.rootGuard.Unlock()
		return nil
	}

	parent := held[idx-1].page
	if err := parent.InsertNodeAfter(old.ID(), sepKey, newPage.ID()); err != nil {
		releaseAll(t.pager, held[:idx], true)
		return err
	}

	if parent.Size() >= parent.MaxSize {
		return t.split(held[:idx])
	}

	releaseAll(t.pager, held[:idx], true)
	return nil
}

// Begin returns an iterator positioned at the left-most leaf's first
// entry.
func (t *Tree[K, V]) Begin() (*Iterator[K, V], error) {
	return t.beginAt(nil)
}

// BeginAt returns an iterator positioned at the first key >= k.
func (t *Tree[K, V]) BeginAt(k K) (*Iterator[K, V], error) {
	return t.beginAt(&k)
}

func (t *Tree[K, V]) beginAt(k *K) (*Iterator[K, V], error) {
	var held []heldPage[K, V]
	var err error
	if k == nil {
		held, err = t.findLeafPage(*new(K), IntentSearch, true)
	} else {
		held, err = t.findLeafPage(*k, IntentSearch, false)
	}
	if err != nil {
		if dbErr, ok := err.(*errs.DBError); ok && dbErr.Category == errs.NotFound {
			return &Iterator[K, V]{}, nil // empty tree: immediately at end
		}
		return nil, err
	}

	leaf := held[len(held)-1].page
	pos := 0
	if k != nil {
		pos = leaf.KeyIndex(*k, t.cmp)
	}
	// The leaf's read latch was only needed to stabilize the descent;
	// the iterator re-fetches leaves by NextPageID as it walks, so we
	// can release it now and keep only the pin that Next expects.
	leaf.RUnlatch()

	it := &Iterator[K, V]{
		pager: t.pager,
		cmp:   t.cmp,
		leaf:  leaf,
		pos:   pos,
	}
	if pos >= leaf.Size() && leaf.NextPageID != primitives.InvalidPageID {
		// k is past every key in this leaf: the first key >= k is the
		// next leaf's first entry.
		it.pos--
		if err := it.Next(); err != nil {
			it.Close()
			return nil, err
		}
	}
	return it, nil
}
