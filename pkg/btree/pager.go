package btree

import (
	"sync"

	"storagecore/pkg/errs"
	physpage "storagecore/pkg/page"
	"storagecore/pkg/primitives"
)

// pager bridges the generic logical Page[K,V] this tree operates on to
// the physical page.BufferPool that owns pin counts, latches, and
// eviction. Every NewPage/FetchPage call here is paired with exactly
// one UnpinPage.
type pager[K any, V any] struct {
	pool physpage.BufferPool

	mu      sync.Mutex
	logical map[primitives.PageID]*Page[K, V]

	maxSize int
}

func newPager[K any, V any](pool physpage.BufferPool, maxSize int) *pager[K, V] {
	return &pager[K, V]{
		pool:    pool,
		logical: make(map[primitives.PageID]*Page[K, V]),
		maxSize: maxSize,
	}
}

func (pg *pager[K, V]) newLeafPage() (*Page[K, V], error) {
	phys, err := pg.pool.NewPage()
	if err != nil {
		return nil, errs.Wrap(err, "NEW_PAGE_FAILED", "newLeafPage", "btree.pager")
	}
	lp := newLeaf[K, V](phys, pg.maxSize)
	pg.mu.Lock()
	pg.logical[phys.ID()] = lp
	pg.mu.Unlock()
	return lp, nil
}

func (pg *pager[K, V]) newInternalPage() (*Page[K, V], error) {
	phys, err := pg.pool.NewPage()
	if err != nil {
		return nil, errs.Wrap(err, "NEW_PAGE_FAILED", "newInternalPage", "btree.pager")
	}
	ip := newInternal[K, V](phys, pg.maxSize)
	pg.mu.Lock()
	pg.logical[phys.ID()] = ip
	pg.mu.Unlock()
	return ip, nil
}

// fetch pins id once more (bumping the physical buffer pool's pin
// count) and returns the logical page backing it.
func (pg *pager[K, V]) fetch(id primitives.PageID) (*Page[K, V], error) {
	if _, err := pg.pool.FetchPage(id); err != nil {
		return nil, errs.Wrap(err, "FETCH_PAGE_FAILED", "fetch", "btree.pager")
	}
	pg.mu.Lock()
	lp, ok := pg.logical[id]
	pg.mu.Unlock()
	if !ok {
		pg.unpin(id, false)
		return nil, errs.ErrOutOfIndexRange("fetch", "btree.pager")
	}
	return lp, nil
}

func (pg *pager[K, V]) unpin(id primitives.PageID, dirty bool) {
	_, _ = pg.pool.UnpinPage(id, dirty)
}

func (pg *pager[K, V]) free(id primitives.PageID) error {
	ok, err := pg.pool.DeletePage(id)
	if err != nil {
		return err
	}
	if ok {
		pg.mu.Lock()
		delete(pg.logical, id)
		pg.mu.Unlock()
	}
	return nil
}
