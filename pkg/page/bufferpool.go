package page

import (
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"

	"storagecore/pkg/errs"
	"storagecore/pkg/lru"
	"storagecore/pkg/primitives"
)

// BufferPool is the interface the B+ tree consumes. Disk I/O and the replacement policy are deliberately kept
// behind this interface rather than baked into its callers.
type BufferPool interface {
	NewPage() (*Page, error)
	FetchPage(id primitives.PageID) (*Page, error)
	UnpinPage(id primitives.PageID, isDirty bool) (bool, error)
	DeletePage(id primitives.PageID) (bool, error)
}

// RistrettoBufferPool is a reference BufferPool backed by a fixed slab
// of frames. The eviction victim is chosen by pkg/lru alone: the
// unpinned page that was unpinned longest ago. Page allocations,
// fetches and deletions are also recorded in a
// github.com/dgraph-io/ristretto/v2 cache, but that cache is not
// consulted when choosing a victim.
type RistrettoBufferPool struct {
	mu       sync.Mutex
	frames   map[primitives.PageID]*Page
	replacer *lru.Replacer[primitives.PageID]
	cache    *ristretto.Cache[int32, struct{}]
	capacity int
	nextID   int64
}

// NewRistrettoBufferPool creates a pool holding at most capacity
// frames at once.
func NewRistrettoBufferPool(capacity int) (*RistrettoBufferPool, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[int32, struct{}]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, errs.Wrap(err, "RISTRETTO_INIT_FAILED", "NewRistrettoBufferPool", "page.RistrettoBufferPool")
	}

	return &RistrettoBufferPool{
		frames:   make(map[primitives.PageID]*Page, capacity),
		replacer: lru.New[primitives.PageID](),
		cache:    cache,
		capacity: capacity,
	}, nil
}

// NewPage allocates a fresh page id, pins it once, and returns it,
// evicting an unpinned victim first if the pool is at capacity.
func (bp *RistrettoBufferPool) NewPage() (*Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if len(bp.frames) >= bp.capacity {
		if !bp.evictLocked() {
			return nil, errs.ErrOutOfMemory("NewPage", "page.RistrettoBufferPool")
		}
	}

	id := primitives.PageID(atomic.AddInt64(&bp.nextID, 1))
	p := newPage(id)
	p.pin()

	bp.frames[id] = p
	bp.cache.Set(int32(id), struct{}{}, 1)
	return p, nil
}

// FetchPage returns the already-allocated page id, pinned once more.
func (bp *RistrettoBufferPool) FetchPage(id primitives.PageID) (*Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	p, ok := bp.frames[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "PAGE_NOT_FOUND", "out of index")
	}

	p.pin()
	bp.replacer.Erase(id)   // pinned pages are never eviction candidates
	bp.cache.Get(int32(id)) // record the access for ristretto's cost estimator
	return p, nil
}

// UnpinPage decrements the pin count, marking the page dirty if asked,
// and makes it eviction-eligible once the count reaches zero.
func (bp *RistrettoBufferPool) UnpinPage(id primitives.PageID, isDirty bool) (bool, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	p, ok := bp.frames[id]
	if !ok {
		return false, nil
	}

	if isDirty {
		p.SetDirty(true)
	}

	if p.unpin() == 0 {
		bp.replacer.Insert(id)
	}
	return true, nil
}

// DeletePage removes a page, failing if it is still pinned.
func (bp *RistrettoBufferPool) DeletePage(id primitives.PageID) (bool, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	p, ok := bp.frames[id]
	if !ok {
		return true, nil
	}
	if p.PinCount() > 0 {
		return false, errs.ErrPageStillInUse("DeletePage", "page.RistrettoBufferPool")
	}

	delete(bp.frames, id)
	bp.replacer.Erase(id)
	bp.cache.Del(int32(id))
	return true, nil
}

// evictLocked tries to free one unpinned frame, reporting success.
// Caller must hold bp.mu.
func (bp *RistrettoBufferPool) evictLocked() bool {
	victim, ok := bp.replacer.Victim()
	if !ok {
		return false
	}
	delete(bp.frames, victim)
	bp.cache.Del(int32(victim))
	return true
}

// Close releases the underlying ristretto cache's background workers.
func (bp *RistrettoBufferPool) Close() {
	bp.cache.Close()
}
