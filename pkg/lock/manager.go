package lock

import (
	"sync"

	"storagecore/pkg/primitives"
	"storagecore/pkg/txn"
)

// Manager is the RID-keyed lock table. A single mutex protects the
// whole map; waiters release it while blocked on their WaitItem's
// signal and reacquire it before reading the final granted state, so
// a wakeup can never be lost.
type Manager struct {
	mu      sync.Mutex
	table   map[primitives.RID]*WaitList
	strict  bool // strict 2PL: Unlock only legal for COMMITTED/ABORTED txns
	waitDie bool // Wait-Die deadlock avoidance: conflicting younger txns die instead of waiting
}

// New creates a lock manager. strict2PL enables strict two-phase
// locking (locks are held until commit/abort). waitDie enables Wait-Die
// deadlock avoidance; when false, conflicting requests simply queue and
// block, like a plain blocking lock table with no deadlock avoidance.
func New(strict2PL, waitDie bool) *Manager {
	return &Manager{
		table:   make(map[primitives.RID]*WaitList),
		strict:  strict2PL,
		waitDie: waitDie,
	}
}

// isValidToAcquire is the admission check every lock request goes
// through first. A SHRINKING transaction requesting a new lock is a
// 2PL violation and is aborted on the spot.
func isValidToAcquire(t *txn.Transaction) bool {
	switch t.State() {
	case txn.Aborted, txn.Committed:
		return false
	case txn.Shrinking:
		t.SetState(txn.Aborted)
		return false
	default:
		return true
	}
}

// LockShared acquires a shared lock on rid for t, blocking under
// Wait-Die if rid is held exclusively by an older transaction.
func (m *Manager) LockShared(t *txn.Transaction, rid primitives.RID) bool {
	if !isValidToAcquire(t) {
		return false
	}

	m.mu.Lock()

	wl, exists := m.table[rid]
	if !exists {
		m.table[rid] = newWaitList(Shared, t)
		m.mu.Unlock()
		t.AddSharedLock(rid)
		return true
	}

	if wl.Mode == Shared {
		if wl.indexOfGranted(t) >= 0 {
			m.mu.Unlock()
			return true // already held; idempotent
		}
		wl.Granted = append(wl.Granted, t)
		m.mu.Unlock()
		t.AddSharedLock(rid)
		return true
	}

	// EXCLUSIVE: exactly one holder.
	holder := wl.Granted[0]
	if t == holder || t.ID() == holder.ID() {
		// A txn requesting SHARED on a RID it already holds EXCLUSIVE
		// succeeds as a no-op — exclusive already implies shared.
		m.mu.Unlock()
		return true
	}
	if m.waitDie && t.ID() > holder.ID() {
		// Wait-Die: requester is younger than the holder it conflicts
		// with, so it dies rather than waits.
		m.mu.Unlock()
		t.SetState(txn.Aborted)
		return false
	}

	item := newWaitItem(t, Shared)
	wl.Waiters = append(wl.Waiters, item)
	m.mu.Unlock()

	granted := <-item.signal
	m.mu.Lock()
	m.mu.Unlock()

	if !granted {
		t.SetState(txn.Aborted)
		return false
	}
	t.AddSharedLock(rid)
	return true
}

// LockExclusive acquires an exclusive lock on rid for t.
func (m *Manager) LockExclusive(t *txn.Transaction, rid primitives.RID) bool {
	if !isValidToAcquire(t) {
		return false
	}

	m.mu.Lock()

	wl, exists := m.table[rid]
	if !exists {
		m.table[rid] = newWaitList(Exclusive, t)
		m.mu.Unlock()
		t.AddExclusiveLock(rid)
		return true
	}

	for _, holder := range wl.Granted {
		if m.waitDie && t.ID() > holder.ID() {
			m.mu.Unlock()
			t.SetState(txn.Aborted)
			return false
		}
		if wl.Mode == Exclusive && (t == holder || t.ID() == holder.ID()) {
			m.mu.Unlock()
			return true
		}
	}

	item := newWaitItem(t, Exclusive)
	wl.Waiters = append(wl.Waiters, item)
	m.mu.Unlock()

	granted := <-item.signal
	m.mu.Lock()
	m.mu.Unlock()

	if !granted {
		t.SetState(txn.Aborted)
		return false
	}
	t.AddExclusiveLock(rid)
	return true
}

// LockUpgrade promotes t's shared lock on rid to exclusive. Valid only
// while t holds rid in SHARED mode and is GROWING. The release of the
// shared hold bypasses Unlock, so it neither trips the strict-2PL check
// nor moves t to SHRINKING. If t is the only holder, the list switches
// to EXCLUSIVE in place. Otherwise the upgrade is not atomic: t's shared
// hold is dropped and LockExclusive is called, so another transaction
// can acquire rid in between and a failure leaves t holding no lock on
// rid at all.
func (m *Manager) LockUpgrade(t *txn.Transaction, rid primitives.RID) bool {
	if !isValidToAcquire(t) {
		return false
	}

	m.mu.Lock()
	wl, exists := m.table[rid]
	if !exists {
		m.mu.Unlock()
		return false
	}
	if wl.indexOfGranted(t) < 0 {
		m.mu.Unlock()
		return false
	}
	if wl.Mode == Exclusive {
		m.mu.Unlock()
		return true // already exclusive (and, per invariant, sole holder)
	}
	if len(wl.Granted) == 1 {
		wl.Mode = Exclusive
		m.mu.Unlock()
		t.RemoveSharedLock(rid)
		t.AddExclusiveLock(rid)
		return true
	}
	// Other shared holders remain, so the list stays non-empty and no
	// waiter needs waking.
	wl.removeGranted(wl.indexOfGranted(t))
	m.mu.Unlock()
	t.RemoveSharedLock(rid)

	return m.LockExclusive(t, rid)
}

// Unlock releases t's lock on rid. Under strict 2PL it is rejected
// unless t has already committed or aborted.
func (m *Manager) Unlock(t *txn.Transaction, rid primitives.RID) bool {
	if m.strict {
		s := t.State()
		if s != txn.Committed && s != txn.Aborted {
			return false
		}
	}

	m.mu.Lock()

	wl, exists := m.table[rid]
	if !exists {
		m.mu.Unlock()
		return false
	}

	idx := wl.indexOfGranted(t)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	wl.removeGranted(idx)

	if wl.Mode == Exclusive {
		t.RemoveExclusiveLock(rid)
	} else {
		t.RemoveSharedLock(rid)
	}

	if !m.strict && t.State() == txn.Growing {
		t.SetState(txn.Shrinking)
	}

	if len(wl.Granted) > 0 {
		m.mu.Unlock()
		return true
	}

	if len(wl.Waiters) == 0 {
		delete(m.table, rid)
		m.mu.Unlock()
		return true
	}

	// Wake the FIFO head, preserving arrival order among waiters.
	head := wl.Waiters[0]
	wl.Waiters = wl.Waiters[1:]
	wl.Mode = head.Mode
	wl.Granted = append(wl.Granted, head.Txn)
	head.signal <- true

	if m.waitDie {
		// Wait-Die also aborts any remaining waiter younger than the one
		// just woken, synchronously.
		survivors := wl.Waiters[:0]
		for _, w := range wl.Waiters {
			if w.Txn.ID() > head.Txn.ID() {
				w.signal <- false
			} else {
				survivors = append(survivors, w)
			}
		}
		wl.Waiters = survivors
	}

	m.mu.Unlock()
	return true
}
