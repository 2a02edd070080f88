// Package txn implements the external Transaction type the lock
// manager depends on: a
// monotonic id (lower is older, which is what Wait-Die compares), a
// two-phase-locking state machine, and the shared/exclusive lock sets
// the lock manager populates on grant and drains on unlock.
package txn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"storagecore/pkg/primitives"
)

// State is the two-phase-locking state machine a Transaction moves
// through: GROWING while it is still allowed to acquire locks,
// SHRINKING once it starts releasing them, then COMMITTED or ABORTED.
type State int

const (
	Growing State = iota
	Shrinking
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Growing:
		return "GROWING"
	case Shrinking:
		return "SHRINKING"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

var idCounter int64

// Transaction is the minimal shape the lock manager needs from a
// transaction: an id for Wait-Die ordering, a state for 2PL-violation
// detection, and the RID sets it currently holds. Log records carry
// only its ID.
type Transaction struct {
	id    int64
	mu    sync.Mutex
	state State

	sharedLocks    map[primitives.RID]struct{}
	exclusiveLocks map[primitives.RID]struct{}
}

// New allocates a Transaction with a fresh, strictly increasing id.
func New() *Transaction {
	return &Transaction{
		id:             atomic.AddInt64(&idCounter, 1),
		state:          Growing,
		sharedLocks:    make(map[primitives.RID]struct{}),
		exclusiveLocks: make(map[primitives.RID]struct{}),
	}
}

// NewWithID constructs a Transaction with an explicit id, used only by
// tests that need to control Wait-Die ordering deterministically.
func NewWithID(id int64) *Transaction {
	return &Transaction{
		id:             id,
		state:          Growing,
		sharedLocks:    make(map[primitives.RID]struct{}),
		exclusiveLocks: make(map[primitives.RID]struct{}),
	}
}

func (t *Transaction) ID() int64 { return t.id }

func (t *Transaction) String() string { return fmt.Sprintf("Txn(%d)", t.id) }

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Transaction) AddSharedLock(rid primitives.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sharedLocks[rid] = struct{}{}
}

func (t *Transaction) AddExclusiveLock(rid primitives.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exclusiveLocks[rid] = struct{}{}
}

func (t *Transaction) RemoveSharedLock(rid primitives.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sharedLocks, rid)
}

func (t *Transaction) RemoveExclusiveLock(rid primitives.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.exclusiveLocks, rid)
}

func (t *Transaction) HasSharedLock(rid primitives.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sharedLocks[rid]
	return ok
}

func (t *Transaction) HasExclusiveLock(rid primitives.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.exclusiveLocks[rid]
	return ok
}

// SharedLockSet returns a snapshot of the RIDs currently held in shared
// mode. Intended for diagnostics/tests; mutate via AddSharedLock /
// RemoveSharedLock instead of the returned map.
func (t *Transaction) SharedLockSet() map[primitives.RID]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[primitives.RID]struct{}, len(t.sharedLocks))
	for k := range t.sharedLocks {
		out[k] = struct{}{}
	}
	return out
}

func (t *Transaction) ExclusiveLockSet() map[primitives.RID]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[primitives.RID]struct{}, len(t.exclusiveLocks))
	for k := range t.exclusiveLocks {
		out[k] = struct{}{}
	}
	return out
}
