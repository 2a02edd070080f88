package txn

import (
	"testing"

	"storagecore/pkg/primitives"
)

func TestNewAssignsMonotonicIDs(t *testing.T) {
	a := New()
	b := New()
	if b.ID() <= a.ID() {
		t.Fatalf("expected monotonically increasing ids, got %d then %d", a.ID(), b.ID())
	}
}

func TestStateTransitions(t *testing.T) {
	tr := NewWithID(1)
	if tr.State() != Growing {
		t.Fatalf("new transaction should start GROWING")
	}
	tr.SetState(Shrinking)
	if tr.State() != Shrinking {
		t.Fatalf("expected SHRINKING after SetState")
	}
}

func TestLockSetBookkeeping(t *testing.T) {
	tr := NewWithID(1)
	rid := primitives.NewRID(1, 0)

	tr.AddSharedLock(rid)
	if !tr.HasSharedLock(rid) {
		t.Fatalf("expected shared lock recorded")
	}

	tr.RemoveSharedLock(rid)
	if tr.HasSharedLock(rid) {
		t.Fatalf("expected shared lock removed")
	}

	tr.AddExclusiveLock(rid)
	if !tr.HasExclusiveLock(rid) {
		t.Fatalf("expected exclusive lock recorded")
	}
}
