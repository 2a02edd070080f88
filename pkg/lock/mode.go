// Package lock implements the tuple-level two-phase lock manager:
// shared/exclusive row locks with Wait-Die deadlock avoidance and an
// optional strict-2PL mode, each request queued behind a one-shot
// channel the granter signals exactly once.
package lock

// Mode is the granted mode of a WaitList: SHARED or EXCLUSIVE.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}
