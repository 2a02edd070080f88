package lock

import "storagecore/pkg/txn"

// WaitItem is a single queued lock request: the requesting
// transaction, the mode it wants, and a one-shot signal the granter
// writes true (granted) or false (aborted by Wait-Die) to exactly
// once.
type WaitItem struct {
	Txn    *txn.Transaction
	Mode   Mode
	signal chan bool
}

func newWaitItem(t *txn.Transaction, mode Mode) *WaitItem {
	return &WaitItem{Txn: t, Mode: mode, signal: make(chan bool, 1)}
}

// WaitList is the lock table's value type: the mode currently granted,
// the ordered set of transactions holding it, and the FIFO of waiters.
// Created lazily on first locker, destroyed when both granted and
// waiters are empty after an unlock.
type WaitList struct {
	Mode    Mode
	Granted []*txn.Transaction
	Waiters []*WaitItem
}

func newWaitList(mode Mode, first *txn.Transaction) *WaitList {
	return &WaitList{Mode: mode, Granted: []*txn.Transaction{first}}
}

func (wl *WaitList) indexOfGranted(t *txn.Transaction) int {
	for i, g := range wl.Granted {
		if g == t {
			return i
		}
	}
	return -1
}

func (wl *WaitList) removeGranted(i int) {
	wl.Granted = append(wl.Granted[:i], wl.Granted[i+1:]...)
}
