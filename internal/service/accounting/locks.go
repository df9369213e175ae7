package accounting

import "sync"

// ownerLocks serializes mutating workflows per owner. There is no ambient
// multi-document transaction, so two concurrent workflows against the same
// owner must not interleave their read-modify-write cycles on the ledgers.
// Cross-owner operations run in parallel with no coordination.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the owner's lock is held and returns the release
// function.
func (l *ownerLocks) acquire(ownerID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[ownerID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
