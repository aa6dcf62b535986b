package command

import "sync"

// userLocks serializes rule evaluation and alert reconciliation per user while
// leaving different users' writes fully parallel. The serializable store
// transaction already rejects conflicting concurrent units; the lock keeps
// same-user units from burning their retry budget against each other.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for userID and returns its unlock function.
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
