package usecase

import "sync"

// sessionLocks hands out one mutex per session. An entry lives only while
// some call holds or waits for it, so ended sessions leave nothing behind.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the session is free and returns the matching unlock.
func (that *sessionLocks) lock(sessionID string) func() {
	that.mu.Lock()
	if that.locks == nil {
		that.locks = make(map[string]*sessionLock)
	}

	entry, ok := that.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		that.locks[sessionID] = entry
	}
	entry.refs++
	that.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		that.mu.Lock()
		defer that.mu.Unlock()

		entry.refs--
		if entry.refs == 0 {
			delete(that.locks, sessionID)
		}
	}
}

func (that *sessionLocks) count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.locks)
}
