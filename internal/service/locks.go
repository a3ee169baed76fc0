package service

import "sync"

// RequestLocks serializes mutations of the same request id. Entries are
// reference counted and dropped once no goroutine holds or waits on them.
type RequestLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewRequestLocks() *RequestLocks {
	return &RequestLocks{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the caller owns id and returns the matching unlock func.
func (l *RequestLocks) Lock(id string) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *RequestLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
