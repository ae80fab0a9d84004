package services

import "sync"

// DocumentLocker serializes pipeline mutations per document.
// Different documents never block each other.
type DocumentLocker struct {
	mu    sync.Mutex
	locks map[string]*documentLock
}

type documentLock struct {
	mu   sync.Mutex
	refs int
}

// NewDocumentLocker creates an empty locker
func NewDocumentLocker() *DocumentLocker {
	return &DocumentLocker{locks: make(map[string]*documentLock)}
}

// Lock blocks until the document is free and returns the matching unlock
func (l *DocumentLocker) Lock(documentID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[documentID]
	if !ok {
		lock = &documentLock{}
		l.locks[documentID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()

			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, documentID)
			}
			l.mu.Unlock()
		})
	}
}

// Held returns how many documents currently have a holder or waiter
func (l *DocumentLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
