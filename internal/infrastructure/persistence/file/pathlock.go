// Package file implements the file-per-entry subscription store.
package file

import "sync"

// pathLocks is a keyed mutex registry. Operations on the same path serialize;
// operations on different paths proceed independently. Entries are never
// removed; correctness does not depend on cleanup and the key space is
// bounded by live subscription ids.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for path, creating it on first use, and returns the
// unlock function. The lock must wrap only local I/O, never a network call.
func (p *pathLocks) acquire(path string) func() {
	p.mu.Lock()
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
