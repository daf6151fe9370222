// internal/app/entitystore/entitystore.go
//
// Package entitystore holds the current authoritative snapshot for this
// process. It does no validation; whoever calls Replace supplies a complete,
// well-formed snapshot.
package entitystore

import (
	"sync"

	"github.com/dalemusser/eduverse/internal/domain/models"
)

// Listener is called after every Replace with the new snapshot and revision.
// Listeners run synchronously on the replacing goroutine and must not call
// Replace.
type Listener func(snap models.Snapshot, rev uint64)

// Store holds one snapshot. Reads return copies, so a caller can never
// modify the held state except through Replace.
type Store struct {
	mu        sync.RWMutex
	snap      models.Snapshot
	rev       uint64
	listeners map[uint64]Listener
	nextID    uint64
}

// New returns a store holding initial (normalized).
func New(initial models.Snapshot) *Store {
	s := &Store{listeners: make(map[uint64]Listener)}
	s.snap = initial.Clone()
	s.snap.Normalize()
	return s
}

// Snapshot returns a deep copy of the held snapshot.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// View calls fn with the held snapshot and its revision under one read
// lock, so the pair always matches. fn must not keep or modify any part of
// the snapshot, and must not call Replace.
func (s *Store) View(fn func(snap models.Snapshot, rev uint64)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.snap, s.rev)
}

// Revision returns how many times the snapshot has been replaced.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Replace atomically swaps the held snapshot for next and notifies listeners.
func (s *Store) Replace(next models.Snapshot) uint64 {
	next = next.Clone()
	next.Normalize()

	s.mu.Lock()
	s.snap = next
	s.rev++
	rev := s.rev
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(next.Clone(), rev)
	}
	return rev
}

// OnReplace registers fn and returns a function that removes it.
func (s *Store) OnReplace(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
