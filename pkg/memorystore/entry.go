package memorystore

import (
	"sync"
	"time"
)

// Entry is a cached payload stamped with its capture time.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}

// Slot holds at most one entry. Set replaces it wholesale; nothing is ever evicted.
type Slot[T any] struct {
	mu    sync.RWMutex
	entry *Entry[T]
}

func (s *Slot[T]) Get() (Entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return Entry[T]{}, false
	}
	return *s.entry, true
}

func (s *Slot[T]) Set(data T, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = &Entry[T]{Data: data, Timestamp: at}
}

// Store is a set of named slots, one per logical operation.
type Store[T any] struct {
	globalMu sync.RWMutex
	data     map[string]*Slot[T]
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make(map[string]*Slot[T])}
}

func (s *Store[T]) slot(key string) *Slot[T] {
	s.globalMu.RLock()
	slot, ok := s.data[key]
	s.globalMu.RUnlock()
	if ok {
		return slot
	}

	s.globalMu.Lock()
	defer s.globalMu.Unlock()
	if slot, ok = s.data[key]; !ok {
		slot = &Slot[T]{}
		s.data[key] = slot
	}
	return slot
}

// Get returns the entry under key regardless of age.
func (s *Store[T]) Get(key string) (Entry[T], bool) {
	return s.slot(key).Get()
}

// GetFresh returns the entry under key only if it is younger than ttl.
func (s *Store[T]) GetFresh(key string, now time.Time, ttl time.Duration) (T, bool) {
	e, ok := s.Get(key)
	if !ok || !e.Fresh(now, ttl) {
		var zero T
		return zero, false
	}
	return e.Data, true
}

func (s *Store[T]) Set(key string, data T, at time.Time) {
	s.slot(key).Set(data, at)
}
