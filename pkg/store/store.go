package store

import (
	"strings"
	"sync/atomic"

	"github.com/speakeasy-api/openapi/sequencedmap"

	"phpcore/pkg/conc"
	"phpcore/pkg/value"
)

// Store is a string-keyed map of values shared between execution contexts.
// Every operation runs under one mutex; there is no lock-free path.
//
// The store owns one reference to each stored value: it retains on insert
// and releases on overwrite, removal, Clear and Destroy. Values handed out
// by Get and Swap are separate references owned by the caller.
type Store struct {
	mu      conc.Mutex
	entries *sequencedmap.Map[string, value.Value]
	access  atomic.Uint64
}

// New creates an empty store
func New() *Store {
	return &Store{
		entries: sequencedmap.New[string, value.Value](),
	}
}

// Set stores a retained copy of v under key, releasing any previous value.
// The caller keeps its own reference to v.
func (s *Store) Set(key string, v value.Value) {
	s.access.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := v.Retain()
	if old, ok := s.entries.Get(key); ok {
		s.entries.Set(key, stored)
		old.Release()
		return
	}
	s.entries.Set(strings.Clone(key), stored)
}

// Get returns a retained copy of the value under key. The caller owns the
// result and must release it.
func (s *Store) Get(key string) (value.Value, bool) {
	s.access.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries.Get(key)
	if !ok {
		return value.Null, false
	}
	return v.Retain(), true
}

// Remove deletes key and releases its value
func (s *Store) Remove(key string) bool {
	s.access.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries.Get(key)
	if !ok {
		return false
	}
	s.entries.Delete(key)
	v.Release()
	return true
}

// Swap stores a retained copy of v under key and hands the previous value,
// if any, to the caller without releasing it
func (s *Store) Swap(key string, v value.Value) (value.Value, bool) {
	s.access.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries.Get(key)
	if !ok {
		key = strings.Clone(key)
	}
	s.entries.Set(key, v.Retain())
	return old, ok
}

// Has reports whether key is present
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries.Get(key)
	return ok
}

// Size returns the number of entries
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Keys returns the keys in insertion order
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, s.entries.Len())
	for k := range s.entries.All() {
		keys = append(keys, k)
	}
	return keys
}

// Clear releases every value and empties the store
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	old := s.entries
	s.entries = sequencedmap.New[string, value.Value]()
	for _, v := range old.All() {
		v.Release()
	}
}

// Destroy tears the store down, releasing every value. The store is empty
// but still usable afterwards.
func (s *Store) Destroy() {
	s.Clear()
}

// AccessCount returns the number of Set, Get, Remove and Swap calls so far
func (s *Store) AccessCount() uint64 {
	return s.access.Load()
}
