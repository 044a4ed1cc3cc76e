// Package kv provides a generic thread-safe key-value store used for caches
// shared between the TUI loop and background commands.
package kv

import "sync"

// Store is a thread-safe generic key-value store.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
	max  int
	keys []K // insertion order, used for eviction when max > 0
}

// New creates a new unbounded key-value store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		data: make(map[K]V),
	}
}

// NewBounded creates a store that evicts the oldest entry once it holds max
// entries.
func NewBounded[K comparable, V any](max int) *Store[K, V] {
	s := New[K, V]()
	s.max = max
	return s
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
}

func (s *Store[K, V]) set(key K, value V) {
	if _, exists := s.data[key]; !exists {
		s.keys = append(s.keys, key)
		if s.max > 0 && len(s.keys) > s.max {
			oldest := s.keys[0]
			s.keys = s.keys[1:]
			delete(s.data, oldest)
		}
	}
	s.data[key] = value
}

// GetOrCompute returns the value for key, computing and storing it with fn
// when absent. fn runs under the write lock and must not call back into s.
func (s *Store[K, V]) GetOrCompute(key K, fn func() V) V {
	if v, ok := s.Get(key); ok {
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v
	}
	v := fn()
	s.set(key, v)
	return v
}

// Delete removes a key from the store.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Clear removes all entries from the store.
func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[K]V)
	s.keys = nil
}

// Len returns the number of items in the store.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys in insertion order.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]K(nil), s.keys...)
}
