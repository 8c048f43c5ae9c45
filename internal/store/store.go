// Package store holds client-side state containers. Each update replaces the
// state value as a whole and notifies subscribers synchronously.
package store

import (
	"slices"
	"sync"

	"github.com/maruel/natural"
)

// Store is a subscribable value. Subscribers must not call Set or Update
// on the same store from inside their callback.
type Store[T any] struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	value   T
	subs    map[int]func(T)
	nextSub int
}

func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.setLocked(v)
}

// Update applies fn to the current value and stores the result.
func (s *Store[T]) Update(fn func(T) T) T {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	v := fn(s.Get())
	s.setLocked(v)
	return v
}

func (s *Store[T]) setLocked(v T) {
	s.mu.Lock()
	s.value = v
	subs := make([]func(T), 0, len(s.subs))
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		subs = append(subs, s.subs[k])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe calls fn with the current value and then after every change,
// in subscription order. The returned func unsubscribes.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	s.writeMu.Lock()
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	v := s.value
	s.mu.Unlock()
	fn(v)
	s.writeMu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// naturalCompare orders strings so that "Chapter 2" sorts before "Chapter 10".
func naturalCompare(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}

// replaceByID swaps the element whose id matches, leaving order intact.
func replaceByID[T any](items []T, id func(T) string, v T) []T {
	out := slices.Clone(items)
	for i := range out {
		if id(out[i]) == id(v) {
			out[i] = v
		}
	}
	return out
}

func removeByID[T any](items []T, id func(T) string, target string) []T {
	return slices.DeleteFunc(slices.Clone(items), func(v T) bool { return id(v) == target })
}
