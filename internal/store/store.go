package store

import (
	"log"
	"sync"
)

// Listener is notified after every dispatch with the new state and the
// action that produced it
type Listener func(state AppState, action Action)

// Store is the single state container the engine's outputs flow through.
// It holds the current immutable AppState and replaces it wholesale on each
// dispatch; readers always see a fully-formed snapshot, never a partial
// update.
type Store struct {
	mu        sync.RWMutex
	state     AppState
	listeners map[int]Listener
	nextID    int
}

// New creates a store seeded with the given initial state
func New(initial AppState) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// GetState returns the current state snapshot. The contained slices are
// shared but immutable by convention; callers must not modify them.
func (s *Store) GetState() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch runs the action through the reducer, swaps in the new state, and
// notifies listeners. Listener panics are contained so one misbehaving
// subscriber cannot take down the dispatch path.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	next := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("store: listener panicked on %s: %v", action.ActionType(), r)
				}
			}()
			listener(next, action)
		}()
	}
}

// Subscribe registers a listener and returns a function that removes it
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
