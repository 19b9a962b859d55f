package calculator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or evicted session ID.
var ErrSessionNotFound = errors.New("session not found")

// Session is a snapshot of one calculator as seen by a client.
type Session struct {
	ID        string
	State     State
	UpdatedAt time.Time
}

type sessionEntry struct {
	mu        sync.Mutex
	state     State
	updatedAt time.Time
	removed   bool
}

func (e *sessionEntry) snapshot(id string) Session {
	return Session{ID: id, State: e.state, UpdatedAt: e.updatedAt}
}

// Store keeps calculator sessions in memory. Key presses on a single session
// are applied one at a time; separate sessions do not contend.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

// Create opens a session in the initial state.
func (s *Store) Create() Session {
	id := uuid.New().String()
	e := &sessionEntry{state: InitialState(), updatedAt: s.now()}

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	return e.snapshot(id)
}

func (s *Store) lookup(id string) (*sessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// Get returns the current snapshot of a session.
func (s *Store) Get(id string) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e.snapshot(id), nil
}

// Apply presses labels on the session in order. An unknown label rejects the
// whole sequence and leaves the session unchanged.
func (s *Store) Apply(id string, labels []string) (Session, error) {
	actions, err := ParseKeys(labels)
	if err != nil {
		return Session{}, err
	}
	_, after, err := s.ApplyActions(id, actions, nil)
	return after, err
}

// KeyObserver is called under the session lock just before action i is
// applied to prev. The returned func, if any, receives the resulting state.
type KeyObserver func(i int, a Action, prev State) func(next State)

// ApplyActions applies actions to the session while holding its lock and
// returns the snapshots from before and after the sequence.
func (s *Store) ApplyActions(id string, actions []Action, observe KeyObserver) (before, after Session, err error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Session{}, Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	before = e.snapshot(id)
	for i, a := range actions {
		var done func(State)
		if observe != nil {
			done = observe(i, a, e.state)
		}
		e.state = Apply(e.state, a)
		if done != nil {
			done(e.state)
		}
	}
	e.updatedAt = s.now()
	return before, e.snapshot(id), nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return nil
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle drops every session untouched for longer than ttl and returns
// how many were removed.
func (s *Store) EvictIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		if e.updatedAt.Before(cutoff) {
			e.removed = true
			delete(s.sessions, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}
