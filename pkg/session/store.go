// Package session keeps one explorer state per visitor for as long as the
// visit lasts. Nothing is persisted; an expired or unknown session simply
// starts over with a freshly mounted explorer.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/chartes/dicotopo/pkg/log"
	"github.com/google/uuid"
)

type entry struct {
	state    explorer.State
	lastSeen time.Time
}

// Store maps session ids to explorer states. It is safe for concurrent
// use; updates of a single session are serialized and the last one wins.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
// A ttl <= 0 disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   log.ForService("session"),
	}
}

// Create mounts a new explorer built from settings and returns its session
// id together with the mounted state.
func (s *Store) Create(settings explorer.Settings) (string, explorer.State) {
	id := uuid.NewString()
	state := explorer.New(settings).Mount()

	s.mu.Lock()
	s.sessions[id] = &entry{state: state, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debugf("session %s mounted on %s panel", id, state.Active)
	return id, state
}

// Get returns the state of session id.
func (s *Store) Get(id string) (explorer.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return explorer.State{}, false
	}
	e.lastSeen = s.now()
	return e.state, true
}

// Update applies transition to the state of session id and stores the
// result. It reports false when the session does not exist.
func (s *Store) Update(id string, transition func(explorer.State) explorer.State) (explorer.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return explorer.State{}, false
	}
	e.state = transition(e.state)
	e.lastSeen = s.now()
	return e.state, true
}

// Delete drops session id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// live must be called with mu held.
func (s *Store) live(id string) (*entry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(e) {
		delete(s.sessions, id)
		return nil, false
	}
	return e, true
}

func (s *Store) expired(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.lastSeen) > s.ttl
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debugf("expired %d session(s)", n)
			}
		}
	}
}
