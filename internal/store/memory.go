// internal/store/memory.go
//
// Session wrapper and in-memory implementation of the session Store
// interface. A Session pairs a live engine with the mutex that serializes
// access to it: the engine itself is unsynchronized, so every handler path
// must go through the session's wrapper methods. Stored state is lost on
// restart, which is fine because round state is deliberately not persisted.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/ahorcado-game/server/internal/game"
)

// ErrNotFound is returned by Get for an unknown game ID.
var ErrNotFound = errors.New("store: game not found")

// Session owns one live engine and serializes all access to it.
// Concurrent requests for the same game ID queue here instead of racing
// on the engine's round state.
type Session struct {
	mu  sync.Mutex
	eng *game.Engine
}

// NewSession wraps an engine for shared use.
func NewSession(e *game.Engine) *Session {
	return &Session{eng: e}
}

// ID reports the wrapped engine's identifier.
func (s *Session) ID() string { return s.eng.ID }

// Guess resolves a letter under the session lock.
func (s *Session) Guess(letter string) (game.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Guess(letter)
}

// Snapshot projects the current round under the session lock.
func (s *Session) Snapshot() (game.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Snapshot()
}

// Store is the persistence interface for live game sessions.
type Store interface {
	// Save persists or updates a session keyed by its engine ID.
	Save(ctx context.Context, sess *Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
}

// memory is a map-based Store guarded by an RWMutex.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session)}
}

func (m *memory) Save(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID()] = sess
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return nil, ErrNotFound
}
