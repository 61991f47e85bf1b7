// apps/go-server/internal/store/memory.go
//
// In-memory implementation of the session Store.
// Sessions live only as long as the process; nothing here is written to disk.
//
// Characteristics:
//   - Stores *game.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Get hands out copies; all mutation goes through Update so that one
//     event at a time touches a session.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for game sessions.
type Store interface {
	// Save persists or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get returns a snapshot of a session, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Update runs fn against the stored session under the write lock.
	// The error from fn is returned as-is.
	Update(ctx context.Context, id string, fn func(*game.Session) error) error

	// Delete removes a session. Missing IDs are not an error.
	Delete(ctx context.Context, id string) error

	// Sweep deletes sessions whose last activity is before cutoff and
	// reports how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)

	// Len reports how many sessions are held.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex             // guards sessions map
	sessions map[string]*game.Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Session)}
}

func (m *memory) Save(ctx context.Context, s *game.Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(*game.Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	return fn(s)
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range idle {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		// Re-check under the write lock; the session may have been touched since.
		m.mu.Lock()
		if s, ok := m.sessions[id]; ok && s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
		m.mu.Unlock()
	}
	return n, nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
