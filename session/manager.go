package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liamcoop/cardiorisk/internal/logger"
)

// Manager keeps sessions in memory, keyed by id.
// Thread-safe for concurrent access.
type Manager struct {
	deps     *Deps
	idleTTL  time.Duration
	sessions map[string]*Session
	mu       sync.RWMutex
}

func NewManager(deps Deps, idleTTL time.Duration) *Manager {
	return &Manager{
		deps:     &deps,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, if it exists.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	return s, ok
}

// Create starts a new session with a random id.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.deps)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	return s
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
// created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Sessions with a
// submission outstanding are kept. It returns the number removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		lastSeen, busy := s.idleSince()
		if busy {
			continue
		}
		if now.Sub(lastSeen) > m.idleTTL {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				logger.Debug("Expired idle sessions", "removed", n, "remaining", m.Len())
			}
		}
	}
}
