package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns all live sessions.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	now        func() time.Time
	localCheck func() error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLocalCheck sets the check used to tell users whether a local fallback
// re-run is possible.
func WithLocalCheck(fn func() error) ManagerOption {
	return func(m *Manager) { m.localCheck = fn }
}

// NewManager creates an empty Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := newSession(m.now(), m.localCheck)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given id and marks it as seen.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap removes sessions idle for longer than ttl. Running sessions are kept.
func (m *Manager) Reap(ttl time.Duration) int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.idle(now, ttl) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// RunReaper calls Reap every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Reap(ttl); n > 0 {
				zap.L().Info("session: reaped idle sessions", zap.Int("count", n), zap.Int("live", m.Len()))
			}
		}
	}
}
