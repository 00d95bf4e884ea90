package storage

import (
	"context"
	"sync"
)

// MemorySessionStore keeps sessions in process memory. Suitable for tests
// and single-process deployments without persistence requirements.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]string
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		byUser:   make(map[string]string),
	}
}

func userKey(userID, flowName string) string {
	return userID + "\x00" + flowName
}

// Get returns the session with the given ID.
func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// GetByUser returns the user's session for the named flow.
func (m *MemorySessionStore) GetByUser(_ context.Context, userID, flowName string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUser[userKey(userID, flowName)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Put inserts or replaces a session.
func (m *MemorySessionStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s.Clone()
	m.sessions[cp.ID] = cp
	m.byUser[userKey(cp.UserID, cp.FlowName)] = cp.ID
	return nil
}

// Delete removes a session by ID.
func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		delete(m.byUser, userKey(s.UserID, s.FlowName))
		delete(m.sessions, id)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemorySessionStore) Close() error { return nil }
