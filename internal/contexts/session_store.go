package contexts

import (
	"context"
	"sync"

	"github.com/scopeauth/go-core/pkg/types"
)

// SessionStore persists the active-context session per (principal,
// session). Get returns nil (not an error) when no session exists.
type SessionStore interface {
	Get(ctx context.Context, principalID, sessionID string) (*types.ContextSession, error)
	Set(ctx context.Context, session *types.ContextSession) error
	Delete(ctx context.Context, principalID, sessionID string) error
}

type sessionKey struct {
	principalID string
	sessionID   string
}

// InMemorySessionStore is the in-memory SessionStore
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*types.ContextSession
}

// NewInMemorySessionStore creates an in-memory session store
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[sessionKey]*types.ContextSession)}
}

// Get returns the stored session, or nil when absent
func (s *InMemorySessionStore) Get(_ context.Context, principalID, sessionID string) (*types.ContextSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionKey{principalID, sessionID}]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// Set stores or replaces the session
func (s *InMemorySessionStore) Set(_ context.Context, session *types.ContextSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[sessionKey{session.PrincipalID, session.SessionID}] = &copied
	return nil
}

// Delete removes the session; deleting an absent session is a no-op
func (s *InMemorySessionStore) Delete(_ context.Context, principalID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionKey{principalID, sessionID})
	return nil
}
