package contexts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scopeauth/go-core/pkg/types"
)

// RedisSessionStore persists context sessions in Redis, for deployments
// where several request handlers serve the same principal.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store. A zero ttl
// keeps sessions until explicitly deleted.
func NewRedisSessionStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = "authz:session:"
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSessionStore) key(principalID, sessionID string) string {
	return s.prefix + principalID + ":" + sessionID
}

// Get returns the stored session, or nil when absent
func (s *RedisSessionStore) Get(ctx context.Context, principalID, sessionID string) (*types.ContextSession, error) {
	data, err := s.client.Get(ctx, s.key(principalID, sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session types.ContextSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Set stores or replaces the session
func (s *RedisSessionStore) Set(ctx context.Context, session *types.ContextSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.PrincipalID, session.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Delete removes the session
func (s *RedisSessionStore) Delete(ctx context.Context, principalID, sessionID string) error {
	if err := s.client.Del(ctx, s.key(principalID, sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

var _ SessionStore = (*RedisSessionStore)(nil)
var _ SessionStore = (*InMemorySessionStore)(nil)
