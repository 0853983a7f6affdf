package contexts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/scopeauth/go-core/pkg/types"
)

// PostgresSessionStore persists sessions in PostgreSQL. The whole session
// is stored as one JSON document keyed by (principal_id, session_id), the
// same shape the Redis store uses.
type PostgresSessionStore struct {
	db *sql.DB
}

// NewPostgresSessionStore creates a PostgreSQL session store
func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

// Get returns the stored session, or nil when absent
func (s *PostgresSessionStore) Get(ctx context.Context, principalID, sessionID string) (*types.ContextSession, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT document FROM context_sessions
		WHERE principal_id = $1 AND session_id = $2`,
		principalID, sessionID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	var session types.ContextSession
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Set stores or replaces the session
func (s *PostgresSessionStore) Set(ctx context.Context, session *types.ContextSession) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO context_sessions (principal_id, session_id, document, switched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal_id, session_id)
		DO UPDATE SET document = EXCLUDED.document, switched_at = EXCLUDED.switched_at`,
		session.PrincipalID, session.SessionID, doc, session.SwitchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Delete removes the session; deleting an absent session is a no-op
func (s *PostgresSessionStore) Delete(ctx context.Context, principalID, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM context_sessions
		WHERE principal_id = $1 AND session_id = $2`,
		principalID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

var _ SessionStore = (*PostgresSessionStore)(nil)
