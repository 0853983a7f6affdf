package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/scopeauth/go-core/pkg/types"
)

// PostgresWriter persists audit events to PostgreSQL. It satisfies Writer
// so it can sit behind the async logger; callers never wait on it.
type PostgresWriter struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresWriter creates a PostgreSQL audit writer
func NewPostgresWriter(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db, timeout: 5 * time.Second}
}

// Write inserts one event
func (w *PostgresWriter) Write(event *types.AuditEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal event details: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	_, err = w.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, event_type, principal_id, details, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, string(event.Type), event.PrincipalID, details, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query returns events for a principal in reverse chronological order
func (w *PostgresWriter) Query(ctx context.Context, principalID string, limit int) ([]*types.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := w.db.QueryContext(ctx, `
		SELECT id, event_type, principal_id, details, timestamp
		FROM audit_events
		WHERE principal_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`,
		principalID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*types.AuditEvent
	for rows.Next() {
		var (
			event   types.AuditEvent
			details []byte
		)
		if err := rows.Scan(&event.ID, &event.Type, &event.PrincipalID, &details, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("decode audit event %s: %w", event.ID, err)
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Close is a no-op; the caller owns the *sql.DB
func (w *PostgresWriter) Close() error {
	return nil
}
