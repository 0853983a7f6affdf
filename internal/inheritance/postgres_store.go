package inheritance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/scopeauth/go-core/pkg/types"
)

// PostgresRecordStore persists inheritance records in PostgreSQL
type PostgresRecordStore struct {
	db *sql.DB
}

// NewPostgresRecordStore creates a PostgreSQL record store
func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

// Append inserts a record; records are never updated or deleted
func (s *PostgresRecordStore) Append(ctx context.Context, record *types.InheritanceRecord) error {
	sourceGroups, err := json.Marshal(record.SourceGroups)
	if err != nil {
		return fmt.Errorf("marshal source groups: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inheritance_records
			(id, principal_id, provider, source_groups, granted_permissions, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.PrincipalID, record.Provider,
		sourceGroups, pq.Array(record.GrantedPermissions), record.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inheritance record: %w", err)
	}
	return nil
}

// ListByPrincipal returns a principal's records oldest-first
func (s *PostgresRecordStore) ListByPrincipal(ctx context.Context, principalID string) ([]*types.InheritanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, principal_id, provider, source_groups, granted_permissions, resolved_at
		FROM inheritance_records
		WHERE principal_id = $1
		ORDER BY resolved_at ASC`,
		principalID,
	)
	if err != nil {
		return nil, fmt.Errorf("query inheritance records: %w", err)
	}
	defer rows.Close()

	var records []*types.InheritanceRecord
	for rows.Next() {
		var (
			record       types.InheritanceRecord
			sourceGroups []byte
			granted      pq.StringArray
		)
		if err := rows.Scan(&record.ID, &record.PrincipalID, &record.Provider,
			&sourceGroups, &granted, &record.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan inheritance record: %w", err)
		}
		if err := json.Unmarshal(sourceGroups, &record.SourceGroups); err != nil {
			return nil, fmt.Errorf("decode source groups for %s: %w", record.ID, err)
		}
		record.GrantedPermissions = granted
		records = append(records, &record)
	}
	return records, rows.Err()
}

// PostgresPermissionStore holds principal permission sets in PostgreSQL.
// Merge relies on ON CONFLICT DO NOTHING, so concurrent merges are safe
// and strictly additive.
type PostgresPermissionStore struct {
	db *sql.DB
}

// NewPostgresPermissionStore creates a PostgreSQL permission store
func NewPostgresPermissionStore(db *sql.DB) *PostgresPermissionStore {
	return &PostgresPermissionStore{db: db}
}

// Merge unions the permissions into the principal's current set
func (s *PostgresPermissionStore) Merge(ctx context.Context, principalID string, permissions []string) error {
	if len(permissions) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principal_permissions (principal_id, permission)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (principal_id, permission) DO NOTHING`,
		principalID, pq.Array(permissions),
	)
	if err != nil {
		return fmt.Errorf("merge permissions: %w", err)
	}
	return nil
}

// Get returns the principal's current permission set, sorted
func (s *PostgresPermissionStore) Get(ctx context.Context, principalID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT permission FROM principal_permissions
		WHERE principal_id = $1
		ORDER BY permission ASC`,
		principalID,
	)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

var _ RecordStore = (*PostgresRecordStore)(nil)
var _ PermissionStore = (*PostgresPermissionStore)(nil)
