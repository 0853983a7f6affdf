package delegation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/scopeauth/go-core/pkg/types"
)

// PostgresStore persists delegations in PostgreSQL. Mutate runs inside a
// transaction with SELECT ... FOR UPDATE, so concurrent usage recording on
// one delegation serializes at the row lock.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL delegation store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// delegationRow is the JSON document stored per delegation. The mutable
// histories live in one document; indexed columns carry the query keys.
func encodeDelegation(d *types.Delegation) ([]byte, error) {
	return json.Marshal(d)
}

func decodeDelegation(data []byte) (*types.Delegation, error) {
	var d types.Delegation
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode delegation: %w", err)
	}
	return &d, nil
}

// Add stores a new delegation
func (s *PostgresStore) Add(ctx context.Context, delegation *types.Delegation) error {
	doc, err := encodeDelegation(delegation)
	if err != nil {
		return fmt.Errorf("encode delegation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO delegations (id, from_principal, to_principal, permission, document, delegated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		delegation.ID, delegation.FromPrincipal, delegation.ToPrincipal,
		delegation.Permission, doc, delegation.DelegatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delegation: %w", err)
	}
	return nil
}

// Get retrieves a delegation by id
func (s *PostgresStore) Get(ctx context.Context, id string) (*types.Delegation, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM delegations WHERE id = $1`, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewNotFoundError("delegation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query delegation: %w", err)
	}
	return decodeDelegation(doc)
}

// ListByFrom retrieves all delegations granted by a principal
func (s *PostgresStore) ListByFrom(ctx context.Context, fromPrincipal string) ([]*types.Delegation, error) {
	return s.list(ctx, `SELECT document FROM delegations WHERE from_principal = $1 ORDER BY delegated_at ASC`, fromPrincipal)
}

// ListByTo retrieves all delegations granted to a principal
func (s *PostgresStore) ListByTo(ctx context.Context, toPrincipal string) ([]*types.Delegation, error) {
	return s.list(ctx, `SELECT document FROM delegations WHERE to_principal = $1 ORDER BY delegated_at ASC`, toPrincipal)
}

func (s *PostgresStore) list(ctx context.Context, query, arg string) ([]*types.Delegation, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query delegations: %w", err)
	}
	defer rows.Close()

	var delegations []*types.Delegation
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan delegation: %w", err)
		}
		d, err := decodeDelegation(doc)
		if err != nil {
			return nil, err
		}
		delegations = append(delegations, d)
	}
	return delegations, rows.Err()
}

// Mutate applies fn to the delegation under a row lock
func (s *PostgresStore) Mutate(ctx context.Context, id string, fn func(*types.Delegation) error) (*types.Delegation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.QueryRowContext(ctx,
		`SELECT document FROM delegations WHERE id = $1 FOR UPDATE`, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewNotFoundError("delegation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock delegation: %w", err)
	}

	delegation, err := decodeDelegation(doc)
	if err != nil {
		return nil, err
	}
	if err := fn(delegation); err != nil {
		return nil, err
	}

	updated, err := encodeDelegation(delegation)
	if err != nil {
		return nil, fmt.Errorf("encode delegation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE delegations SET document = $2 WHERE id = $1`, id, updated,
	); err != nil {
		return nil, fmt.Errorf("update delegation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delegation update: %w", err)
	}
	return delegation, nil
}

var _ Store = (*PostgresStore)(nil)
