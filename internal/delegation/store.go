// Package delegation creates, validates, and revokes bounded permission
// delegations between principals.
package delegation

import (
	"context"

	"github.com/scopeauth/go-core/pkg/types"
)

// Store persists delegations. Delegations are never deleted; revoked and
// expired ones remain queryable for audit.
//
// Mutate applies fn to the delegation under the store's own concurrency
// control (a lock in memory, a row lock in SQL), so read-modify-write
// sequences like the usage-count increment cannot race.
type Store interface {
	Add(ctx context.Context, delegation *types.Delegation) error
	Get(ctx context.Context, id string) (*types.Delegation, error)
	ListByFrom(ctx context.Context, fromPrincipal string) ([]*types.Delegation, error)
	ListByTo(ctx context.Context, toPrincipal string) ([]*types.Delegation, error)
	Mutate(ctx context.Context, id string, fn func(*types.Delegation) error) (*types.Delegation, error)
}
