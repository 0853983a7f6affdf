package delegation

import (
	"context"
	"sync"

	"github.com/scopeauth/go-core/pkg/types"
)

// InMemoryStore provides in-memory delegation storage with from/to indexes
type InMemoryStore struct {
	mu          sync.RWMutex
	delegations map[string]*types.Delegation
	fromIndex   map[string][]string
	toIndex     map[string][]string
}

// NewInMemoryStore creates a new in-memory delegation store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		delegations: make(map[string]*types.Delegation),
		fromIndex:   make(map[string][]string),
		toIndex:     make(map[string][]string),
	}
}

// Add stores a new delegation
func (s *InMemoryStore) Add(_ context.Context, delegation *types.Delegation) error {
	if delegation == nil || delegation.ID == "" {
		return types.NewValidationError("delegation", "id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.delegations[delegation.ID]; exists {
		return types.NewValidationError("delegation", "id "+delegation.ID+" already exists")
	}

	copied := *delegation
	s.delegations[delegation.ID] = &copied
	s.fromIndex[delegation.FromPrincipal] = append(s.fromIndex[delegation.FromPrincipal], delegation.ID)
	s.toIndex[delegation.ToPrincipal] = append(s.toIndex[delegation.ToPrincipal], delegation.ID)
	return nil
}

// Get retrieves a delegation by id
func (s *InMemoryStore) Get(_ context.Context, id string) (*types.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delegation, exists := s.delegations[id]
	if !exists {
		return nil, types.NewNotFoundError("delegation", id)
	}
	copied := *delegation
	return &copied, nil
}

// ListByFrom retrieves all delegations granted by a principal
func (s *InMemoryStore) ListByFrom(_ context.Context, fromPrincipal string) ([]*types.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.fromIndex[fromPrincipal]), nil
}

// ListByTo retrieves all delegations granted to a principal
func (s *InMemoryStore) ListByTo(_ context.Context, toPrincipal string) ([]*types.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.toIndex[toPrincipal]), nil
}

// Mutate applies fn to the delegation under the store lock. When fn
// returns an error the stored delegation is left unchanged.
func (s *InMemoryStore) Mutate(_ context.Context, id string, fn func(*types.Delegation) error) (*types.Delegation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delegation, exists := s.delegations[id]
	if !exists {
		return nil, types.NewNotFoundError("delegation", id)
	}

	working := *delegation
	if err := fn(&working); err != nil {
		return nil, err
	}

	s.delegations[id] = &working
	copied := working
	return &copied, nil
}

// collect must be called with s.mu held
func (s *InMemoryStore) collect(ids []string) []*types.Delegation {
	result := make([]*types.Delegation, 0, len(ids))
	for _, id := range ids {
		if d, exists := s.delegations[id]; exists {
			copied := *d
			result = append(result, &copied)
		}
	}
	return result
}

var _ Store = (*InMemoryStore)(nil)
