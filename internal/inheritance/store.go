package inheritance

import (
	"context"
	"sort"
	"sync"

	"github.com/scopeauth/go-core/pkg/types"
)

// RecordStore persists inheritance records. Records are append-only; there
// is no update or delete.
type RecordStore interface {
	Append(ctx context.Context, record *types.InheritanceRecord) error
	ListByPrincipal(ctx context.Context, principalID string) ([]*types.InheritanceRecord, error)
}

// PermissionStore holds each principal's current effective permission set.
// Merge is additive only; explicit revocation is a separate operation
// outside this package.
type PermissionStore interface {
	Merge(ctx context.Context, principalID string, permissions []string) error
	Get(ctx context.Context, principalID string) ([]string, error)
}

// InMemoryRecordStore is the in-memory RecordStore
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string][]*types.InheritanceRecord // principal id -> records
}

// NewInMemoryRecordStore creates an in-memory record store
func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[string][]*types.InheritanceRecord)}
}

// Append stores a record
func (s *InMemoryRecordStore) Append(_ context.Context, record *types.InheritanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.PrincipalID] = append(s.records[record.PrincipalID], record)
	return nil
}

// ListByPrincipal returns a principal's records in append order
func (s *InMemoryRecordStore) ListByPrincipal(_ context.Context, principalID string) ([]*types.InheritanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[principalID]
	out := make([]*types.InheritanceRecord, len(records))
	copy(out, records)
	return out, nil
}

// InMemoryPermissionStore is the in-memory PermissionStore
type InMemoryPermissionStore struct {
	mu          sync.RWMutex
	permissions map[string]map[string]struct{}
}

// NewInMemoryPermissionStore creates an in-memory permission store
func NewInMemoryPermissionStore() *InMemoryPermissionStore {
	return &InMemoryPermissionStore{permissions: make(map[string]map[string]struct{})}
}

// Merge unions the permissions into the principal's current set
func (s *InMemoryPermissionStore) Merge(_ context.Context, principalID string, permissions []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.permissions[principalID]
	if !ok {
		set = make(map[string]struct{})
		s.permissions[principalID] = set
	}
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return nil
}

// Get returns the principal's current permission set, sorted
func (s *InMemoryPermissionStore) Get(_ context.Context, principalID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.permissions[principalID]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
