// Package contexts enumerates, validates, and switches the permission
// contexts available to a principal's session.
package contexts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scopeauth/go-core/pkg/types"
)

// Source supplies contexts of one type for a principal. The manager
// queries all registered sources on enumeration; a failing source degrades
// to an empty contribution.
type Source interface {
	// Type is the context type this source contributes
	Type() types.ContextType

	// ContextsFor lists the principal's contexts from this source
	ContextsFor(ctx context.Context, principalID string) ([]types.Context, error)

	// Validate re-checks that the principal may still use the context:
	// membership for department/project/client, non-expiry for temporary
	Validate(ctx context.Context, principalID, contextID string) (bool, error)

	// Permissions loads the permission set of one context by id
	Permissions(ctx context.Context, contextID string) ([]string, error)
}

// StaticSource is an in-memory membership-backed source for department,
// project, and client contexts.
type StaticSource struct {
	contextType types.ContextType

	mu          sync.RWMutex
	contexts    map[string]types.Context // context id -> definition
	assignments map[string][]string      // principal id -> context ids
}

// NewStaticSource creates an empty source of the given type
func NewStaticSource(contextType types.ContextType) *StaticSource {
	return &StaticSource{
		contextType: contextType,
		contexts:    make(map[string]types.Context),
		assignments: make(map[string][]string),
	}
}

// AddContext registers a context definition
func (s *StaticSource) AddContext(c types.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Type = s.contextType
	s.contexts[c.ID] = c
}

// Assign grants a principal membership of a context
func (s *StaticSource) Assign(principalID, contextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[principalID] = append(s.assignments[principalID], contextID)
}

// Unassign removes a principal's membership of a context
func (s *StaticSource) Unassign(principalID, contextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.assignments[principalID]
	out := ids[:0]
	for _, id := range ids {
		if id != contextID {
			out = append(out, id)
		}
	}
	s.assignments[principalID] = out
}

func (s *StaticSource) Type() types.ContextType {
	return s.contextType
}

func (s *StaticSource) ContextsFor(_ context.Context, principalID string) ([]types.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Context
	for _, id := range s.assignments[principalID] {
		if c, ok := s.contexts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *StaticSource) Validate(_ context.Context, principalID, contextID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.assignments[principalID] {
		if id == contextID {
			return true, nil
		}
	}
	return false, nil
}

func (s *StaticSource) Permissions(_ context.Context, contextID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contexts[contextID]
	if !ok {
		return nil, types.NewNotFoundError("context", contextID)
	}
	return append([]string(nil), c.Permissions...), nil
}

// TemporaryGrant is one temporary permission elevation for a principal.
// Grants sharing a label are presented as one context.
type TemporaryGrant struct {
	PrincipalID string
	Label       string
	Permissions []string
	ExpiresAt   time.Time
}

// TemporaryElevationSource exposes active temporary grants as contexts.
// Grants are grouped by label; a group's permissions are the union of its
// grants' permissions and its expiry is the minimum expiry in the group.
type TemporaryElevationSource struct {
	mu     sync.RWMutex
	grants []TemporaryGrant
	now    func() time.Time
}

// NewTemporaryElevationSource creates an empty temporary source
func NewTemporaryElevationSource() *TemporaryElevationSource {
	return &TemporaryElevationSource{now: time.Now}
}

// Grant adds a temporary elevation
func (s *TemporaryElevationSource) Grant(g TemporaryGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, g)
}

func (s *TemporaryElevationSource) Type() types.ContextType {
	return types.ContextTemporary
}

// ContextID renders the context id for a grant label
func ContextID(label string) string {
	return string(types.ContextTemporary) + "-" + types.NormalizeGroup(label)
}

func (s *TemporaryElevationSource) ContextsFor(_ context.Context, principalID string) ([]types.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grouped := s.groupedFor(principalID)

	labels := make([]string, 0, len(grouped))
	for label := range grouped {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]types.Context, 0, len(labels))
	for _, label := range labels {
		out = append(out, grouped[label])
	}
	return out, nil
}

func (s *TemporaryElevationSource) Validate(_ context.Context, principalID, contextID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.groupedFor(principalID) {
		if c.ID == contextID {
			return true, nil
		}
	}
	return false, nil
}

func (s *TemporaryElevationSource) Permissions(_ context.Context, contextID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	seen := make(map[string]struct{})
	found := false
	for _, g := range s.grants {
		if ContextID(g.Label) != contextID || !now.Before(g.ExpiresAt) {
			continue
		}
		found = true
		for _, p := range g.Permissions {
			seen[p] = struct{}{}
		}
	}
	if !found {
		return nil, types.NewNotFoundError("context", contextID)
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// groupedFor must be called with s.mu held. Expired grants are skipped;
// within a group the expiry is the earliest grant expiry.
func (s *TemporaryElevationSource) groupedFor(principalID string) map[string]types.Context {
	now := s.now()
	grouped := make(map[string]types.Context)

	for _, g := range s.grants {
		if g.PrincipalID != principalID || !now.Before(g.ExpiresAt) {
			continue
		}

		c, ok := grouped[g.Label]
		if !ok {
			expiry := g.ExpiresAt
			c = types.Context{
				ID:                 ContextID(g.Label),
				Type:               types.ContextTemporary,
				Name:               g.Label,
				RequiresValidation: true,
				ExpiresAt:          &expiry,
			}
		}

		perms := make(map[string]struct{}, len(c.Permissions)+len(g.Permissions))
		for _, p := range c.Permissions {
			perms[p] = struct{}{}
		}
		for _, p := range g.Permissions {
			perms[p] = struct{}{}
		}
		merged := make([]string, 0, len(perms))
		for p := range perms {
			merged = append(merged, p)
		}
		sort.Strings(merged)
		c.Permissions = merged

		if g.ExpiresAt.Before(*c.ExpiresAt) {
			expiry := g.ExpiresAt
			c.ExpiresAt = &expiry
		}

		grouped[g.Label] = c
	}
	return grouped
}
