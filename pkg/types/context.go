package types

import (
	"strings"
	"time"
)

// ContextType identifies the kind of scoping boundary a context represents
type ContextType string

const (
	ContextDepartment ContextType = "department"
	ContextProject    ContextType = "project"
	ContextClient     ContextType = "client"
	ContextTemporary  ContextType = "temporary"
)

// Valid reports whether the context type is one of the four known kinds
func (t ContextType) Valid() bool {
	switch t {
	case ContextDepartment, ContextProject, ContextClient, ContextTemporary:
		return true
	}
	return false
}

// ContextTypeFromID derives the context type from an id's prefix, e.g.
// "department-eng" -> ContextDepartment. Returns ok=false for an
// unrecognized prefix.
func ContextTypeFromID(contextID string) (ContextType, bool) {
	idx := strings.IndexByte(contextID, '-')
	if idx <= 0 {
		return "", false
	}
	t := ContextType(contextID[:idx])
	if !t.Valid() {
		return "", false
	}
	return t, true
}

// Context is a scoping boundary narrowing the permissions active for a
// session: a department, project, client engagement, or temporary
// elevation. ExpiresAt is set only for temporary contexts.
type Context struct {
	ID                 string      `json:"id"`
	Type               ContextType `json:"type"`
	Name               string      `json:"name"`
	Description        string      `json:"description,omitempty"`
	Permissions        []string    `json:"permissions"`
	RequiresValidation bool        `json:"requiresValidation"`
	ExpiresAt          *time.Time  `json:"expiresAt,omitempty"`
}

// Expired reports whether a temporary context has passed its expiry
func (c *Context) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// ContextSession is the per-(principal, session) record of the active
// context. It is mutated on every successful switch; the snapshots record
// what was visible at switch time.
type ContextSession struct {
	PrincipalID       string    `json:"principalId"`
	SessionID         string    `json:"sessionId"`
	ActiveContext     Context   `json:"activeContext"`
	AvailableContexts []Context `json:"availableContexts"`
	SwitchedAt        time.Time `json:"switchedAt"`
}
