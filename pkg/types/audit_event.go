package types

import "time"

// AuditEventType identifies the kind of security audit event
type AuditEventType string

const (
	EventInheritanceResolved AuditEventType = "inheritance.resolved"
	EventContextSwitched     AuditEventType = "context.switched"
	EventContextDenied       AuditEventType = "context.denied"
	EventDelegationCreated   AuditEventType = "delegation.created"
	EventDelegationUsed      AuditEventType = "delegation.used"
	EventDelegationRevoked   AuditEventType = "delegation.revoked"
	EventDelegationExtended  AuditEventType = "delegation.extended"
)

// AuditEvent is the record handed to the audit sink. Sinks are invoked
// fire-and-forget: an authorization decision returns its result even when
// the audit write fails.
type AuditEvent struct {
	ID          string         `json:"id"`
	Type        AuditEventType `json:"type"`
	PrincipalID string         `json:"principalId"`
	Timestamp   time.Time      `json:"timestamp"`
	Details     map[string]any `json:"details,omitempty"`
}
