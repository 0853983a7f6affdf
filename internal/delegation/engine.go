package delegation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scopeauth/go-core/internal/audit"
	"github.com/scopeauth/go-core/internal/metrics"
	"github.com/scopeauth/go-core/pkg/types"
)

// Engine is the delegation lifecycle engine. A delegation moves from
// created through active into expired, usage-exhausted, or revoked; all
// non-active states are derived at query time from the clock and the
// counters, never by a background job.
type Engine struct {
	store   Store
	audit   audit.Logger
	metrics metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates a delegation engine over the given store
func NewEngine(store Store, auditLog audit.Logger, m metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoOp()
	}
	return &Engine{
		store:   store,
		audit:   auditLog,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateRequest carries the fields for a new delegation
type CreateRequest struct {
	FromPrincipal string
	ToPrincipal   string
	Permission    string
	Constraints   types.DelegationConstraints
	ExpiresAt     time.Time
	UsageLimit    int // 0 = unlimited
	Reason        string
}

// Create validates the request and persists a new active delegation
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*types.Delegation, error) {
	if req.FromPrincipal == "" {
		return nil, types.NewValidationError("fromPrincipal", "required")
	}
	if req.ToPrincipal == "" {
		return nil, types.NewValidationError("toPrincipal", "required")
	}
	if req.Permission == "" {
		return nil, types.NewValidationError("permission", "required")
	}
	if req.FromPrincipal == req.ToPrincipal {
		return nil, types.NewValidationError("toPrincipal", "cannot delegate to self")
	}
	if req.ExpiresAt.IsZero() {
		return nil, types.NewValidationError("expiresAt", "required")
	}
	if req.UsageLimit < 0 {
		return nil, types.NewValidationError("usageLimit", "cannot be negative")
	}

	delegation := &types.Delegation{
		ID:            "del-" + uuid.NewString(),
		FromPrincipal: req.FromPrincipal,
		ToPrincipal:   req.ToPrincipal,
		Permission:    req.Permission,
		Constraints:   req.Constraints,
		UsageLimit:    req.UsageLimit,
		DelegatedAt:   e.now(),
		ExpiresAt:     req.ExpiresAt,
		Reason:        req.Reason,
		Active:        true,
	}

	if err := e.store.Add(ctx, delegation); err != nil {
		return nil, fmt.Errorf("persist delegation: %w", err)
	}

	e.emitAudit(types.EventDelegationCreated, delegation, map[string]any{
		"toPrincipal": delegation.ToPrincipal,
		"permission":  delegation.Permission,
		"expiresAt":   delegation.ExpiresAt,
	})

	e.logger.Info("delegation created",
		zap.String("id", delegation.ID),
		zap.String("from", delegation.FromPrincipal),
		zap.String("to", delegation.ToPrincipal),
		zap.String("permission", delegation.Permission),
	)
	return delegation, nil
}

// Get retrieves a delegation by id
func (e *Engine) Get(ctx context.Context, id string) (*types.Delegation, error) {
	return e.store.Get(ctx, id)
}

// ListGrantedBy lists delegations a principal has granted
func (e *Engine) ListGrantedBy(ctx context.Context, principalID string) ([]*types.Delegation, error) {
	return e.store.ListByFrom(ctx, principalID)
}

// ListGrantedTo lists delegations granted to a principal
func (e *Engine) ListGrantedTo(ctx context.Context, principalID string) ([]*types.Delegation, error) {
	return e.store.ListByTo(ctx, principalID)
}

// HasPermission reports whether the delegation authorizes the requested
// permission for the given request context. The permission match is strict
// equality: a delegation grants exactly one permission and never subsumes
// others through the hierarchy.
func (e *Engine) HasPermission(ctx context.Context, delegationID, requested string, reqCtx types.RequestContext) (bool, error) {
	delegation, err := e.store.Get(ctx, delegationID)
	if err != nil {
		return false, err
	}

	allowed := requested == delegation.Permission &&
		delegation.IsActive(e.now()) &&
		ValidateContext(delegation.Constraints, reqCtx)

	e.metrics.RecordDelegationCheck(allowed)
	return allowed, nil
}

// ValidateContext checks a request against the delegation's constraints:
// the amount must be present and within MaxAmount, the department must
// match exactly, and the timestamp must fall inside the time window.
func ValidateContext(constraints types.DelegationConstraints, reqCtx types.RequestContext) bool {
	if constraints.MaxAmount != nil {
		if reqCtx.Amount == nil || *reqCtx.Amount > *constraints.MaxAmount {
			return false
		}
	}
	if constraints.DepartmentID != "" && reqCtx.DepartmentID != constraints.DepartmentID {
		return false
	}
	if constraints.Window != nil && !constraints.Window.Contains(reqCtx.Timestamp) {
		return false
	}
	return true
}

// RecordUsage appends a usage record and increments the usage counter.
// The increment happens inside the store's Mutate, so concurrent calls
// serialize and cannot overrun the limit by racing. RecordUsage itself
// does not enforce the limit: callers must check HasPermission first.
func (e *Engine) RecordUsage(ctx context.Context, delegationID string, reqCtx types.RequestContext) (*types.Delegation, error) {
	ts := e.now()
	if !reqCtx.Timestamp.IsZero() {
		ts = reqCtx.Timestamp
	}

	delegation, err := e.store.Mutate(ctx, delegationID, func(d *types.Delegation) error {
		d.UsageHistory = append(d.UsageHistory, types.UsageRecord{
			Timestamp: ts,
			Context:   reqCtx,
		})
		d.UsageCount++
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordDelegationUsage()
	e.emitAudit(types.EventDelegationUsed, delegation, map[string]any{
		"usageCount": delegation.UsageCount,
		"usageLimit": delegation.UsageLimit,
	})
	return delegation, nil
}

// Revoke deactivates a delegation. Revoking an already-revoked delegation
// is a no-op, so retried revocations do not overwrite the original
// revocation record.
func (e *Engine) Revoke(ctx context.Context, delegationID, reason string) (*types.Delegation, error) {
	already := false
	delegation, err := e.store.Mutate(ctx, delegationID, func(d *types.Delegation) error {
		if d.RevokedAt != nil {
			already = true
			return nil
		}
		now := e.now()
		d.Active = false
		d.RevokedAt = &now
		d.RevocationReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	if already {
		return delegation, nil
	}

	e.emitAudit(types.EventDelegationRevoked, delegation, map[string]any{
		"reason": reason,
	})
	e.logger.Info("delegation revoked",
		zap.String("id", delegationID),
		zap.String("reason", reason),
	)
	return delegation, nil
}

// ExtendExpiration moves the expiry forward. An expiry in the past is
// rejected with a ValidationError and the delegation is left unchanged.
func (e *Engine) ExtendExpiration(ctx context.Context, delegationID string, newExpiry time.Time) (*types.Delegation, error) {
	now := e.now()
	if !newExpiry.After(now) {
		return nil, types.NewValidationError("expiresAt", "new expiry must be in the future")
	}

	delegation, err := e.store.Mutate(ctx, delegationID, func(d *types.Delegation) error {
		d.ExtensionHistory = append(d.ExtensionHistory, types.ExtensionRecord{
			ExtendedAt: now,
			OldExpiry:  d.ExpiresAt,
			NewExpiry:  newExpiry,
		})
		d.ExpiresAt = newExpiry
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emitAudit(types.EventDelegationExtended, delegation, map[string]any{
		"newExpiry": newExpiry,
	})
	return delegation, nil
}

// AuditReport summarizes a delegation's lifecycle
type AuditReport struct {
	DelegationID  string          `json:"delegationId"`
	FromPrincipal string          `json:"fromPrincipal"`
	ToPrincipal   string          `json:"toPrincipal"`
	Permission    string          `json:"permission"`
	TotalUsage    int             `json:"totalUsage"`
	Active        bool            `json:"active"`
	Timeline      []TimelineEntry `json:"timeline"`
}

// TimelineEntry is one event in a delegation's history
type TimelineEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
}

// GenerateAuditReport builds the audit report for a delegation: identity,
// usage totals, live active state, and a chronological timeline of
// creation, usages, extensions, and revocation.
func (e *Engine) GenerateAuditReport(ctx context.Context, delegationID string) (*AuditReport, error) {
	delegation, err := e.store.Get(ctx, delegationID)
	if err != nil {
		return nil, err
	}

	timeline := []TimelineEntry{{
		Timestamp: delegation.DelegatedAt,
		Event:     "created",
		Detail:    fmt.Sprintf("delegated %s to %s", delegation.Permission, delegation.ToPrincipal),
	}}
	for _, usage := range delegation.UsageHistory {
		timeline = append(timeline, TimelineEntry{
			Timestamp: usage.Timestamp,
			Event:     "used",
		})
	}
	for _, ext := range delegation.ExtensionHistory {
		timeline = append(timeline, TimelineEntry{
			Timestamp: ext.ExtendedAt,
			Event:     "extended",
			Detail:    fmt.Sprintf("expiry %s -> %s", ext.OldExpiry.Format(time.RFC3339), ext.NewExpiry.Format(time.RFC3339)),
		})
	}
	if delegation.RevokedAt != nil {
		timeline = append(timeline, TimelineEntry{
			Timestamp: *delegation.RevokedAt,
			Event:     "revoked",
			Detail:    delegation.RevocationReason,
		})
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Timestamp.Before(timeline[j].Timestamp)
	})

	return &AuditReport{
		DelegationID:  delegation.ID,
		FromPrincipal: delegation.FromPrincipal,
		ToPrincipal:   delegation.ToPrincipal,
		Permission:    delegation.Permission,
		TotalUsage:    delegation.UsageCount,
		Active:        delegation.IsActive(e.now()),
		Timeline:      timeline,
	}, nil
}

func (e *Engine) emitAudit(eventType types.AuditEventType, delegation *types.Delegation, details map[string]any) {
	if e.audit == nil {
		return
	}
	if details == nil {
		details = make(map[string]any)
	}
	details["delegationId"] = delegation.ID

	e.audit.Log(&types.AuditEvent{
		Type:        eventType,
		PrincipalID: delegation.FromPrincipal,
		Details:     details,
	})
}
