package contexts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scopeauth/go-core/internal/audit"
	"github.com/scopeauth/go-core/internal/cache"
	"github.com/scopeauth/go-core/internal/metrics"
	"github.com/scopeauth/go-core/pkg/types"
)

// Config for the context manager
type Config struct {
	// CacheSize bounds the permission cache when the manager builds its
	// own LRU
	CacheSize int

	// CacheTTL is the permission cache time-to-live
	CacheTTL time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		CacheSize: 10000,
		CacheTTL:  5 * time.Minute,
	}
}

// Manager enumerates a principal's contexts, validates and switches the
// active context per session, and caches resolved permission sets.
//
// Switches are last-write-wins: two concurrent switches for the same
// session leave whichever session snapshot was persisted last. Switches
// are rare relative to permission reads, so the manager takes no
// cross-process lock; it must not be assumed safe under heavy concurrent
// writes to one session.
type Manager struct {
	sources  []Source
	byType   map[types.ContextType]Source
	sessions SessionStore
	cache    cache.Cache
	audit    audit.Logger
	metrics  metrics.Metrics
	logger   *zap.Logger
}

// NewManager creates a manager over the given sources. The cache may be
// nil, in which case a private LRU is built from the config; it is never
// package-level state.
func NewManager(
	sources []Source,
	sessions SessionStore,
	permCache cache.Cache,
	auditLog audit.Logger,
	m metrics.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoOp()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if permCache == nil {
		permCache = cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
	}
	if sessions == nil {
		sessions = NewInMemorySessionStore()
	}

	byType := make(map[types.ContextType]Source, len(sources))
	for _, s := range sources {
		byType[s.Type()] = s
	}

	return &Manager{
		sources:  sources,
		byType:   byType,
		sessions: sessions,
		cache:    permCache,
		audit:    auditLog,
		metrics:  m,
		logger:   logger,
	}
}

// EnumerateContexts concatenates the contexts of every source for the
// principal. Sources are independent: one failing source contributes an
// empty list and the rest still appear. No ordering is guaranteed across
// sources beyond registration order.
func (m *Manager) EnumerateContexts(ctx context.Context, principalID string) ([]types.Context, error) {
	if principalID == "" {
		return nil, types.NewValidationError("principalId", "required")
	}

	var out []types.Context
	for _, source := range m.sources {
		contexts, err := source.ContextsFor(ctx, principalID)
		if err != nil {
			m.logger.Warn("context source failed, contributing empty list",
				zap.String("type", string(source.Type())),
				zap.String("principal", principalID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, contexts...)
	}
	return out, nil
}

// SwitchContext re-enumerates the principal's contexts live, locates the
// requested one, optionally re-validates it, and persists the new session
// snapshot. An unknown context id fails closed without touching session
// state. Enumerating on every switch costs a round of source queries but
// avoids a second source of truth that could go stale.
func (m *Manager) SwitchContext(ctx context.Context, principalID, contextID, sessionID string) (*types.ContextSession, error) {
	if principalID == "" || sessionID == "" {
		return nil, types.NewValidationError("session", "principalId and sessionId required")
	}

	contextType, _ := types.ContextTypeFromID(contextID)

	available, err := m.EnumerateContexts(ctx, principalID)
	if err != nil {
		return nil, err
	}

	var target *types.Context
	for i := range available {
		if available[i].ID == contextID {
			target = &available[i]
			break
		}
	}
	if target == nil {
		m.metrics.RecordContextSwitch(string(contextType), false)
		return nil, types.NewNotFoundError("context", contextID)
	}

	if target.RequiresValidation {
		if err := m.revalidate(ctx, principalID, target); err != nil {
			m.metrics.RecordContextSwitch(string(target.Type), false)
			m.emitAudit(types.EventContextDenied, principalID, map[string]any{
				"contextId": contextID,
				"reason":    err.Error(),
			})
			return nil, err
		}
	}

	session := &types.ContextSession{
		PrincipalID:       principalID,
		SessionID:         sessionID,
		ActiveContext:     *target,
		AvailableContexts: available,
		SwitchedAt:        time.Now(),
	}
	if err := m.sessions.Set(ctx, session); err != nil {
		// Persistence is fire-and-forget: the switch decision stands even
		// when the session store is down, at the cost of GetCurrentContext
		// missing this switch until the next successful persist
		m.logger.Warn("session store write failed",
			zap.String("principal", principalID),
			zap.String("session", sessionID),
			zap.Error(err),
		)
	}

	m.cache.Set(permissionKey(principalID, sessionID), target.Permissions)
	m.metrics.RecordContextSwitch(string(target.Type), true)
	m.emitAudit(types.EventContextSwitched, principalID, map[string]any{
		"contextId":   contextID,
		"contextType": string(target.Type),
		"sessionId":   sessionID,
	})

	m.logger.Info("context switched",
		zap.String("principal", principalID),
		zap.String("context", contextID),
		zap.String("session", sessionID),
	)
	return session, nil
}

// GetCurrentContext returns the last persisted session snapshot, or nil
// when the principal has not switched in this session.
func (m *Manager) GetCurrentContext(ctx context.Context, principalID, sessionID string) (*types.ContextSession, error) {
	session, err := m.sessions.Get(ctx, principalID, sessionID)
	if err != nil {
		m.logger.Warn("session store read failed",
			zap.String("principal", principalID),
			zap.Error(err),
		)
		return nil, nil
	}
	return session, nil
}

// SessionPermissions returns the cached permission set for a session, if
// the principal switched within the cache TTL.
func (m *Manager) SessionPermissions(principalID, sessionID string) ([]string, bool) {
	perms, ok := m.cache.Get(permissionKey(principalID, sessionID))
	if ok {
		m.metrics.RecordCacheHit()
	} else {
		m.metrics.RecordCacheMiss()
	}
	return perms, ok
}

// GetContextPermissions resolves a context's permission set through the
// TTL cache. The id's type prefix picks the loader; an unrecognized
// prefix resolves to an empty set with a warning rather than an error.
func (m *Manager) GetContextPermissions(ctx context.Context, contextID string) []string {
	key := "ctx:" + contextID
	if perms, ok := m.cache.Get(key); ok {
		m.metrics.RecordCacheHit()
		return perms
	}
	m.metrics.RecordCacheMiss()

	contextType, ok := types.ContextTypeFromID(contextID)
	if !ok {
		m.logger.Warn("unrecognized context id prefix", zap.String("context", contextID))
		return []string{}
	}

	source, ok := m.byType[contextType]
	if !ok {
		m.logger.Warn("no source registered for context type",
			zap.String("type", string(contextType)),
		)
		return []string{}
	}

	perms, err := source.Permissions(ctx, contextID)
	if err != nil {
		m.logger.Warn("context permission load failed",
			zap.String("context", contextID),
			zap.Error(err),
		)
		return []string{}
	}

	m.cache.Set(key, perms)
	return perms
}

// InvalidateSession drops the cached permissions for a session
func (m *Manager) InvalidateSession(principalID, sessionID string) {
	m.cache.Delete(permissionKey(principalID, sessionID))
}

// revalidate re-checks membership or non-expiry for a context whose
// RequiresValidation flag is set.
func (m *Manager) revalidate(ctx context.Context, principalID string, target *types.Context) error {
	if target.Type == types.ContextTemporary && target.Expired(time.Now()) {
		return types.NewAccessDeniedError("temporary elevation expired")
	}

	source, ok := m.byType[target.Type]
	if !ok {
		return types.NewValidationError("contextType", "unknown context type "+string(target.Type))
	}

	member, err := source.Validate(ctx, principalID, target.ID)
	if err != nil {
		// Treat a validation-source outage as a denial: fail closed
		m.logger.Warn("context validation errored",
			zap.String("context", target.ID),
			zap.Error(err),
		)
		return types.NewAccessDeniedError("context validation unavailable")
	}
	if !member {
		return types.NewAccessDeniedError("principal is not a member of context " + target.ID)
	}
	return nil
}

func (m *Manager) emitAudit(eventType types.AuditEventType, principalID string, details map[string]any) {
	if m.audit == nil {
		return
	}
	m.audit.Log(&types.AuditEvent{
		Type:        eventType,
		PrincipalID: principalID,
		Details:     details,
	})
}

func permissionKey(principalID, sessionID string) string {
	return "sess:" + principalID + ":" + sessionID
}
