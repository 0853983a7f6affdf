package inheritance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scopeauth/go-core/internal/audit"
	"github.com/scopeauth/go-core/internal/catalog"
	"github.com/scopeauth/go-core/internal/directory"
	"github.com/scopeauth/go-core/internal/metrics"
	"github.com/scopeauth/go-core/pkg/types"
)

// Config for the resolver
type Config struct {
	// DirectoryTimeout bounds the supplementary group lookup
	DirectoryTimeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{DirectoryTimeout: 5 * time.Second}
}

// Resolver resolves identity claims into an effective permission set and
// an append-only InheritanceRecord. Persistence and audit writes are
// fire-and-forget: the computed result is returned even when storage is
// unavailable.
type Resolver struct {
	catalog    *catalog.Catalog
	extractors *ExtractorRegistry
	directory  directory.Client
	records    RecordStore
	perms      PermissionStore
	audit      audit.Logger
	metrics    metrics.Metrics
	logger     *zap.Logger
	config     Config
}

// NewResolver creates a resolver. Directory and audit collaborators may be
// nil; resolution then runs without supplementary groups or audit events.
func NewResolver(
	cat *catalog.Catalog,
	extractors *ExtractorRegistry,
	dir directory.Client,
	records RecordStore,
	perms PermissionStore,
	auditLog audit.Logger,
	m metrics.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoOp()
	}
	if extractors == nil {
		extractors = NewExtractorRegistry()
	}
	if cfg.DirectoryTimeout <= 0 {
		cfg.DirectoryTimeout = 5 * time.Second
	}
	return &Resolver{
		catalog:    cat,
		extractors: extractors,
		directory:  dir,
		records:    records,
		perms:      perms,
		audit:      auditLog,
		metrics:    m,
		logger:     logger,
		config:     cfg,
	}
}

// Resolve normalizes the claims' groups, resolves them against the
// catalog, persists an InheritanceRecord, and merges the granted
// permissions into the principal's current set.
func (r *Resolver) Resolve(ctx context.Context, principalID string, claims types.IdentityClaims) (*types.InheritanceRecord, error) {
	if principalID == "" {
		return nil, types.NewValidationError("principalId", "required")
	}
	if claims.Provider == "" {
		return nil, types.NewValidationError("provider", "required")
	}

	start := time.Now()

	raw := r.extractors.Extract(claims)
	raw = append(raw, r.supplementaryGroups(ctx, claims)...)

	// Normalize and deduplicate; two raw spellings of the same group
	// collapse to one key.
	seen := make(map[types.GroupKey]string, len(raw))
	keys := make([]types.GroupKey, 0, len(raw))
	for _, g := range raw {
		if g == "" {
			continue
		}
		key := types.NewGroupKey(claims.Provider, g)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = g
		keys = append(keys, key)
	}

	mappings := make([]types.GroupMapping, 0, len(keys))
	catalogGroups := make([]string, 0, len(keys))
	for _, key := range keys {
		name := key.String()
		catalogGroups = append(catalogGroups, name)
		mappings = append(mappings, types.GroupMapping{
			Raw:         seen[key],
			Normalized:  name,
			Permissions: r.catalog.Permissions(name),
		})
	}

	granted := r.catalog.Resolve(catalogGroups)

	record := &types.InheritanceRecord{
		ID:                 "inh-" + uuid.NewString(),
		PrincipalID:        principalID,
		Provider:           claims.Provider,
		SourceGroups:       mappings,
		GrantedPermissions: granted,
		ResolvedAt:         time.Now(),
	}

	// Persistence is log-and-continue: the resolution result stands even
	// when the stores are down.
	if r.records != nil {
		if err := r.records.Append(ctx, record); err != nil {
			r.logger.Warn("inheritance record persist failed",
				zap.String("principal", principalID),
				zap.Error(err),
			)
		}
	}
	if r.perms != nil && len(granted) > 0 {
		if err := r.perms.Merge(ctx, principalID, granted); err != nil {
			r.logger.Warn("permission merge failed",
				zap.String("principal", principalID),
				zap.Error(err),
			)
		}
	}

	r.emitAuditEvent(principalID, claims, len(keys), len(granted))
	r.metrics.RecordResolution(claims.Provider, time.Since(start))

	r.logger.Info("inheritance resolved",
		zap.String("principal", principalID),
		zap.String("provider", claims.Provider),
		zap.Int("groups", len(keys)),
		zap.Int("permissions", len(granted)),
	)

	return record, nil
}

// supplementaryGroups queries the directory API when the claims carry an
// access token. Any failure degrades to an empty list.
func (r *Resolver) supplementaryGroups(ctx context.Context, claims types.IdentityClaims) []string {
	if r.directory == nil || claims.AccessToken == "" {
		return nil
	}

	dirCtx, cancel := context.WithTimeout(ctx, r.config.DirectoryTimeout)
	defer cancel()

	groups, err := r.directory.Groups(dirCtx, claims.AccessToken)
	if err != nil {
		r.metrics.RecordDirectoryFailure()
		r.logger.Warn("directory lookup degraded to empty group list",
			zap.String("provider", claims.Provider),
			zap.Error(err),
		)
		return nil
	}
	return groups
}

func (r *Resolver) emitAuditEvent(principalID string, claims types.IdentityClaims, groupCount, permissionCount int) {
	if r.audit == nil {
		return
	}

	identifier := claims.Email
	if identifier == "" {
		identifier = principalID
	}

	r.audit.Log(&types.AuditEvent{
		Type:        types.EventInheritanceResolved,
		PrincipalID: principalID,
		Details: map[string]any{
			"provider":    claims.Provider,
			"groups":      groupCount,
			"permissions": permissionCount,
			"identifier":  types.MaskIdentifier(identifier),
		},
	})
}
