// Package inheritance turns external identity claims into an effective
// permission set and an immutable audit record.
package inheritance

import (
	"strings"
	"sync"

	"github.com/scopeauth/go-core/pkg/types"
)

// GroupExtractor pulls raw group names out of a provider's claim shape.
// One variant is registered per provider; unknown providers fall back to
// the default extractor.
type GroupExtractor interface {
	Extract(claims types.IdentityClaims) []string
}

// ExtractorRegistry is the provider -> extractor lookup table
type ExtractorRegistry struct {
	mu         sync.RWMutex
	extractors map[string]GroupExtractor
	fallback   GroupExtractor
}

// NewExtractorRegistry creates a registry preloaded with the known
// providers.
func NewExtractorRegistry() *ExtractorRegistry {
	r := &ExtractorRegistry{
		extractors: make(map[string]GroupExtractor),
		fallback:   groupsOnlyExtractor{},
	}
	r.Register("google", groupsOnlyExtractor{})
	r.Register("azure", azureExtractor{})
	r.Register("okta", oktaExtractor{})
	return r
}

// Register installs an extractor for a provider id
func (r *ExtractorRegistry) Register(provider string, e GroupExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[strings.ToLower(provider)] = e
}

// Extract dispatches to the provider's extractor
func (r *ExtractorRegistry) Extract(claims types.IdentityClaims) []string {
	r.mu.RLock()
	e, ok := r.extractors[strings.ToLower(claims.Provider)]
	r.mu.RUnlock()
	if !ok {
		e = r.fallback
	}
	return e.Extract(claims)
}

// groupsOnlyExtractor reads the inline groups claim as-is
type groupsOnlyExtractor struct{}

func (groupsOnlyExtractor) Extract(claims types.IdentityClaims) []string {
	return claims.Groups
}

// azureExtractor reads groups and treats the department claim as an
// additional group; Azure tenants commonly model departments as security
// groups that are flattened out of the token.
type azureExtractor struct{}

func (azureExtractor) Extract(claims types.IdentityClaims) []string {
	groups := append([]string(nil), claims.Groups...)
	if claims.Department != "" {
		groups = append(groups, claims.Department)
	}
	return groups
}

// oktaExtractor reads groups plus department and job title claims
type oktaExtractor struct{}

func (oktaExtractor) Extract(claims types.IdentityClaims) []string {
	groups := append([]string(nil), claims.Groups...)
	if claims.Department != "" {
		groups = append(groups, claims.Department)
	}
	if claims.JobTitle != "" {
		groups = append(groups, claims.JobTitle)
	}
	return groups
}
