// Package catalog provides the static permission vocabulary: group to
// permission mappings and the permission hierarchy levels.
package catalog

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Tables holds the two static mappings the catalog serves. A Tables value
// is immutable once installed; reloads swap the whole value.
type Tables struct {
	// Groups maps a provider-prefixed group name to its permissions.
	Groups map[string][]string `yaml:"groups"`
	// Hierarchy maps a permission name to its integer rank. A permission
	// absent from the map has level 0.
	Hierarchy map[string]int `yaml:"hierarchy"`
}

// Catalog resolves effective permission sets from group names and answers
// hierarchy-aware permission checks.
type Catalog struct {
	mu     sync.RWMutex
	tables Tables
	logger *zap.Logger
}

// New creates a catalog over the given tables. A nil tables value installs
// the built-in defaults.
func New(tables *Tables, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tables == nil {
		tables = DefaultTables()
	}
	return &Catalog{tables: *tables, logger: logger}
}

// Resolve returns the union of the permissions mapped to each group, sorted
// and deduplicated. The result depends only on the set of groups, not on
// their order, and repeated calls return the same result.
func (c *Catalog) Resolve(groups []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, g := range groups {
		for _, p := range c.tables.Groups[g] {
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Permissions returns the permissions mapped to a single group, or nil when
// the group is unknown.
func (c *Catalog) Permissions(group string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mapped := c.tables.Groups[group]
	if mapped == nil {
		return nil
	}
	out := make([]string, len(mapped))
	copy(out, mapped)
	return out
}

// Level returns the hierarchy rank of a permission, 0 when unranked
func (c *Catalog) Level(permission string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables.Hierarchy[permission]
}

// HasPermission reports whether the effective set satisfies the requested
// permission: either by direct membership or because some held permission's
// hierarchy level is at least the requested one's.
//
// The hierarchy comparison is global across all permission names rather
// than scoped per permission family, so a high-ranked permission in one
// area satisfies checks for low-ranked permissions everywhere. Kept for
// compatibility with existing grants; callers needing family isolation
// should check direct membership only.
func (c *Catalog) HasPermission(effective []string, requested string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range effective {
		if p == requested {
			return true
		}
	}

	requestedLevel, ok := c.tables.Hierarchy[requested]
	if !ok {
		return false
	}
	for _, p := range effective {
		if c.tables.Hierarchy[p] >= requestedLevel {
			return true
		}
	}
	return false
}

// Replace atomically installs a new table set
func (c *Catalog) Replace(tables Tables) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = tables
	c.logger.Info("catalog tables replaced",
		zap.Int("groups", len(tables.Groups)),
		zap.Int("ranked_permissions", len(tables.Hierarchy)),
	)
}

// DefaultTables returns the built-in group and hierarchy tables
func DefaultTables() *Tables {
	return &Tables{
		Groups: map[string][]string{
			"google_admin":            {"admin_full", "user_management", "system_config"},
			"google_engineering":      {"code_read", "code_write", "deploy_staging"},
			"google_finance_team":     {"finance_read", "finance_write", "expense_approve"},
			"google_support":          {"ticket_read", "ticket_write", "user_read"},
			"azure_administrators":    {"admin_full", "user_management", "system_config"},
			"azure_hr":                {"employee_read", "employee_write", "payroll_read"},
			"azure_sales":             {"client_read", "client_write", "quote_create"},
			"okta_platform_admins":    {"admin_full", "system_config"},
			"okta_analysts":           {"report_read", "report_create", "dashboard_read"},
			"okta_contractors":        {"code_read", "ticket_read"},
		},
		Hierarchy: map[string]int{
			"admin_full":      100,
			"user_management": 80,
			"system_config":   80,
			"expense_approve": 60,
			"finance_write":   50,
			"employee_write":  50,
			"code_write":      50,
			"client_write":    50,
			"deploy_staging":  40,
			"ticket_write":    30,
			"report_create":   30,
			"quote_create":    30,
			"finance_read":    20,
			"employee_read":   20,
			"payroll_read":    20,
			"client_read":     20,
			"code_read":       20,
			"ticket_read":     10,
			"user_read":       10,
			"report_read":     10,
			"dashboard_read":  10,
		},
	}
}
