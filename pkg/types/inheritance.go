package types

import "time"

// GroupMapping records, for one source group, the normalized form that was
// matched against the catalog and the permissions it contributed. Kept on
// the InheritanceRecord so an auditor can see exactly why each permission
// was granted.
type GroupMapping struct {
	Raw         string   `json:"raw"`
	Normalized  string   `json:"normalized"`
	Permissions []string `json:"permissions"`
}

// InheritanceRecord is the immutable audit record of one permission
// inheritance resolution. Records are append-only and never mutated.
type InheritanceRecord struct {
	ID                 string         `json:"id"`
	PrincipalID        string         `json:"principalId"`
	Provider           string         `json:"provider"`
	SourceGroups       []GroupMapping `json:"sourceGroups"`
	GrantedPermissions []string       `json:"grantedPermissions"`
	ResolvedAt         time.Time      `json:"resolvedAt"`
}
