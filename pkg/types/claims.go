// Package types provides shared types for the authorization core
package types

import (
	"strings"
	"unicode"
)

// IdentityClaims is the verified claim set supplied by an external identity
// broker. Field availability varies per provider: some send groups inline,
// some only a department or job title, some an access token usable against
// a directory API for supplementary groups.
type IdentityClaims struct {
	Provider    string   `json:"provider"`
	Groups      []string `json:"groups,omitempty"`
	Department  string   `json:"department,omitempty"`
	JobTitle    string   `json:"jobTitle,omitempty"`
	Email       string   `json:"email,omitempty"`
	AccessToken string   `json:"-"`
}

// GroupKey is a typed composite key for a provider-scoped group. Using a
// struct instead of a joined string avoids delimiter-collision bugs between
// providers whose group names themselves contain underscores.
type GroupKey struct {
	Provider string
	Group    string
}

// NormalizeGroup lowercases a raw group name and collapses whitespace runs
// to single underscores.
func NormalizeGroup(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(lower))
	inSpace := false
	for _, r := range lower {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte('_')
			inSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewGroupKey builds a GroupKey from a provider id and a raw group name
func NewGroupKey(provider, raw string) GroupKey {
	return GroupKey{
		Provider: strings.ToLower(strings.TrimSpace(provider)),
		Group:    NormalizeGroup(raw),
	}
}

// String renders the canonical provider-prefixed form used as the catalog
// vocabulary, e.g. "google_admin".
func (k GroupKey) String() string {
	if k.Provider == "" {
		return k.Group
	}
	return k.Provider + "_" + k.Group
}

// MaskIdentifier masks an email-like identifier for audit logging: the
// first three characters, then "***@", then the domain. The raw address
// never reaches an audit sink.
func MaskIdentifier(id string) string {
	at := strings.IndexByte(id, '@')
	if at < 0 {
		if len(id) <= 3 {
			return id + "***"
		}
		return id[:3] + "***"
	}
	local, domain := id[:at], id[at+1:]
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "***@" + domain
}
