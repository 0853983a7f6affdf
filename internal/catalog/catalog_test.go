package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeauth/go-core/internal/catalog"
)

func TestCatalog_Resolve_GoogleAdmin(t *testing.T) {
	cat := catalog.New(nil, nil)

	perms := cat.Resolve([]string{"google_admin"})
	assert.Equal(t, []string{"admin_full", "system_config", "user_management"}, perms)
}

func TestCatalog_Resolve_Idempotent(t *testing.T) {
	cat := catalog.New(nil, nil)

	groups := []string{"google_admin", "okta_analysts", "azure_hr"}
	first := cat.Resolve(groups)
	second := cat.Resolve(groups)
	assert.Equal(t, first, second)
}

func TestCatalog_Resolve_OrderIndependent(t *testing.T) {
	cat := catalog.New(nil, nil)

	forward := cat.Resolve([]string{"google_admin", "azure_sales", "okta_contractors"})
	reversed := cat.Resolve([]string{"okta_contractors", "azure_sales", "google_admin"})
	assert.Equal(t, forward, reversed)
}

func TestCatalog_Resolve_UnknownGroups(t *testing.T) {
	cat := catalog.New(nil, nil)

	assert.Empty(t, cat.Resolve([]string{"google_nonexistent"}))
	assert.Empty(t, cat.Resolve(nil))

	// Unknown groups contribute nothing alongside known ones
	perms := cat.Resolve([]string{"google_admin", "google_nonexistent"})
	assert.Equal(t, []string{"admin_full", "system_config", "user_management"}, perms)
}

func TestCatalog_Resolve_UnionDeduplicates(t *testing.T) {
	cat := catalog.New(nil, nil)

	// google_admin and azure_administrators map the same permissions
	perms := cat.Resolve([]string{"google_admin", "azure_administrators"})
	assert.Equal(t, []string{"admin_full", "system_config", "user_management"}, perms)
}

func TestCatalog_HasPermission(t *testing.T) {
	cat := catalog.New(nil, nil)

	tests := []struct {
		name      string
		effective []string
		requested string
		want      bool
	}{
		{
			name:      "direct membership",
			effective: []string{"finance_read"},
			requested: "finance_read",
			want:      true,
		},
		{
			name:      "higher level subsumes lower",
			effective: []string{"admin_full"},
			requested: "ticket_read",
			want:      true,
		},
		{
			name:      "equal level satisfies",
			effective: []string{"user_management"},
			requested: "system_config",
			want:      true,
		},
		{
			name:      "lower level does not satisfy",
			effective: []string{"ticket_read"},
			requested: "admin_full",
			want:      false,
		},
		{
			name:      "unknown requested permission denied",
			effective: []string{"admin_full"},
			requested: "launch_missiles",
			want:      false,
		},
		{
			name:      "empty effective set denied",
			effective: nil,
			requested: "ticket_read",
			want:      false,
		},
		{
			name:      "unranked held permission still matches directly",
			effective: []string{"custom_perm"},
			requested: "custom_perm",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cat.HasPermission(tt.effective, tt.requested))
		})
	}
}

func TestCatalog_Level(t *testing.T) {
	cat := catalog.New(nil, nil)

	assert.Equal(t, 100, cat.Level("admin_full"))
	assert.Equal(t, 0, cat.Level("unranked_permission"))
}

func TestLoader_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	content := `
groups:
  google_admin:
    - admin_full
    - user_management
    - system_config
  corp_auditors:
    - audit_read
hierarchy:
  admin_full: 100
  audit_read: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := catalog.NewLoader(nil)
	tables, err := loader.LoadFromFile(path)
	require.NoError(t, err)

	cat := catalog.New(tables, nil)
	assert.Equal(t, []string{"admin_full", "system_config", "user_management"}, cat.Resolve([]string{"google_admin"}))
	assert.Equal(t, 100, cat.Level("admin_full"))
}

func TestLoader_LoadFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "groups: ["},
		{"no groups", "hierarchy:\n  admin_full: 100\n"},
		{"negative level", "groups:\n  g: [p]\nhierarchy:\n  p: -1\n"},
	}

	loader := catalog.NewLoader(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := loader.LoadFromFile(path)
			require.Error(t, err)
		})
	}
}

func TestCatalog_Replace(t *testing.T) {
	cat := catalog.New(nil, nil)
	require.NotEmpty(t, cat.Resolve([]string{"google_admin"}))

	cat.Replace(catalog.Tables{
		Groups:    map[string][]string{"corp_ops": {"ops_read"}},
		Hierarchy: map[string]int{"ops_read": 10},
	})

	assert.Empty(t, cat.Resolve([]string{"google_admin"}))
	assert.Equal(t, []string{"ops_read"}, cat.Resolve([]string{"corp_ops"}))
}
