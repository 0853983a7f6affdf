package inheritance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scopeauth/go-core/pkg/types"
)

func TestExtractorRegistry_Dispatch(t *testing.T) {
	registry := NewExtractorRegistry()

	tests := []struct {
		name   string
		claims types.IdentityClaims
		want   []string
	}{
		{
			name: "google uses inline groups only",
			claims: types.IdentityClaims{
				Provider:   "google",
				Groups:     []string{"Admin"},
				Department: "Engineering",
			},
			want: []string{"Admin"},
		},
		{
			name: "azure includes department",
			claims: types.IdentityClaims{
				Provider:   "azure",
				Groups:     []string{"Administrators"},
				Department: "HR",
			},
			want: []string{"Administrators", "HR"},
		},
		{
			name: "okta includes department and job title",
			claims: types.IdentityClaims{
				Provider:   "okta",
				Groups:     []string{"Analysts"},
				Department: "Research",
				JobTitle:   "Contractors",
			},
			want: []string{"Analysts", "Research", "Contractors"},
		},
		{
			name: "unknown provider falls back to groups",
			claims: types.IdentityClaims{
				Provider:   "gitlab",
				Groups:     []string{"Developers"},
				Department: "Platform",
			},
			want: []string{"Developers"},
		},
		{
			name:   "provider match is case-insensitive",
			claims: types.IdentityClaims{Provider: "Google", Groups: []string{"Admin"}},
			want:   []string{"Admin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, registry.Extract(tt.claims))
		})
	}
}

type upperExtractor struct{}

func (upperExtractor) Extract(claims types.IdentityClaims) []string {
	return append(claims.Groups, "EXTRA")
}

func TestExtractorRegistry_Register(t *testing.T) {
	registry := NewExtractorRegistry()
	registry.Register("custom", upperExtractor{})

	got := registry.Extract(types.IdentityClaims{Provider: "custom", Groups: []string{"a"}})
	assert.Equal(t, []string{"a", "EXTRA"}, got)
}
