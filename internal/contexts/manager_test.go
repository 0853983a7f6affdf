package contexts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeauth/go-core/internal/contexts"
	"github.com/scopeauth/go-core/pkg/types"
)

type brokenSource struct {
	contextType types.ContextType
}

func (b brokenSource) Type() types.ContextType { return b.contextType }

func (b brokenSource) ContextsFor(context.Context, string) ([]types.Context, error) {
	return nil, errors.New("backend down")
}

func (b brokenSource) Validate(context.Context, string, string) (bool, error) {
	return false, errors.New("backend down")
}

func (b brokenSource) Permissions(context.Context, string) ([]string, error) {
	return nil, errors.New("backend down")
}

type failingSessionStore struct{}

func (failingSessionStore) Get(context.Context, string, string) (*types.ContextSession, error) {
	return nil, errors.New("session store down")
}

func (failingSessionStore) Set(context.Context, *types.ContextSession) error {
	return errors.New("session store down")
}

func (failingSessionStore) Delete(context.Context, string, string) error {
	return errors.New("session store down")
}

func testFixtures(t *testing.T) (*contexts.Manager, *contexts.StaticSource, *contexts.TemporaryElevationSource) {
	t.Helper()

	departments := contexts.NewStaticSource(types.ContextDepartment)
	departments.AddContext(types.Context{
		ID:          "department-engineering",
		Name:        "Engineering",
		Permissions: []string{"code_read", "code_write"},
	})
	departments.AddContext(types.Context{
		ID:                 "department-finance",
		Name:               "Finance",
		Permissions:        []string{"finance_read", "finance_write"},
		RequiresValidation: true,
	})
	departments.Assign("principal-1", "department-engineering")
	departments.Assign("principal-1", "department-finance")

	projects := contexts.NewStaticSource(types.ContextProject)
	projects.AddContext(types.Context{
		ID:          "project-apollo",
		Name:        "Apollo",
		Permissions: []string{"deploy_staging"},
	})
	projects.Assign("principal-1", "project-apollo")

	temporary := contexts.NewTemporaryElevationSource()

	manager := contexts.NewManager(
		[]contexts.Source{departments, projects, temporary},
		nil, nil, nil, nil, nil,
		contexts.DefaultConfig(),
	)
	return manager, departments, temporary
}

func TestManager_EnumerateContexts(t *testing.T) {
	manager, _, temporary := testFixtures(t)

	temporary.Grant(contexts.TemporaryGrant{
		PrincipalID: "principal-1",
		Label:       "Incident Response",
		Permissions: []string{"system_config"},
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	list, err := manager.EnumerateContexts(context.Background(), "principal-1")
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{
		"department-engineering",
		"department-finance",
		"project-apollo",
		"temporary-incident_response",
	}, ids)
}

func TestManager_EnumerateContexts_SourceFailureDegrades(t *testing.T) {
	departments := contexts.NewStaticSource(types.ContextDepartment)
	departments.AddContext(types.Context{ID: "department-eng", Permissions: []string{"code_read"}})
	departments.Assign("principal-1", "department-eng")

	manager := contexts.NewManager(
		[]contexts.Source{departments, brokenSource{contextType: types.ContextProject}},
		nil, nil, nil, nil, nil,
		contexts.DefaultConfig(),
	)

	list, err := manager.EnumerateContexts(context.Background(), "principal-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "department-eng", list[0].ID)
}

func TestTemporaryElevationSource_GroupsByLabel(t *testing.T) {
	source := contexts.NewTemporaryElevationSource()
	soon := time.Now().Add(30 * time.Minute)
	later := time.Now().Add(2 * time.Hour)

	source.Grant(contexts.TemporaryGrant{
		PrincipalID: "principal-1",
		Label:       "Incident Response",
		Permissions: []string{"system_config"},
		ExpiresAt:   later,
	})
	source.Grant(contexts.TemporaryGrant{
		PrincipalID: "principal-1",
		Label:       "Incident Response",
		Permissions: []string{"admin_full", "system_config"},
		ExpiresAt:   soon,
	})
	source.Grant(contexts.TemporaryGrant{
		PrincipalID: "principal-1",
		Label:       "Expired Elevation",
		Permissions: []string{"payroll_read"},
		ExpiresAt:   time.Now().Add(-time.Minute),
	})

	list, err := source.ContextsFor(context.Background(), "principal-1")
	require.NoError(t, err)
	require.Len(t, list, 1, "expired grants form no context")

	group := list[0]
	assert.Equal(t, "temporary-incident_response", group.ID)
	assert.Equal(t, []string{"admin_full", "system_config"}, group.Permissions)
	require.NotNil(t, group.ExpiresAt)
	assert.True(t, group.ExpiresAt.Equal(soon), "group expiry is the minimum of its grants")
}

func TestManager_SwitchContext(t *testing.T) {
	manager, _, _ := testFixtures(t)
	ctx := context.Background()

	session, err := manager.SwitchContext(ctx, "principal-1", "department-engineering", "sess-1")
	require.NoError(t, err)

	assert.Equal(t, "department-engineering", session.ActiveContext.ID)
	assert.Len(t, session.AvailableContexts, 3)
	assert.False(t, session.SwitchedAt.IsZero())

	current, err := manager.GetCurrentContext(ctx, "principal-1", "sess-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "department-engineering", current.ActiveContext.ID)

	perms, ok := manager.SessionPermissions("principal-1", "sess-1")
	require.True(t, ok)
	assert.Equal(t, []string{"code_read", "code_write"}, perms)
}

func TestManager_SwitchContext_UnknownIDFailsClosed(t *testing.T) {
	manager, _, _ := testFixtures(t)
	ctx := context.Background()

	_, err := manager.SwitchContext(ctx, "principal-1", "department-engineering", "sess-1")
	require.NoError(t, err)

	_, err = manager.SwitchContext(ctx, "principal-1", "department-marketing", "sess-1")
	var nfErr *types.NotFoundError
	require.ErrorAs(t, err, &nfErr)

	// Session state is untouched by the failed switch
	current, err := manager.GetCurrentContext(ctx, "principal-1", "sess-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "department-engineering", current.ActiveContext.ID)
}

func TestManager_SwitchContext_RevalidatesMembership(t *testing.T) {
	manager, departments, _ := testFixtures(t)
	ctx := context.Background()

	// department-finance requires validation; drop membership between
	// enumeration setup and the switch attempt by an unassign that the
	// live re-check will observe
	session, err := manager.SwitchContext(ctx, "principal-1", "department-finance", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "department-finance", session.ActiveContext.ID)

	departments.Unassign("principal-1", "department-finance")

	_, err = manager.SwitchContext(ctx, "principal-1", "department-finance", "sess-2")
	var nfErr *types.NotFoundError
	require.ErrorAs(t, err, &nfErr, "unassigned context no longer enumerates")
}

func TestManager_SwitchContext_TemporaryExpiryDenied(t *testing.T) {
	manager, _, temporary := testFixtures(t)
	ctx := context.Background()

	temporary.Grant(contexts.TemporaryGrant{
		PrincipalID: "principal-1",
		Label:       "Hotfix",
		Permissions: []string{"deploy_staging"},
		ExpiresAt:   time.Now().Add(20 * time.Millisecond),
	})

	time.Sleep(40 * time.Millisecond)

	_, err := manager.SwitchContext(ctx, "principal-1", "temporary-hotfix", "sess-1")
	var nfErr *types.NotFoundError
	require.ErrorAs(t, err, &nfErr, "expired grants drop out of enumeration")
}

func TestManager_SwitchContext_SessionStoreFailureDegrades(t *testing.T) {
	departments := contexts.NewStaticSource(types.ContextDepartment)
	departments.AddContext(types.Context{
		ID:          "department-engineering",
		Permissions: []string{"code_read", "code_write"},
	})
	departments.Assign("principal-1", "department-engineering")

	manager := contexts.NewManager(
		[]contexts.Source{departments},
		failingSessionStore{},
		nil, nil, nil, nil,
		contexts.DefaultConfig(),
	)

	// The switch decision stands even when session persistence fails
	session, err := manager.SwitchContext(context.Background(), "principal-1", "department-engineering", "sess-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "department-engineering", session.ActiveContext.ID)

	// The permission cache was still primed
	perms, ok := manager.SessionPermissions("principal-1", "sess-1")
	require.True(t, ok)
	assert.Equal(t, []string{"code_read", "code_write"}, perms)
}

func TestManager_GetCurrentContext_NilWhenAbsent(t *testing.T) {
	manager, _, _ := testFixtures(t)

	current, err := manager.GetCurrentContext(context.Background(), "principal-1", "never-switched")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestManager_GetContextPermissions(t *testing.T) {
	manager, _, _ := testFixtures(t)
	ctx := context.Background()

	perms := manager.GetContextPermissions(ctx, "department-engineering")
	assert.Equal(t, []string{"code_read", "code_write"}, perms)

	// Second read hits the cache
	perms = manager.GetContextPermissions(ctx, "department-engineering")
	assert.Equal(t, []string{"code_read", "code_write"}, perms)
}

func TestManager_GetContextPermissions_UnknownPrefixSilentlyEmpty(t *testing.T) {
	manager, _, _ := testFixtures(t)

	perms := manager.GetContextPermissions(context.Background(), "warehouse-7")
	assert.NotNil(t, perms)
	assert.Empty(t, perms)
}

func TestManager_GetContextPermissions_UnknownContextEmpty(t *testing.T) {
	manager, _, _ := testFixtures(t)

	perms := manager.GetContextPermissions(context.Background(), "department-nonexistent")
	assert.Empty(t, perms)
}

func TestManager_InvalidateSession(t *testing.T) {
	manager, _, _ := testFixtures(t)
	ctx := context.Background()

	_, err := manager.SwitchContext(ctx, "principal-1", "project-apollo", "sess-1")
	require.NoError(t, err)

	_, ok := manager.SessionPermissions("principal-1", "sess-1")
	require.True(t, ok)

	manager.InvalidateSession("principal-1", "sess-1")
	_, ok = manager.SessionPermissions("principal-1", "sess-1")
	assert.False(t, ok)
}
