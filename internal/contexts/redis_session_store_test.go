package contexts_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeauth/go-core/internal/contexts"
	"github.com/scopeauth/go-core/pkg/types"
)

func newRedisStore(t *testing.T) *contexts.RedisSessionStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return contexts.NewRedisSessionStore(client, "", time.Hour)
}

func TestRedisSessionStore_Roundtrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	session := &types.ContextSession{
		PrincipalID: "principal-1",
		SessionID:   "sess-1",
		ActiveContext: types.Context{
			ID:          "department-engineering",
			Type:        types.ContextDepartment,
			Name:        "Engineering",
			Permissions: []string{"code_read"},
		},
		AvailableContexts: []types.Context{
			{ID: "department-engineering", Type: types.ContextDepartment},
			{ID: "project-apollo", Type: types.ContextProject},
		},
		SwitchedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.Set(ctx, session))

	got, err := store.Get(ctx, "principal-1", "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "department-engineering", got.ActiveContext.ID)
	assert.Len(t, got.AvailableContexts, 2)
}

func TestRedisSessionStore_MissReturnsNil(t *testing.T) {
	store := newRedisStore(t)

	got, err := store.Get(context.Background(), "principal-1", "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionStore_Delete(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	session := &types.ContextSession{PrincipalID: "principal-1", SessionID: "sess-1"}
	require.NoError(t, store.Set(ctx, session))
	require.NoError(t, store.Delete(ctx, "principal-1", "sess-1"))

	got, err := store.Get(ctx, "principal-1", "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent session is a no-op
	require.NoError(t, store.Delete(ctx, "principal-1", "sess-1"))
}
