package dao

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-agent/model"
)

func redisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	store := NewRedisStore(client, "test-"+uuid.New().String()+":", time.Minute)
	require.NoError(t, store.Ping(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisPresenceLifecycle(t *testing.T) {
	store := redisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := model.AgentConnection{BusinessID: "b1", AgentID: "agent-a", ConnID: "c2", NodeID: "node-2", ConnectedAt: now}
	require.NoError(t, store.Register(ctx, fresh))

	stale := model.AgentConnection{BusinessID: "b1", AgentID: "agent-a", ConnID: "c1", NodeID: "node-1", ConnectedAt: now.Add(-time.Minute)}
	assert.ErrorIs(t, store.Register(ctx, stale), ErrStaleConnection)

	conn, err := store.Lookup(ctx, "b1", "agent-a")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "node-2", conn.NodeID)

	require.NoError(t, store.Unregister(ctx, "b1", "agent-a", "c1"))
	online, err := store.Online(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, online, 1, "an old connection id does not remove the newer one")

	require.NoError(t, store.Unregister(ctx, "b1", "agent-a", "c2"))
	conn, err = store.Lookup(ctx, "b1", "agent-a")
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestRedisPresenceValidation(t *testing.T) {
	store := NewRedisStore(nil, "", 0)
	ctx := context.Background()

	assert.ErrorIs(t, store.Register(ctx, model.AgentConnection{AgentID: "a"}), ErrInvalidParam)
	assert.ErrorIs(t, store.Unregister(ctx, "", "a", ""), ErrInvalidParam)
	assert.Equal(t, "support-agent:presence:b1", store.key("b1"))
}
