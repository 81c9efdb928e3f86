package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/grove/pkg/adapters/redis"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.RunSnapshotStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "personal", []domain.Collection{domain.NewCollection("x")}))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "personal")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "personal")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("team:"))

	require.NoError(t, store.Save(context.Background(), "shared", []domain.Collection{domain.NewCollection("x")}))
	assert.True(t, mr.Exists("team:shared"))
}

func TestRedisStore_WatchSkipsOwnWrites(t *testing.T) {
	_, client := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := redis.NewFromClient(client)
	remote := redis.NewFromClient(client)

	keys, err := local.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, local.Save(ctx, "mine", []domain.Collection{domain.NewCollection("a")}))
	require.NoError(t, remote.Save(ctx, "theirs", []domain.Collection{domain.NewCollection("b")}))

	select {
	case key := <-keys:
		assert.Equal(t, "theirs", key)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an announcement from the other writer")
	}
}
