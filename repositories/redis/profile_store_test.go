package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/repositories/storetest"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, opts Options) (*ProfileStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := NewProfileStore(client, opts, zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestProfileStore_Contract(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	storetest.RunProfileStoreContract(t, store)
}

func TestProfileStore_HashLayout(t *testing.T) {
	store, mr := newTestStore(t, Options{Prefix: "test:"})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "abc", repositories.KeyUserSession, `{"email":"x"}`))
	assert.Equal(t, `{"email":"x"}`, mr.HGet("test:abc", repositories.KeyUserSession))
}

func TestProfileStore_TTL(t *testing.T) {
	store, mr := newTestStore(t, Options{TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "abc", repositories.KeyAdminToken, "tok"))
	assert.Equal(t, time.Minute, mr.TTL(defaultPrefix+"abc"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := store.Get(ctx, "abc", repositories.KeyAdminToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfileStore_ServerDown(t *testing.T) {
	store, mr := newTestStore(t, Options{})
	mr.Close()

	_, _, err := store.Get(context.Background(), "abc", repositories.KeyAdminToken)
	assert.Error(t, err)
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewClient(context.Background(), "not a url")
	assert.Error(t, err)
}
