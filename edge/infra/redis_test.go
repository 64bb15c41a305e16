package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"edge-dispatch/edge/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Os testes com Redis real só rodam com EDGE_TEST_REDIS_ADDR definido.
func testRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	addr := os.Getenv("EDGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EDGE_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err())

	prefix := "edge-test:" + uuid.NewString()
	t.Cleanup(func() {
		keys, _ := rdb.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			_ = rdb.Del(context.Background(), keys...).Err()
		}
	})
	return rdb, prefix
}

func TestRedisKV_PutGetDelete(t *testing.T) {
	rdb, prefix := testRedis(t)
	ctx := context.Background()
	kv := NewRedisKV(rdb, WithKVPrefix(prefix+":kv"))

	_, found, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Put(ctx, "k", []byte("v"), time.Minute))
	v, found, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, found, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisTier_ThroughHTTPCache(t *testing.T) {
	rdb, prefix := testRedis(t)
	ctx := context.Background()
	cache := NewHTTPCache(NewRedisTier(rdb, WithTierPrefix(prefix+":cache")))

	req := httptest.NewRequest(http.MethodGet, "https://origin.example/r", nil)
	require.NoError(t, cache.Put(ctx, req, respWith(http.StatusOK, "Cache-Control", "max-age=60")))

	got, hit, err := cache.Match(ctx, req)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("body"), got.Body)
	assert.Equal(t, "max-age=60", got.Header.Get("Cache-Control"))
}

func TestRedisStatsStore_Record(t *testing.T) {
	rdb, prefix := testRedis(t)
	ctx := context.Background()
	s := NewRedisStatsStore(rdb, WithStatsPrefix(prefix+":stats"), WithStatsBucket("none"))

	require.NoError(t, s.Record(ctx, domain.DispatchEvent{Outcome: domain.OutcomeFailed, Method: "GET", Path: "/x"}))

	n, err := rdb.HGet(ctx, prefix+":stats:total", "failed").Int()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = rdb.HGet(ctx, prefix+":stats:route", "GET /x:failed").Int()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
