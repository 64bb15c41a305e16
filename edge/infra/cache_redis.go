package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier é a camada compartilhada do cache. A entrada vai como JSON e o
// TTL do Redis acompanha o frescor da resposta.
type RedisTier struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

type RedisTierOption func(*RedisTier)

func WithTierPrefix(prefix string) RedisTierOption {
	return func(t *RedisTier) { t.prefix = strings.Trim(prefix, ":") }
}

func NewRedisTier(rdb redis.UniversalClient, opts ...RedisTierOption) *RedisTier {
	t := &RedisTier{rdb: rdb, prefix: "edge:cache", now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RedisTier) key(k string) string { return t.prefix + ":" + k }

func (t *RedisTier) Load(ctx context.Context, key string) (CacheEntry, bool, error) {
	raw, err := t.rdb.Get(ctx, t.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}
	var e CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return CacheEntry{}, false, fmt.Errorf("cache entry %q: %w", key, err)
	}
	return e, true, nil
}

func (t *RedisTier) Store(ctx context.Context, key string, e CacheEntry) error {
	ttl := e.ExpiresAt.Sub(t.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return t.rdb.Set(ctx, t.key(key), raw, ttl).Err()
}

func (t *RedisTier) Remove(ctx context.Context, key string) (bool, error) {
	n, err := t.rdb.Del(ctx, t.key(key)).Result()
	return n > 0, err
}
