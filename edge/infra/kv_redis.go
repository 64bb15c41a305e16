package infra

import (
	"context"
	"errors"
	"strings"
	"time"

	"edge-dispatch/edge/domain"

	"github.com/redis/go-redis/v9"
)

// RedisKV é o key-value durável sobre Redis.
type RedisKV struct {
	rdb    redis.UniversalClient
	prefix string
}

type RedisKVOption func(*RedisKV)

func WithKVPrefix(prefix string) RedisKVOption {
	return func(s *RedisKV) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisKV(rdb redis.UniversalClient, opts ...RedisKVOption) *RedisKV {
	s := &RedisKV{rdb: rdb, prefix: "edge:kv"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisKV) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, domain.ErrEmptyKey
	}
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *RedisKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	// go-redis trata ttl negativo como KEEPTTL; aqui negativo = sem expiração.
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	return s.rdb.Del(ctx, s.key(key)).Err()
}
