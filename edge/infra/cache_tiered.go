package infra

import (
	"context"
	"errors"
)

// TieredCache combina a camada local (L1) com uma compartilhada (L2).
//
// Load: L1, depois L2; um acerto em L2 é promovido para L1.
// Store/Remove: nas duas camadas.
type TieredCache struct {
	l1 CacheTier
	l2 CacheTier
}

func NewTieredCache(l1, l2 CacheTier) *TieredCache {
	return &TieredCache{l1: l1, l2: l2}
}

func (c *TieredCache) Load(ctx context.Context, key string) (CacheEntry, bool, error) {
	if e, ok, err := c.l1.Load(ctx, key); err == nil && ok {
		return e, true, nil
	}
	if c.l2 == nil {
		return CacheEntry{}, false, nil
	}
	e, ok, err := c.l2.Load(ctx, key)
	if err != nil || !ok {
		return CacheEntry{}, false, err
	}
	_ = c.l1.Store(ctx, key, e)
	return e, true, nil
}

func (c *TieredCache) Store(ctx context.Context, key string, e CacheEntry) error {
	err := c.l1.Store(ctx, key, e)
	if c.l2 != nil {
		err = errors.Join(err, c.l2.Store(ctx, key, e))
	}
	return err
}

func (c *TieredCache) Remove(ctx context.Context, key string) (bool, error) {
	removed, err := c.l1.Remove(ctx, key)
	if c.l2 != nil {
		r2, err2 := c.l2.Remove(ctx, key)
		removed = removed || r2
		err = errors.Join(err, err2)
	}
	return removed, err
}
