package infra

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultMemoryTierEntries = 4096

// MemoryTier é a camada local do cache (por processo de borda): LRU limitado
// por número de entradas. A expiração é verificada por quem lê (HTTPCache).
type MemoryTier struct {
	lru *lru.Cache[string, CacheEntry]
}

func NewMemoryTier(size int) (*MemoryTier, error) {
	if size <= 0 {
		size = DefaultMemoryTierEntries
	}
	c, err := lru.New[string, CacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryTier{lru: c}, nil
}

func (t *MemoryTier) Load(_ context.Context, key string) (CacheEntry, bool, error) {
	e, ok := t.lru.Get(key)
	return e, ok, nil
}

func (t *MemoryTier) Store(_ context.Context, key string, e CacheEntry) error {
	t.lru.Add(key, e)
	return nil
}

func (t *MemoryTier) Remove(_ context.Context, key string) (bool, error) {
	return t.lru.Remove(key), nil
}

func (t *MemoryTier) Len() int { return t.lru.Len() }
