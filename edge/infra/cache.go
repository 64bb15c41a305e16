package infra

import (
	"context"
	"net/http"
	"time"

	"edge-dispatch/edge/domain"
)

// CacheEntry é uma resposta guardada numa camada do cache.
type CacheEntry struct {
	Status    int         `json:"status"`
	Header    http.Header `json:"header,omitempty"`
	Body      []byte      `json:"body,omitempty"`
	StoredAt  time.Time   `json:"stored_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (e CacheEntry) Fresh(now time.Time) bool { return now.Before(e.ExpiresAt) }

// Response devolve uma cópia: quem recebe pode alterar à vontade.
func (e CacheEntry) Response() *domain.Response {
	return (&domain.Response{Status: e.Status, Header: e.Header, Body: e.Body}).Clone()
}

// CacheTier é uma camada de armazenamento do cache (local, Redis...).
// Não aplica regras HTTP; só guarda e devolve entradas por chave.
type CacheTier interface {
	Load(ctx context.Context, key string) (CacheEntry, bool, error)
	Store(ctx context.Context, key string, e CacheEntry) error
	Remove(ctx context.Context, key string) (bool, error)
}

// HTTPCache implementa domain.Cache sobre um CacheTier aplicando as regras
// de frescor (FreshnessLifetime). Só GET é guardado.
type HTTPCache struct {
	tier CacheTier
	now  func() time.Time
}

type HTTPCacheOption func(*HTTPCache)

func WithCacheClock(now func() time.Time) HTTPCacheOption {
	return func(c *HTTPCache) { c.now = now }
}

func NewHTTPCache(tier CacheTier, opts ...HTTPCacheOption) *HTTPCache {
	c := &HTTPCache{tier: tier, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPCache) Match(ctx context.Context, req *http.Request) (*domain.Response, bool, error) {
	if req.Method != http.MethodGet {
		return nil, false, nil
	}
	key := domain.CacheKey(req)
	e, ok, err := c.tier.Load(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if !e.Fresh(c.now()) {
		_, _ = c.tier.Remove(ctx, key)
		return nil, false, nil
	}
	return e.Response(), true, nil
}

func (c *HTTPCache) Put(ctx context.Context, req *http.Request, resp *domain.Response) error {
	if req.Method != http.MethodGet {
		return domain.ErrMethodNotCacheable
	}
	now := c.now()
	ttl, err := FreshnessLifetime(resp, now)
	if err != nil {
		return err
	}
	cp := resp.Clone()
	return c.tier.Store(ctx, domain.CacheKey(req), CacheEntry{
		Status:    cp.Status,
		Header:    cp.Header,
		Body:      cp.Body,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	})
}

func (c *HTTPCache) Delete(ctx context.Context, req *http.Request) (bool, error) {
	if req.Method != http.MethodGet {
		return false, nil
	}
	return c.tier.Remove(ctx, domain.CacheKey(req))
}
