package infra

import (
	"context"
	"sync"
	"time"

	"edge-dispatch/edge/domain"
)

// MemoryKV é um key-value em memória com expiração.
// Útil para desenvolvimento e testes; não é durável.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]kvEntry
	now     func() time.Time
}

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero = sem expiração
}

func (e kvEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type MemoryKVOption func(*MemoryKV)

// WithKVClock troca o relógio (testes).
func WithKVClock(now func() time.Time) MemoryKVOption {
	return func(s *MemoryKV) { s.now = now }
}

func NewMemoryKV(opts ...MemoryKVOption) *MemoryKV {
	s := &MemoryKV{entries: make(map[string]kvEntry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, domain.ErrEmptyKey
	}
	s.mu.RLock()
	ent, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || ent.expired(s.now()) {
		return nil, false, nil
	}
	return append([]byte(nil), ent.value...), true, nil
}

func (s *MemoryKV) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	ent := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		ent.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = ent
	s.mu.Unlock()
	return nil
}

func (s *MemoryKV) Delete(_ context.Context, key string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryKV) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Cleanup remove entradas vencidas.
func (s *MemoryKV) Cleanup() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ent := range s.entries {
		if ent.expired(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor limpa entradas vencidas periodicamente. Pare cancelando o ctx.
func (s *MemoryKV) StartJanitor(ctx DoneContext, every time.Duration) {
	startJanitor(ctx, every, s.Cleanup)
}
