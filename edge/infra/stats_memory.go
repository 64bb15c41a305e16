package infra

import (
	"context"
	"sync"

	"edge-dispatch/edge/domain"
)

// Counters conta despachos por desfecho.
type Counters struct {
	Completed int64
	Failed    int64
	Timeout   int64
	Canceled  int64
	Rejected  int64
}

func (c *Counters) add(o domain.Outcome) {
	switch o {
	case domain.OutcomeCompleted:
		c.Completed++
	case domain.OutcomeFailed:
		c.Failed++
	case domain.OutcomeTimeout:
		c.Timeout++
	case domain.OutcomeCanceled:
		c.Canceled++
	case domain.OutcomeRejected:
		c.Rejected++
	}
}

func (c Counters) Total() int64 {
	return c.Completed + c.Failed + c.Timeout + c.Canceled + c.Rejected
}

// MemoryStatsStore guarda contadores em memória, sem expiração.
// Útil para testes e desenvolvimento.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{byRoute: make(map[string]Counters)}
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.DispatchEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Outcome)
	c := s.byRoute[route]
	c.add(ev.Outcome)
	s.byRoute[route] = c
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}
