// Package infra contém as implementações concretas dos contratos de domain.
//
//   - MemoryKV / RedisKV: key-value persistente (go-redis em produção)
//   - HTTPCache: regras de frescor HTTP sobre um CacheTier
//   - MemoryTier / RedisTier / TieredCache: camadas do cache (LRU local + Redis)
//   - LimiterStore: token bucket por chave (golang.org/x/time/rate)
//   - ChanPool: semáforo para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore / Metrics: estatísticas de despacho
package infra
