package domain

import "time"

// Key identifica o cliente na admissão (IP, API key, header).
type Key string

// Limiter decide se uma ação é permitida agora (token bucket na infra).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave.
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter vai no header Retry-After quando bloquear. 0 = sem recomendação.
	RetryAfter time.Duration
}
