package domain

import (
	"context"
	"time"
)

// Phase é o estado de uma requisição no despacho:
// Received -> Invoking -> {Completed | Failed} -> Responded.
type Phase int

const (
	PhaseReceived Phase = iota + 1
	PhaseInvoking
	PhaseCompleted
	PhaseFailed
	PhaseResponded
)

func (p Phase) String() string {
	switch p {
	case PhaseReceived:
		return "received"
	case PhaseInvoking:
		return "invoking"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseResponded:
		return "responded"
	default:
		return "unknown"
	}
}

// Outcome resume como a requisição terminou.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed cobre erro retornado, panic e resposta nil.
	OutcomeFailed   Outcome = "failed"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeCanceled Outcome = "canceled"
	// OutcomeRejected: barrada na admissão (rate limit/concorrência), a unidade não foi chamada.
	OutcomeRejected Outcome = "rejected"
)

// DispatchEvent registra o resultado de um despacho.
//
// Method/Path são strings genéricas. Cuidado com cardinalidade ao persistir
// Path em Redis/Prometheus.
type DispatchEvent struct {
	RequestID string
	Outcome   Outcome
	Status    int

	Method string
	Path   string

	At       time.Time
	Duration time.Duration
}

// StatsStore persiste eventos de despacho (Redis, memória, Prometheus...).
// Quem chama trata erro como best-effort: nunca derruba a requisição.
type StatsStore interface {
	Record(ctx context.Context, ev DispatchEvent) error
}
