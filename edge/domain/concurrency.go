package domain

import "context"

// SlotPool é um recurso de capacidade finita (requisições em voo).
//
// Acquire bloqueia até conseguir vaga ou até o ctx encerrar. O release
// retornado deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
