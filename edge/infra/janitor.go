package infra

import "time"

// DoneContext é o mínimo para aceitar context.Context sem acoplar o pacote.
type DoneContext interface {
	Done() <-chan struct{}
}

// startJanitor roda fn a cada intervalo até o ctx encerrar.
func startJanitor(ctx DoneContext, every time.Duration, fn func()) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}
