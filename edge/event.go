package edge

import (
	"errors"
	"net/http"
	"sync"

	"edge-dispatch/edge/domain"
)

var (
	ErrAlreadyResponded = errors.New("edge: event already has a response")
	ErrNilPending       = errors.New("edge: nil response channel")
)

// FetchEvent é o evento de requisição de entrada.
//
// Carrega a requisição e aceita, uma única vez, o canal de onde virá a
// resposta (RespondWith). O Listener espera esse canal e entrega o que vier.
type FetchEvent struct {
	Request *http.Request

	mu      sync.Mutex
	pending <-chan *domain.Response
}

func NewFetchEvent(r *http.Request) *FetchEvent {
	return &FetchEvent{Request: r}
}

// RespondWith registra a resposta futura deste evento.
// O canal deve produzir no máximo um valor.
func (ev *FetchEvent) RespondWith(pending <-chan *domain.Response) error {
	if pending == nil {
		return ErrNilPending
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.pending != nil {
		return ErrAlreadyResponded
	}
	ev.pending = pending
	return nil
}

// Wait bloqueia até a resposta registrada ficar pronta.
// Sem resposta registrada, canal fechado ou valor nil: InternalError().
func (ev *FetchEvent) Wait() *domain.Response {
	ev.mu.Lock()
	pending := ev.pending
	ev.mu.Unlock()

	if pending == nil {
		return domain.InternalError()
	}
	resp, ok := <-pending
	if !ok || resp == nil {
		return domain.InternalError()
	}
	return resp
}
