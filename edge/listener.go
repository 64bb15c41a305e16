package edge

import (
	"context"
	"io"
	"net/http"

	"edge-dispatch/edge/application"
	"edge-dispatch/edge/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultRequestIDHeader = "X-Request-Id"

// Responder produz a resposta de uma requisição.
// *application.Dispatcher é a implementação de produção.
type Responder interface {
	Respond(ctx context.Context, req *http.Request) *domain.Response
}

// Listener assina o evento de requisição de entrada e responde cada um com o
// Responder. É um http.Handler.
type Listener struct {
	responder       Responder
	log             logrus.FieldLogger
	requestIDHeader string
}

type ListenerOption func(*Listener)

func WithLogger(log logrus.FieldLogger) ListenerOption {
	return func(l *Listener) { l.log = log }
}

// WithRequestIDHeader define o header de onde vem o id da requisição.
// Vazio: sempre gera um id novo.
func WithRequestIDHeader(h string) ListenerOption {
	return func(l *Listener) { l.requestIDHeader = h }
}

func NewListener(r Responder, opts ...ListenerOption) *Listener {
	l := &Listener{responder: r, requestIDHeader: DefaultRequestIDHeader}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		l.log = discard
	}
	return l
}

// OnRequest registra que a resposta do evento será produzida de forma
// assíncrona pelo Responder, numa goroutine própria. Não calcula nada.
func (l *Listener) OnRequest(ev *FetchEvent) {
	req := ev.Request
	pending := make(chan *domain.Response, 1)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				l.log.WithFields(logrus.Fields{
					"request_id": application.RequestIDFrom(req.Context()),
					"panic":      v,
				}).Error("responder panicked")
				pending <- domain.InternalError()
			}
		}()
		pending <- l.responder.Respond(req.Context(), req)
	}()

	if err := ev.RespondWith(pending); err != nil {
		l.log.WithError(err).Warn("event already answered")
	}
}

func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := ""
	if l.requestIDHeader != "" {
		id = r.Header.Get(l.requestIDHeader)
	}
	if id == "" {
		id = uuid.NewString()
	}
	r = r.WithContext(application.WithRequestID(r.Context(), id))

	ev := NewFetchEvent(r)
	l.OnRequest(ev)
	resp := ev.Wait()

	if !validStatus(resp.Status) {
		l.log.WithFields(logrus.Fields{"request_id": id, "status": resp.Status}).Warn("invalid response status")
		resp = domain.InternalError()
	}
	writeResponse(w, resp)
}

// net/http entra em panic com status fora de 1xx..9xx, e um 1xx é só
// informativo: o handler terminaria com um 200 implícito.
func validStatus(code int) bool { return code >= 200 && code <= 999 }

// writeResponse escreve a resposta como veio: headers, status e corpo.
// Sem Content-Type na resposta, o header é anulado para o net/http não
// adivinhar um.
func writeResponse(w http.ResponseWriter, resp *domain.Response) {
	h := w.Header()
	for k, vv := range resp.Header {
		h[k] = append([]string(nil), vv...)
	}
	if resp.Header.Values("Content-Type") == nil {
		h["Content-Type"] = nil
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
