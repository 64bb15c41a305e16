package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"edge-dispatch/edge/domain"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoUnit       = errors.New("dispatch: no unit configured")
	ErrNilResponse  = errors.New("dispatch: unit returned nil response")
	ErrBodyTooLarge = errors.New("dispatch: request body too large")
)

const DefaultMaxBodyBytes int64 = 10 << 20

// PanicError embrulha um panic recuperado dentro da unidade.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("dispatch: unit panicked: %v", e.Value) }

// Observer recebe as transições de fase de cada requisição.
// É chamado de várias goroutines ao mesmo tempo.
type Observer func(requestID string, phase domain.Phase)

// Dispatcher produz a resposta de uma requisição delegando à unidade de
// computação, com contenção total de falhas.
//
// KV e Cache são criados uma vez no processo e repassados sem modificação a
// cada chamada. O Dispatcher nunca lê nem escreve neles.
type Dispatcher struct {
	Unit  domain.Unit
	KV    domain.KVStore
	Cache domain.Cache

	// Timeout é o prazo da unidade. Vencido, a requisição recebe o fallback e
	// o contexto da unidade é cancelado. <= 0 deixa o prazo a cargo do host.
	Timeout time.Duration

	// MaxBodyBytes limita o corpo lido antes da unidade. <= 0 usa
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64

	Stats    domain.StatsStore
	Observer Observer
	Log      logrus.FieldLogger
}

type result struct {
	resp *domain.Response
	err  error
}

// Respond chama a unidade no máximo uma vez e devolve exatamente uma resposta.
//
// Sucesso: a resposta da unidade é devolvida como veio, sem inspeção.
// Falha (erro, panic, resposta nil, prazo ou cancelamento): InternalError().
// O conteúdo da falha só vai para o log do servidor.
func (d *Dispatcher) Respond(ctx context.Context, req *http.Request) *domain.Response {
	start := time.Now()
	id := RequestIDFrom(ctx)
	d.observe(id, domain.PhaseReceived)

	resp, outcome, err := d.invoke(ctx, req, id)
	if err != nil {
		d.observe(id, domain.PhaseFailed)
		d.logger().WithFields(logrus.Fields{
			"request_id": id,
			"outcome":    outcome,
			"method":     req.Method,
			"path":       req.URL.Path,
		}).WithError(err).Warn("dispatch failed")
		resp = domain.InternalError()
	} else {
		d.observe(id, domain.PhaseCompleted)
	}

	d.record(ctx, domain.DispatchEvent{
		RequestID: id,
		Outcome:   outcome,
		Status:    resp.Status,
		Method:    req.Method,
		Path:      req.URL.Path,
		At:        start,
		Duration:  time.Since(start),
	})
	d.observe(id, domain.PhaseResponded)
	return resp
}

func (d *Dispatcher) invoke(ctx context.Context, req *http.Request, id string) (*domain.Response, domain.Outcome, error) {
	if d.Unit == nil {
		return nil, domain.OutcomeFailed, ErrNoUnit
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if d.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	unitReq, err := d.detachBody(req)
	if err != nil {
		return nil, domain.OutcomeFailed, err
	}

	d.observe(id, domain.PhaseInvoking)

	// buffer 1: um resultado tardio (após o prazo) não bloqueia a goroutine.
	done := make(chan result, 1)
	go func() { done <- d.call(runCtx, unitReq) }()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, domain.OutcomeFailed, r.err
		}
		if r.resp == nil {
			return nil, domain.OutcomeFailed, ErrNilResponse
		}
		return r.resp, domain.OutcomeCompleted, nil
	case <-runCtx.Done():
		err := runCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.OutcomeTimeout, err
		}
		return nil, domain.OutcomeCanceled, err
	}
}

// detachBody devolve uma cópia da requisição com o corpo já em memória.
// Depois que Respond retorna (prazo ou cancelamento) o net/http não permite
// mais ler req.Body, e a unidade pode continuar rodando.
func (d *Dispatcher) detachBody(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("dispatch: read body: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, ErrBodyTooLarge
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(b))
	out.ContentLength = int64(len(b))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return out, nil
}

func (d *Dispatcher) call(ctx context.Context, req *http.Request) (r result) {
	defer func() {
		if v := recover(); v != nil {
			r = result{err: &PanicError{Value: v, Stack: debug.Stack()}}
		}
	}()
	resp, err := d.Unit.Handle(ctx, req, d.KV, d.Cache)
	return result{resp: resp, err: err}
}

func (d *Dispatcher) observe(id string, p domain.Phase) {
	if d.Observer != nil {
		d.Observer(id, p)
	}
}

func (d *Dispatcher) record(ctx context.Context, ev domain.DispatchEvent) {
	if d.Stats == nil {
		return
	}
	// o cliente pode ter ido embora; estatística não depende disso.
	if err := d.Stats.Record(context.WithoutCancel(ctx), ev); err != nil {
		d.logger().WithError(err).Debug("stats record failed")
	}
}

func (d *Dispatcher) logger() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return discardLogger
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()
