package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"edge-dispatch/edge/domain"

	"github.com/dop251/goja"
)

var (
	ErrNoHandler    = errors.New("script: global function handle not defined")
	ErrNoResponse   = errors.New("script: handle returned no response")
	ErrPending      = errors.New("script: handle promise never settled")
	ErrBodyTooLarge = errors.New("script: request body too large")
	ErrNotAnObject  = errors.New("script: response must be an object")
)

const (
	DefaultPoolSize         = 64
	DefaultMaxBodyLen int64 = 1 << 20
)

// Unit implementa domain.Unit sobre um programa JavaScript pré-compilado.
type Unit struct {
	program *goja.Program
	slots   chan struct{}
	maxBody int64
}

type Option func(*Unit)

// WithPoolSize limita quantos runtimes rodam ao mesmo tempo.
func WithPoolSize(n int) Option {
	return func(u *Unit) {
		if n > 0 {
			u.slots = make(chan struct{}, n)
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(u *Unit) {
		if n > 0 {
			u.maxBody = n
		}
	}
}

// Compile compila o script e confere que ele define handle.
func Compile(name, src string, opts ...Option) (*Unit, error) {
	prg, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	vm := goja.New()
	if _, err := vm.RunProgram(prg); err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	if _, ok := goja.AssertFunction(vm.Get("handle")); !ok {
		return nil, ErrNoHandler
	}

	u := &Unit{
		program: prg,
		slots:   make(chan struct{}, DefaultPoolSize),
		maxBody: DefaultMaxBodyLen,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

func (u *Unit) Handle(ctx context.Context, req *http.Request, kv domain.KVStore, cache domain.Cache) (*domain.Response, error) {
	select {
	case u.slots <- struct{}{}:
		defer func() { <-u.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body, err := u.readBody(req)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	if _, err := vm.RunProgram(u.program); err != nil {
		return nil, err
	}
	handle, ok := goja.AssertFunction(vm.Get("handle"))
	if !ok {
		return nil, ErrNoHandler
	}

	ret, err := handle(goja.Undefined(),
		requestObject(vm, req, body),
		kvObject(ctx, vm, kv),
		cacheObject(ctx, vm, cache),
	)
	if err != nil {
		return nil, err
	}
	if ret, err = settle(ret); err != nil {
		return nil, err
	}
	return toResponse(vm, ret)
}

func (u *Unit) readBody(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return "", nil
	}
	b, err := io.ReadAll(io.LimitReader(req.Body, u.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("script: read body: %w", err)
	}
	if int64(len(b)) > u.maxBody {
		return "", ErrBodyTooLarge
	}
	return string(b), nil
}

// settle desembrulha uma Promise. Os jobs da fila já rodaram quando a
// chamada a handle retorna.
func settle(v goja.Value) (goja.Value, error) {
	if v == nil {
		return v, nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("script: promise rejected: %s", p.Result())
	default:
		return nil, ErrPending
	}
}

func requestObject(vm *goja.Runtime, req *http.Request, body string) *goja.Object {
	headers := make(map[string]interface{}, len(req.Header))
	for k, vv := range req.Header {
		headers[strings.ToLower(k)] = strings.Join(vv, ", ")
	}
	o := vm.NewObject()
	_ = o.Set("method", req.Method)
	_ = o.Set("url", domain.CacheKey(req))
	_ = o.Set("headers", headers)
	_ = o.Set("body", body)
	return o
}

func kvObject(ctx context.Context, vm *goja.Runtime, kv domain.KVStore) *goja.Object {
	o := vm.NewObject()
	_ = o.Set("get", func(call goja.FunctionCall) goja.Value {
		v, found, err := kv.Get(ctx, call.Argument(0).String())
		if err != nil {
			panic(vm.NewGoError(err))
		}
		if !found {
			return goja.Null()
		}
		return vm.ToValue(string(v))
	})
	_ = o.Set("put", func(call goja.FunctionCall) goja.Value {
		var ttl time.Duration
		if a := call.Argument(2); !goja.IsUndefined(a) && !goja.IsNull(a) {
			ttl = time.Duration(a.ToInteger()) * time.Second
		}
		if err := kv.Put(ctx, call.Argument(0).String(), []byte(call.Argument(1).String()), ttl); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	_ = o.Set("delete", func(call goja.FunctionCall) goja.Value {
		if err := kv.Delete(ctx, call.Argument(0).String()); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	return o
}

func cacheObject(ctx context.Context, vm *goja.Runtime, cache domain.Cache) *goja.Object {
	o := vm.NewObject()
	_ = o.Set("match", func(call goja.FunctionCall) goja.Value {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, call.Argument(0).String(), nil)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		resp, hit, err := cache.Match(ctx, req)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		if !hit {
			return goja.Null()
		}
		return fromResponse(vm, resp)
	})
	_ = o.Set("put", func(call goja.FunctionCall) goja.Value {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, call.Argument(0).String(), nil)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		resp, err := toResponse(vm, call.Argument(1))
		if err != nil {
			panic(vm.NewGoError(err))
		}
		if err := cache.Put(ctx, req, resp); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	return o
}

func fromResponse(vm *goja.Runtime, resp *domain.Response) *goja.Object {
	headers := make(map[string]interface{}, len(resp.Header))
	for k, vv := range resp.Header {
		headers[strings.ToLower(k)] = strings.Join(vv, ", ")
	}
	o := vm.NewObject()
	_ = o.Set("status", resp.Status)
	_ = o.Set("headers", headers)
	_ = o.Set("body", string(resp.Body))
	return o
}

// toResponse lê {status, headers, body}. status ausente vale 200.
func toResponse(vm *goja.Runtime, v goja.Value) (*domain.Response, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, ErrNoResponse
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, ErrNotAnObject
	}

	resp := domain.NewResponse(http.StatusOK, nil)
	if s := obj.Get("status"); s != nil && !goja.IsUndefined(s) && !goja.IsNull(s) {
		resp.Status = int(s.ToInteger())
	}
	if h := obj.Get("headers"); h != nil && !goja.IsUndefined(h) && !goja.IsNull(h) {
		hobj := h.ToObject(vm)
		for _, k := range hobj.Keys() {
			resp.Header.Add(k, hobj.Get(k).String())
		}
	}
	if b := obj.Get("body"); b != nil && !goja.IsUndefined(b) && !goja.IsNull(b) {
		resp.Body = []byte(b.String())
	}
	return resp, nil
}
