package domain

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrNotCacheable indica que a resposta não pode ser armazenada pelas
	// regras de frescor (no-store, private, Set-Cookie, sem max-age, etc.).
	ErrNotCacheable = errors.New("cache: response not cacheable")
	// ErrMethodNotCacheable: só GET entra no cache.
	ErrMethodNotCacheable = errors.New("cache: only GET requests are cacheable")
)

// Cache é o handle do cache HTTP em camadas, chaveado pela identidade da
// requisição (ver CacheKey).
//
// Match retorna hit=false em miss ou entrada vencida. Put armazena uma cópia;
// a resposta passada continua pertencendo a quem chamou.
type Cache interface {
	Match(ctx context.Context, req *http.Request) (resp *Response, hit bool, err error)
	Put(ctx context.Context, req *http.Request, resp *Response) error
	Delete(ctx context.Context, req *http.Request) (bool, error)
}

// CacheKey é a identidade da requisição para o cache: a URL absoluta sem
// fragmento. O método não entra porque só GET é armazenado.
func CacheKey(req *http.Request) string {
	u := *req.URL
	u.Fragment = ""
	u.RawFragment = ""
	if u.Host == "" {
		u.Host = req.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if req.TLS != nil {
			u.Scheme = "https"
		}
	}
	return u.String()
}
