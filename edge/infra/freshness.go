package infra

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"edge-dispatch/edge/domain"
)

// Status que um cache compartilhado pode guardar com frescor explícito (RFC 9111).
// 206 fica de fora: não há suporte a ranges.
var cacheableStatus = map[int]bool{
	http.StatusOK:                   true,
	http.StatusNonAuthoritativeInfo: true,
	http.StatusNoContent:            true,
	http.StatusMultipleChoices:      true,
	http.StatusMovedPermanently:     true,
	http.StatusPermanentRedirect:    true,
	http.StatusNotFound:             true,
	http.StatusMethodNotAllowed:     true,
	http.StatusGone:                 true,
	http.StatusRequestURITooLong:    true,
	http.StatusNotImplemented:       true,
}

// CacheControl são as diretivas de Cache-Control, em minúsculas.
// Diretivas sem valor mapeiam para "".
type CacheControl map[string]string

func ParseCacheControl(h http.Header) CacheControl {
	cc := CacheControl{}
	for _, line := range h.Values("Cache-Control") {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, _ := strings.Cut(part, "=")
			cc[strings.ToLower(strings.TrimSpace(name))] = strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return cc
}

func (cc CacheControl) Has(name string) bool {
	_, ok := cc[name]
	return ok
}

// Seconds lê uma diretiva delta-seconds (max-age, s-maxage).
func (cc CacheControl) Seconds(name string) (time.Duration, bool) {
	v, ok := cc[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// FreshnessLifetime diz por quanto tempo uma resposta pode ser servida do
// cache compartilhado. Retorna domain.ErrNotCacheable quando não pode ser
// guardada.
//
// Ordem: s-maxage, max-age, Expires (relativo ao Date, ou a now). Sem
// frescor explícito a resposta não é guardada (não há heurística).
// no-cache também não é guardado: o cache não revalida.
func FreshnessLifetime(resp *domain.Response, now time.Time) (time.Duration, error) {
	if resp == nil || !cacheableStatus[resp.Status] {
		return 0, domain.ErrNotCacheable
	}
	h := resp.Header
	if h == nil {
		return 0, domain.ErrNotCacheable
	}

	cc := ParseCacheControl(h)
	if cc.Has("no-store") || cc.Has("private") || cc.Has("no-cache") {
		return 0, domain.ErrNotCacheable
	}
	if len(h.Values("Set-Cookie")) > 0 {
		return 0, domain.ErrNotCacheable
	}
	for _, v := range h.Values("Vary") {
		if strings.TrimSpace(v) == "*" {
			return 0, domain.ErrNotCacheable
		}
	}

	ttl, ok := cc.Seconds("s-maxage")
	if !ok {
		ttl, ok = cc.Seconds("max-age")
	}
	if !ok {
		exp := h.Get("Expires")
		if exp == "" {
			return 0, domain.ErrNotCacheable
		}
		expiresAt, err := http.ParseTime(exp)
		if err != nil {
			// Expires inválido significa "já vencido".
			return 0, domain.ErrNotCacheable
		}
		base := now
		if d, err := http.ParseTime(h.Get("Date")); err == nil {
			base = d
		}
		ttl = expiresAt.Sub(base)
	}

	if ttl <= 0 {
		return 0, domain.ErrNotCacheable
	}
	return ttl, nil
}
