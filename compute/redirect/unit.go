package redirect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"edge-dispatch/edge/domain"
)

var ErrNoDomain = errors.New("redirect: request has no domain")

// Unit implementa domain.Unit.
type Unit struct {
	Fetcher Fetcher
}

func New(f Fetcher) *Unit {
	return &Unit{Fetcher: f}
}

func (u *Unit) Handle(ctx context.Context, req *http.Request, kv domain.KVStore, cache domain.Cache) (*domain.Response, error) {
	host := domainOf(req)
	if host == "" {
		return nil, ErrNoDomain
	}
	path := req.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	key := host + path
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}

	raw, found, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		if raw, found, err = kv.Get(ctx, host); err != nil {
			return nil, err
		}
	}
	if !found {
		return &domain.Response{Status: http.StatusNotFound}, nil
	}

	v, err := ParseValue(string(raw))
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", key, err)
	}

	if v.Fetch {
		return u.fetch(ctx, v.URL, cache)
	}

	status := http.StatusTemporaryRedirect
	if v.Permanent {
		status = http.StatusMovedPermanently
	}
	target := v.URL
	if v.AppendPath {
		target += path
	}
	if _, err := url.Parse(target); err != nil {
		return nil, fmt.Errorf("redirect target: %w", err)
	}

	resp := domain.NewResponse(status, nil)
	resp.Header.Set("Location", target)
	return resp, nil
}

func (u *Unit) fetch(ctx context.Context, target string, cache domain.Cache) (*domain.Response, error) {
	if u.Fetcher == nil {
		return nil, errors.New("redirect: fetch mode without fetcher")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	if cached, hit, err := cache.Match(ctx, req); err != nil {
		return nil, err
	} else if hit {
		return cached, nil
	}

	resp, err := u.Fetcher.Fetch(req)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(ctx, req, resp); err != nil && !errors.Is(err, domain.ErrNotCacheable) {
		return nil, err
	}
	return resp, nil
}

// domainOf devolve o nome de domínio da requisição. IP não é domínio.
func domainOf(req *http.Request) string {
	host := req.URL.Hostname()
	if host == "" {
		host = req.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || net.ParseIP(strings.Trim(host, "[]")) != nil {
		return ""
	}
	return host
}
