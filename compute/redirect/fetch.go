package redirect

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"edge-dispatch/edge/domain"
)

var ErrResponseTooLarge = errors.New("redirect: upstream response too large")

// Fetcher busca a origem no modo fetch.
type Fetcher interface {
	Fetch(req *http.Request) (*domain.Response, error)
}

const (
	DefaultFetchTimeout  = 10 * time.Second
	DefaultMaxFetchBytes = 10 << 20
)

// HTTPFetcher usa um http.Client e lê o corpo inteiro, até MaxBytes.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchBytes
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}, MaxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(req *http.Request) (*domain.Response, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	max := f.MaxBytes
	if max <= 0 {
		max = DefaultMaxFetchBytes
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, max+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", req.URL, err)
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, ErrResponseTooLarge)
	}
	return &domain.Response{Status: res.StatusCode, Header: res.Header.Clone(), Body: body}, nil
}
