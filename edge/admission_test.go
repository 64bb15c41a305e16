package edge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edge-dispatch/edge/domain"
	"edge-dispatch/edge/infra"
)

func TestAdmissionMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	store := infra.NewLimiterStore(0.02, 1)
	stats := infra.NewMemoryStatsStore()

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	h := AdmissionMiddleware(AdmissionOptions{
		Store:               store,
		Stats:               stats,
		RetryAfter:          time.Second,
		AddRateLimitHeaders: true,
	})(next)

	r1 := httptest.NewRequest(http.MethodGet, "http://edge/a", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if len(w1.Header()) != 0 {
		t.Fatalf("expected no headers on allowed request, got %v", w1.Header())
	}

	r2 := httptest.NewRequest(http.MethodGet, "http://edge/a", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if w2.Header().Get("X-RateLimit-Key") != "10.0.0.1" {
		t.Fatalf("expected X-RateLimit-Key header, got %q", w2.Header().Get("X-RateLimit-Key"))
	}
	if w2.Header().Get("X-RateLimit-RPS") != "0.02" || w2.Header().Get("X-RateLimit-Burst") != "1" {
		t.Fatalf("expected rate headers, got %v", w2.Header())
	}
	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
	if got := stats.Total().Rejected; got != 1 {
		t.Fatalf("expected one rejected event, got %d", got)
	}
}

func TestAdmissionMiddleware_KeysAreIndependent(t *testing.T) {
	h := AdmissionMiddleware(AdmissionOptions{
		Store:     infra.NewLimiterStore(0.02, 1),
		KeyHeader: "X-Api-Key",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, key := range []string{"k1", "k2"} {
		r := httptest.NewRequest(http.MethodGet, "http://edge/", nil)
		r.Header.Set("X-Api-Key", key)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for key %s, got %d", key, w.Code)
		}
	}
}

func TestAdmissionMiddleware_RetryAfterUsesSeconds(t *testing.T) {
	h := AdmissionMiddleware(AdmissionOptions{
		Store:      infra.NewLimiterStore(0.02, 1),
		RetryAfter: 2500 * time.Millisecond,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://edge/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, r)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	// int(2.5s.Seconds()) == 2
	if got := strings.TrimSpace(last.Header().Get("Retry-After")); got != "2" {
		t.Fatalf("expected Retry-After=2, got %q", got)
	}
}

func TestAdmissionMiddleware_AllowedResponseIsExactlyTheUnits(t *testing.T) {
	l := newTestListener(t, func(context.Context, *http.Request, domain.KVStore, domain.Cache) (*domain.Response, error) {
		return &domain.Response{Status: http.StatusOK, Body: []byte("hi")}, nil
	})
	h := AdmissionMiddleware(AdmissionOptions{
		Store:               infra.NewLimiterStore(10, 20),
		AddRateLimitHeaders: true,
	})(l)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || string(body) != "hi" {
		t.Fatalf("expected 200 hi, got %d %q", resp.StatusCode, body)
	}
	for k := range resp.Header {
		if strings.HasPrefix(strings.ToLower(k), "x-ratelimit") {
			t.Fatalf("expected no rate limit headers on allowed response, got %s=%v", k, resp.Header[k])
		}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		t.Fatalf("expected no Content-Type, got %q", ct)
	}
}
