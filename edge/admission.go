package edge

import (
	"net"
	"net/http"
	"strings"
	"time"

	"edge-dispatch/edge/application"
	"edge-dispatch/edge/domain"
)

// KeyFunc extrai a chave do cliente para a admissão.
type KeyFunc func(r *http.Request) string

type AdmissionOptions struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// DefaultKeyFunc: header configurado, depois primeiro IP do X-Forwarded-For
// (se confiável), depois o host de RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}
		if trustXFF {
			first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		remote := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
			return host
		}
		if remote != "" {
			return remote
		}
		return "unknown"
	}
}

// AdmissionMiddleware aplica rate limit por cliente antes do Listener.
// Requisição barrada não chega à unidade e conta como OutcomeRejected.
func AdmissionMiddleware(opts AdmissionOptions) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	svc := application.AdmissionService{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec := svc.Decide(domain.Key(key))
			if !dec.Allowed {
				recordRejected(r, opts.Stats, opts.RejectStatus)
				// só na rejeição: a resposta aceita é a da unidade, sem acréscimos.
				if opts.AddRateLimitHeaders {
					w.Header().Set("X-RateLimit-Key", key)
					if ri, ok := opts.Store.(rateInfo); ok {
						w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
						w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
					}
				}
				w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func recordRejected(r *http.Request, stats domain.StatsStore, status int) {
	if stats == nil {
		return
	}
	_ = stats.Record(r.Context(), domain.DispatchEvent{
		Outcome: domain.OutcomeRejected,
		Status:  status,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      time.Now(),
	})
}
