package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"edge-dispatch/edge"
	"edge-dispatch/edge/application"
	"edge-dispatch/edge/domain"
	"edge-dispatch/edge/infra"

	"github.com/sirupsen/logrus"
)

// Exemplo: listener embutido no seu webserver, com uma unidade Go inline e
// recursos em memória.
func main() {
	log := logrus.New()

	tier, err := infra.NewMemoryTier(infra.DefaultMemoryTierEntries)
	if err != nil {
		log.Fatalf("cache error: %v", err)
	}
	kv := infra.NewMemoryKV()
	stats := infra.NewMemoryStatsStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	kv.StartJanitor(ctx, time.Minute)

	// Conta visitas por caminho e falha de propósito em /boom.
	unit := domain.UnitFunc(func(ctx context.Context, r *http.Request, kv domain.KVStore, _ domain.Cache) (*domain.Response, error) {
		if r.URL.Path == "/boom" {
			return nil, errors.New("boom")
		}
		raw, _, err := kv.Get(ctx, r.URL.Path)
		if err != nil {
			return nil, err
		}
		n, _ := strconv.Atoi(string(raw))
		n++
		if err := kv.Put(ctx, r.URL.Path, []byte(strconv.Itoa(n)), 0); err != nil {
			return nil, err
		}
		resp := domain.NewResponse(http.StatusOK, []byte("visits: "+strconv.Itoa(n)+"\n"))
		resp.Header = http.Header{"Content-Type": {"text/plain; charset=utf-8"}}
		return resp, nil
	})

	d := &application.Dispatcher{
		Unit:    unit,
		KV:      kv,
		Cache:   infra.NewHTTPCache(tier),
		Timeout: 5 * time.Second,
		Stats:   stats,
		Log:     log,
	}

	h := http.Handler(edge.NewListener(d, edge.WithLogger(log)))
	h = edge.ConcurrencyMiddleware(edge.ConcurrencyOptions{Max: 50, Stats: stats})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}

	total := stats.Total()
	log.WithFields(logrus.Fields{
		"completed": total.Completed,
		"failed":    total.Failed,
		"timeout":   total.Timeout,
		"rejected":  total.Rejected,
	}).Info("dispatch totals")
}
