package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edge-dispatch/compute/redirect"
	"edge-dispatch/compute/script"
	"edge-dispatch/edge"
	"edge-dispatch/edge/application"
	"edge-dispatch/edge/domain"
	"edge-dispatch/edge/infra"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	if err := loadEnvFile(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := configureLogger(log, cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.needsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	kv, err := buildKV(ctx, cfg, rdb)
	if err != nil {
		log.Fatalf("kv error: %v", err)
	}
	if cfg.kvSeedFile != "" {
		n, err := seedKV(ctx, kv, cfg.kvSeedFile)
		if err != nil {
			log.Fatalf("kv seed error: %v", err)
		}
		log.WithField("file", cfg.kvSeedFile).Infof("kv seeded with %d entries", n)
	}

	cache, err := buildCache(cfg, rdb)
	if err != nil {
		log.Fatalf("cache error: %v", err)
	}

	unit, err := buildUnit(cfg)
	if err != nil {
		log.Fatalf("unit error: %v", err)
	}

	metrics := infra.NewMetrics("edge")
	stats := infra.MultiStats{metrics}
	if cfg.statsEnabled {
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
		))
	}

	d := &application.Dispatcher{
		Unit:         unit,
		KV:           kv,
		Cache:        cache,
		Timeout:      cfg.dispatchTimeout,
		MaxBodyBytes: cfg.dispatchMaxBody,
		Stats:        stats,
		Observer:     metrics.Observe,
		Log:          log,
	}

	h := http.Handler(edge.NewListener(d, edge.WithLogger(log)))
	h = edge.ConcurrencyMiddleware(edge.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
		Stats:          stats,
	})(h)
	if cfg.rateEnabled {
		store := infra.NewLimiterStore(cfg.rateRPS, cfg.rateBurst)
		store.StartJanitor(ctx)
		h = edge.AdmissionMiddleware(edge.AdmissionOptions{
			Store:               store,
			Stats:               stats,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
		})(h)
	}

	srv := newServer(cfg.listenAddr, h, cfg.dispatchTimeout)
	servers := []*http.Server{srv}
	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		msrv := newServer(cfg.metricsAddr, mux, 0)
		servers = append(servers, msrv)
		go func() {
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server error")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
	}()

	log.WithFields(logrus.Fields{
		"addr":    cfg.listenAddr,
		"unit":    cfg.unit,
		"kv":      cfg.kvBackend,
		"cacheL1": cfg.cacheL1,
		"cacheL2": cfg.cacheL2,
		"timeout": cfg.dispatchTimeout,
	}).Info("edge listening")
	log.WithFields(logrus.Fields{
		"enabled":   cfg.rateEnabled,
		"rps":       cfg.rateRPS,
		"burst":     cfg.rateBurst,
		"keyHeader": cfg.rateKeyHeader,
		"trustXFF":  cfg.trustXFF,
	}).Info("admission")
	log.WithFields(logrus.Fields{
		"max":            cfg.concurrencyMax,
		"acquireTimeout": cfg.concurrencyTimeout,
		"stats":          cfg.statsEnabled,
		"metricsAddr":    cfg.metricsAddr,
	}).Info("concurrency")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func configureLogger(log *logrus.Logger, cfg config) error {
	lvl, err := logrus.ParseLevel(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(lvl)
	if cfg.logFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	return nil
}

// newServer usa WriteTimeout acima do prazo do dispatcher para que o
// fallback 500 ainda possa ser escrito.
func newServer(addr string, h http.Handler, dispatchTimeout time.Duration) *http.Server {
	write := 30 * time.Second
	if dispatchTimeout > 0 && dispatchTimeout+5*time.Second > write {
		write = dispatchTimeout + 5*time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       90 * time.Second,
	}
}

func buildKV(ctx context.Context, cfg config, rdb redis.UniversalClient) (domain.KVStore, error) {
	switch cfg.kvBackend {
	case "redis":
		return infra.NewRedisKV(rdb, infra.WithKVPrefix(cfg.kvPrefix)), nil
	case "memory":
		kv := infra.NewMemoryKV()
		kv.StartJanitor(ctx, cfg.kvJanitor)
		return kv, nil
	}
	return nil, fmt.Errorf("unknown kv backend %q", cfg.kvBackend)
}

func seedKV(ctx context.Context, kv domain.KVStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return infra.LoadSeed(ctx, kv, f)
}

func buildCache(cfg config, rdb redis.UniversalClient) (domain.Cache, error) {
	l1, err := infra.NewMemoryTier(cfg.cacheL1)
	if err != nil {
		return nil, err
	}
	var tier infra.CacheTier = l1
	if cfg.cacheL2 {
		tier = infra.NewTieredCache(l1, infra.NewRedisTier(rdb, infra.WithTierPrefix(cfg.cachePrefix)))
	}
	return infra.NewHTTPCache(tier), nil
}

func buildUnit(cfg config) (domain.Unit, error) {
	switch cfg.unit {
	case "script":
		src, err := os.ReadFile(cfg.scriptPath)
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
		u, err := script.Compile(cfg.scriptPath, string(src), script.WithPoolSize(cfg.scriptPool))
		if err != nil {
			return nil, err
		}
		return u, nil
	case "redirect":
		return redirect.New(redirect.NewHTTPFetcher(cfg.upstreamTimeout, cfg.upstreamMaxB)), nil
	}
	return nil, fmt.Errorf("unknown unit %q", cfg.unit)
}
