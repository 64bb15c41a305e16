package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	listenAddr      string
	metricsAddr     string
	dispatchTimeout time.Duration
	dispatchMaxBody int64

	unit            string
	scriptPath      string
	scriptPool      int
	upstreamTimeout time.Duration
	upstreamMaxB    int64

	kvBackend   string
	kvPrefix    string
	kvSeedFile  string
	kvJanitor   time.Duration
	cacheL1     int
	cacheL2     bool
	cachePrefix string

	redisAddr     string
	redisPassword string
	redisDB       int

	rateEnabled        bool
	rateRPS            float64
	rateBurst          int
	rateKeyHeader      string
	trustXFF           bool
	retryAfter         time.Duration
	addHeaders         bool
	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsEnabled bool
	statsPrefix  string
	statsTTL     time.Duration
	statsBucket  string

	logLevel  string
	logFormat string
}

// needsRedis indica se algum componente configurado usa o Redis.
func (c config) needsRedis() bool {
	return c.kvBackend == "redis" || c.cacheL2 || c.statsEnabled
}

// loadEnvFile carrega um .env opcional. Variáveis já definidas no ambiente
// têm precedência.
func loadEnvFile() error {
	path := getenvDefault("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.metricsAddr = os.Getenv("METRICS_ADDR")
	cfg.dispatchTimeout = getenvDurationDefault("DISPATCH_TIMEOUT", 30*time.Second)
	cfg.dispatchMaxBody = int64(getenvIntDefault("DISPATCH_MAX_BODY_BYTES", 10<<20))

	cfg.unit = strings.ToLower(getenvDefault("UNIT", "redirect"))
	cfg.scriptPath = os.Getenv("SCRIPT_PATH")
	cfg.scriptPool = getenvIntDefault("SCRIPT_POOL", 64)
	cfg.upstreamTimeout = getenvDurationDefault("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.upstreamMaxB = int64(getenvIntDefault("UPSTREAM_MAX_BYTES", 10<<20))

	cfg.kvBackend = strings.ToLower(getenvDefault("KV_BACKEND", "memory"))
	cfg.kvPrefix = getenvDefault("KV_PREFIX", "edge:kv")
	cfg.kvSeedFile = os.Getenv("KV_SEED_FILE")
	cfg.kvJanitor = getenvDurationDefault("KV_JANITOR_EVERY", time.Minute)
	cfg.cacheL1 = getenvIntDefault("CACHE_L1_ENTRIES", 4096)
	cfg.cacheL2 = getenvBoolDefault("CACHE_L2_ENABLED", false)
	cfg.cachePrefix = getenvDefault("CACHE_PREFIX", "edge:cache")

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", false)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 10)
	// Com RPS abaixo de 1 o burst padrão deixaria passar uma rajada grande
	// antes do limite aparecer.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 20
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 0)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "edge:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")

	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.logFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))

	switch cfg.unit {
	case "redirect":
	case "script":
		if strings.TrimSpace(cfg.scriptPath) == "" {
			return config{}, errors.New("SCRIPT_PATH is required when UNIT=script")
		}
	default:
		return config{}, fmt.Errorf("UNIT must be redirect or script, got %q", cfg.unit)
	}
	if cfg.kvBackend != "memory" && cfg.kvBackend != "redis" {
		return config{}, fmt.Errorf("KV_BACKEND must be memory or redis, got %q", cfg.kvBackend)
	}
	if cfg.needsRedis() && strings.TrimSpace(cfg.redisAddr) == "" {
		return config{}, errors.New("REDIS_ADDR is required when KV_BACKEND=redis, CACHE_L2_ENABLED or STATS_ENABLED")
	}
	if cfg.logFormat != "text" && cfg.logFormat != "json" {
		return config{}, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.logFormat)
	}
	if cfg.dispatchTimeout < 0 {
		return config{}, errors.New("DISPATCH_TIMEOUT must be >= 0")
	}
	if cfg.dispatchMaxBody <= 0 {
		return config{}, errors.New("DISPATCH_MAX_BODY_BYTES must be > 0")
	}
	if cfg.cacheL1 <= 0 {
		return config{}, errors.New("CACHE_L1_ENTRIES must be > 0")
	}
	if cfg.scriptPool <= 0 {
		return config{}, errors.New("SCRIPT_POOL must be > 0")
	}
	if cfg.upstreamMaxB <= 0 {
		return config{}, errors.New("UPSTREAM_MAX_BYTES must be > 0")
	}
	if cfg.rateEnabled {
		if cfg.rateRPS <= 0 {
			return config{}, errors.New("RATE_RPS must be > 0")
		}
		if cfg.rateBurst <= 0 {
			return config{}, errors.New("RATE_BURST must be > 0")
		}
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	i, ok := getenvInt(k)
	if !ok {
		return def
	}
	return i
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
