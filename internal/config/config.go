package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	LogLevel           string
	LogFormat          string
	RedisURL           string
	CORSAllowedOrigins []string

	CartAPIBaseURL    string
	CouponAPIBaseURL  string
	WalletAPIBaseURL  string
	PaymentAPIBaseURL string
	BackendTimeout    time.Duration

	CurrencyCode   string
	CouponCacheTTL time.Duration
	CouponTopN     int

	SearchDebounce     time.Duration
	WalletPollInterval time.Duration
	WalletPollWindow   time.Duration

	IdempotencyTTL  time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int

	OTLPEndpoint     string
	TraceSampleRatio float64
	MetricsBuckets   string
	PprofUser        string
	PprofPass        string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CartAPIBaseURL:    strings.TrimSpace(k.String("CART_API_BASE_URL")),
		CouponAPIBaseURL:  strings.TrimSpace(k.String("COUPON_API_BASE_URL")),
		WalletAPIBaseURL:  strings.TrimSpace(k.String("WALLET_API_BASE_URL")),
		PaymentAPIBaseURL: strings.TrimSpace(k.String("PAYMENT_API_BASE_URL")),
		BackendTimeout:    parseDuration(k.String("BACKEND_TIMEOUT"), "5s"),

		CurrencyCode:   valueOrDefault(k.String("CURRENCY_CODE"), "IDR"),
		CouponCacheTTL: parseDuration(k.String("COUPON_CACHE_TTL"), "60s"),
		CouponTopN:     parseInt(k.String("COUPON_TOP_N"), 3),

		SearchDebounce:     parseDuration(k.String("SEARCH_DEBOUNCE"), "300ms"),
		WalletPollInterval: parseDuration(k.String("WALLET_POLL_INTERVAL"), "5s"),
		WalletPollWindow:   parseDuration(k.String("WALLET_POLL_WINDOW"), "30s"),

		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 120),

		OTLPEndpoint:     strings.TrimSpace(k.String("OTLP_ENDPOINT")),
		TraceSampleRatio: parseFloat(k.String("TRACE_SAMPLE_RATIO"), 1),
		MetricsBuckets:   strings.TrimSpace(k.String("METRICS_BUCKETS_MS")),
		PprofUser:        k.String("PPROF_USER"),
		PprofPass:        k.String("PPROF_PASS"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.CartAPIBaseURL == "" {
		return nil, errors.New("CART_API_BASE_URL is required")
	}
	if cfg.CouponAPIBaseURL == "" {
		return nil, errors.New("COUPON_API_BASE_URL is required")
	}
	if cfg.WalletAPIBaseURL == "" {
		return nil, errors.New("WALLET_API_BASE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	n, err := strconv.Atoi(base)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(base, 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
