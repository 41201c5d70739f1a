package config

import (
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":           "redis://localhost:6379/0",
		"CART_API_BASE_URL":   "http://cart.local",
		"COUPON_API_BASE_URL": "http://coupon.local",
		"WALLET_API_BASE_URL": "http://wallet.local",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.CouponTopN != 3 {
		t.Fatalf("expected default top N 3, got %d", cfg.CouponTopN)
	}
	if cfg.SearchDebounce != 300*time.Millisecond {
		t.Fatalf("expected 300ms debounce, got %s", cfg.SearchDebounce)
	}
	if cfg.WalletPollInterval != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %s", cfg.WalletPollInterval)
	}
	if cfg.WalletPollWindow != 30*time.Second {
		t.Fatalf("expected 30s poll window, got %s", cfg.WalletPollWindow)
	}
	if cfg.CurrencyCode != "IDR" {
		t.Fatalf("expected default currency IDR, got %s", cfg.CurrencyCode)
	}
}

func TestLoadRequiresRedisURL(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	if _, err := LoadForTests(env); err == nil {
		t.Fatal("expected error when REDIS_URL is missing")
	}
}

func TestLoadRequiresBackendURLs(t *testing.T) {
	for _, key := range []string{"CART_API_BASE_URL", "COUPON_API_BASE_URL", "WALLET_API_BASE_URL"} {
		env := baseEnv()
		env[key] = ""
		if _, err := LoadForTests(env); err == nil {
			t.Fatalf("expected error when %s is missing", key)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["COUPON_TOP_N"] = "5"
	env["BACKEND_TIMEOUT"] = "2s"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example"
	cfg, err := LoadForTests(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CouponTopN != 5 {
		t.Fatalf("expected top N 5, got %d", cfg.CouponTopN)
	}
	if cfg.BackendTimeout != 2*time.Second {
		t.Fatalf("expected 2s timeout, got %s", cfg.BackendTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestHTTPAddr(t *testing.T) {
	cfg := &Config{Port: "9000"}
	if got := cfg.HTTPAddr(); got != ":9000" {
		t.Fatalf("expected :9000, got %s", got)
	}
	cfg.Port = ":7000"
	if got := cfg.HTTPAddr(); got != ":7000" {
		t.Fatalf("expected :7000, got %s", got)
	}
}
