package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "continuous"

[matching]
min_confidence = 0.85

[scan]
interval = "2m"
kalshi_limit = 50

[notify]
events = ["arb_detected"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "continuous" {
		t.Errorf("mode = %q, want continuous", cfg.Mode)
	}
	if cfg.Matching.MinConfidence != 0.85 {
		t.Errorf("min_confidence = %v, want 0.85", cfg.Matching.MinConfidence)
	}
	if cfg.Scan.Interval.Duration != 2*time.Minute {
		t.Errorf("interval = %v, want 2m", cfg.Scan.Interval.Duration)
	}
	if cfg.Scan.KalshiLimit != 50 {
		t.Errorf("kalshi_limit = %d, want 50", cfg.Scan.KalshiLimit)
	}
	// Untouched fields keep their defaults.
	if cfg.Scan.PolymarketLimit != 100 {
		t.Errorf("polymarket_limit = %d, want default 100", cfg.Scan.PolymarketLimit)
	}
	if cfg.Arbitrage.MinProfitPct != 2.0 {
		t.Errorf("min_profit_pct = %v, want default 2.0", cfg.Arbitrage.MinProfitPct)
	}
	if len(cfg.Notify.Events) != 1 || cfg.Notify.Events[0] != "arb_detected" {
		t.Errorf("events = %v", cfg.Notify.Events)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CROSSARB_ARBITRAGE_MIN_PROFIT_PCT", "3.5")
	t.Setenv("CROSSARB_MATCHING_USE_SEMANTIC", "false")
	t.Setenv("CROSSARB_SCAN_INTERVAL", "15s")
	t.Setenv("CROSSARB_SERVER_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CROSSARB_SCAN_KALSHI_LIMIT", "not-a-number")
	t.Setenv("CROSSARB_KALSHI_RSA_KEY_PASSWORD", "unlock")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Arbitrage.MinProfitPct != 3.5 {
		t.Errorf("min_profit_pct = %v, want 3.5", cfg.Arbitrage.MinProfitPct)
	}
	if cfg.Matching.UseSemantic {
		t.Error("use_semantic should be overridden to false")
	}
	if cfg.Scan.Interval.Duration != 15*time.Second {
		t.Errorf("interval = %v, want 15s", cfg.Scan.Interval.Duration)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("cors origins = %q", got)
	}
	if cfg.Scan.KalshiLimit != 200 {
		t.Errorf("unparseable override should be ignored, kalshi_limit = %d", cfg.Scan.KalshiLimit)
	}
	if cfg.Kalshi.RsaKeyPassword != "unlock" {
		t.Errorf("rsa_key_password = %q", cfg.Kalshi.RsaKeyPassword)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "sideways" }, `unknown mode "sideways"`},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log_level"},
		{"confidence above one", func(c *Config) { c.Matching.MinConfidence = 1.2 }, "min_confidence must be within [0, 1]"},
		{"negative liquidity", func(c *Config) { c.Arbitrage.MinLiquidity = -1 }, "min_liquidity must be >= 0"},
		{"zero interval in continuous", func(c *Config) {
			c.Mode = "continuous"
			c.Scan.Interval = Duration(0)
		}, "interval must be > 0"},
		{"gemini without key", func(c *Config) { c.Embedding.Provider = "gemini" }, "api_key is required for the gemini provider"},
		{"half kalshi credentials", func(c *Config) { c.Kalshi.ApiKey = "k" }, "must be set together"},
		{"redis without addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, "redis: addr must not be empty"},
		{"s3 without bucket", func(c *Config) {
			c.S3.Enabled = true
			c.S3.Bucket = ""
		}, "s3: bucket must not be empty"},
		{"smtp without recipients", func(c *Config) { c.Notify.SMTPHost = "smtp.example.com" }, "email_from and email_to are required"},
		{"bad server port in full mode", func(c *Config) {
			c.Mode = "full"
			c.Server.Port = 70000
		}, "server: port must be 1-65535"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Scan.PolymarketLimit = 0
	cfg.Scan.KalshiLimit = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := strings.Count(err.Error(), "\n  - "); n != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", n, err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Embedding.ApiKey = "gem-secret"
	cfg.Redis.Password = "hunter2"
	cfg.Kalshi.RsaKeyPassword = "unlock"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/abc"
	cfg.Notify.EmailTo = []string{"ops@example.com"}

	out := RedactedConfig(&cfg)
	if out.Embedding.ApiKey != "***" || out.Redis.Password != "***" || out.Notify.DiscordWebhookURL != "***" {
		t.Fatalf("secrets not redacted: %+v", out)
	}
	if out.Kalshi.RsaKeyPassword != "***" {
		t.Errorf("key password not redacted: %q", out.Kalshi.RsaKeyPassword)
	}
	if out.Kalshi.ApiKey != "" {
		t.Errorf("empty secret should stay empty, got %q", out.Kalshi.ApiKey)
	}
	if cfg.Embedding.ApiKey != "gem-secret" {
		t.Error("original config was mutated")
	}

	out.Notify.EmailTo[0] = "changed@example.com"
	if cfg.Notify.EmailTo[0] != "ops@example.com" {
		t.Error("redacted copy shares slice storage with the original")
	}
}
