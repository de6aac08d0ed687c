// Package config defines the top-level configuration for the cross-platform
// arbitrage scanner and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Matching   MatchingConfig   `toml:"matching"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Scan       ScanConfig       `toml:"scan"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the Gamma API endpoint.
type PolymarketConfig struct {
	GammaHost string   `toml:"gamma_host"`
	Timeout   duration `toml:"timeout"`
}

// KalshiConfig holds Kalshi exchange API credentials. Market data is public;
// the key pair is only used when both fields are set.
type KalshiConfig struct {
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	// RsaKeyPassword unlocks a key file written by `crossarb -seal-key`.
	RsaKeyPassword string   `toml:"rsa_key_password"`
	BaseURL        string   `toml:"base_url"`
	Timeout        duration `toml:"timeout"`
}

// MatchingConfig controls how questions are paired across platforms.
type MatchingConfig struct {
	MinConfidence float64 `toml:"min_confidence"`
	UseSemantic   bool    `toml:"use_semantic"`
	Workers       int     `toml:"workers"`
}

// ArbitrageConfig holds the opportunity acceptance thresholds.
type ArbitrageConfig struct {
	MinProfitPct float64 `toml:"min_profit_pct"`
	MinLiquidity float64 `toml:"min_liquidity"`
}

// ScanConfig controls how often and how widely the venues are polled.
type ScanConfig struct {
	Interval        duration `toml:"interval"`
	PolymarketLimit int      `toml:"polymarket_limit"`
	KalshiLimit     int      `toml:"kalshi_limit"`
	KalshiStatus    string   `toml:"kalshi_status"`
	// CacheTTL bounds how long a fetched market list is reused.
	CacheTTL duration `toml:"cache_ttl"`
	// FallbackMaxAge bounds how stale catalog rows may be when a live fetch
	// fails.
	FallbackMaxAge duration `toml:"fallback_max_age"`
}

// EmbeddingConfig selects the semantic embedding provider.
type EmbeddingConfig struct {
	Provider  string   `toml:"provider"`
	ApiKey    string   `toml:"api_key"`
	Model     string   `toml:"model"`
	BatchSize int      `toml:"batch_size"`
	CacheTTL  duration `toml:"cache_ttl"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Duration wraps d for assignment from flags and tests.
func Duration(d time.Duration) duration {
	return duration{d}
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	SMTPHost          string   `toml:"smtp_host"`
	SMTPPort          int      `toml:"smtp_port"`
	SMTPUser          string   `toml:"smtp_user"`
	SMTPPassword      string   `toml:"smtp_password"`
	EmailFrom         string   `toml:"email_from"`
	EmailTo           []string `toml:"email_to"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			Timeout:   duration{30 * time.Second},
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			Timeout: duration{30 * time.Second},
		},
		Matching: MatchingConfig{
			MinConfidence: 0.8,
			UseSemantic:   true,
			Workers:       4,
		},
		Arbitrage: ArbitrageConfig{
			MinProfitPct: 2.0,
			MinLiquidity: 100,
		},
		Scan: ScanConfig{
			Interval:        duration{60 * time.Second},
			PolymarketLimit: 100,
			KalshiLimit:     200,
			KalshiStatus:    "open",
			CacheTTL:        duration{10 * time.Second},
			FallbackMaxAge:  duration{24 * time.Hour},
		},
		Embedding: EmbeddingConfig{
			Provider:  "none",
			Model:     "text-embedding-004",
			BatchSize: 100,
			CacheTTL:  duration{24 * time.Hour},
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossarb-snapshots",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
			Events:   []string{"arb_detected", "scan_failed"},
		},
		Mode:     "once",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"once":       true,
	"continuous": true,
	"full":       true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validProviders = map[string]bool{
	"gemini": true,
	"none":   true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: once, continuous, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venues
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if (c.Kalshi.ApiKey == "") != (c.Kalshi.RsaPrivateKeyPath == "") {
		errs = append(errs, "kalshi: api_key and rsa_private_key_path must be set together")
	}

	// Matching
	if c.Matching.MinConfidence < 0 || c.Matching.MinConfidence > 1 || math.IsNaN(c.Matching.MinConfidence) {
		errs = append(errs, fmt.Sprintf("matching: min_confidence must be within [0, 1], got %v", c.Matching.MinConfidence))
	}
	if c.Matching.Workers < 0 {
		errs = append(errs, "matching: workers must be >= 0")
	}

	// Arbitrage
	if math.IsNaN(c.Arbitrage.MinProfitPct) || math.IsInf(c.Arbitrage.MinProfitPct, 0) {
		errs = append(errs, "arbitrage: min_profit_pct must be a finite number")
	}
	if c.Arbitrage.MinLiquidity < 0 || math.IsNaN(c.Arbitrage.MinLiquidity) {
		errs = append(errs, "arbitrage: min_liquidity must be >= 0")
	}

	// Scan
	if mode != "once" && c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0 for mode "+c.Mode)
	}
	if c.Scan.PolymarketLimit < 1 {
		errs = append(errs, "scan: polymarket_limit must be >= 1")
	}
	if c.Scan.KalshiLimit < 1 {
		errs = append(errs, "scan: kalshi_limit must be >= 1")
	}
	if c.Scan.CacheTTL.Duration < 0 {
		errs = append(errs, "scan: cache_ttl must be >= 0")
	}

	// Embedding
	provider := strings.ToLower(c.Embedding.Provider)
	if !validProviders[provider] {
		errs = append(errs, fmt.Sprintf("embedding: unknown provider %q (valid: gemini, none)", c.Embedding.Provider))
	}
	if provider == "gemini" && c.Matching.UseSemantic {
		if c.Embedding.ApiKey == "" {
			errs = append(errs, "embedding: api_key is required for the gemini provider")
		}
		if c.Embedding.Model == "" {
			errs = append(errs, "embedding: model must not be empty")
		}
	}
	if c.Embedding.BatchSize < 1 {
		errs = append(errs, "embedding: batch_size must be >= 1")
	}

	// Supabase
	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 || c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must be within [0, pool_max_conns]")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if mode == "full" && c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if c.Notify.SMTPHost != "" {
		if c.Notify.EmailFrom == "" || len(c.Notify.EmailTo) == 0 {
			errs = append(errs, "notify: email_from and email_to are required when smtp_host is set")
		}
		if c.Notify.SMTPPort <= 0 || c.Notify.SMTPPort > 65535 {
			errs = append(errs, fmt.Sprintf("notify: smtp_port must be 1-65535, got %d", c.Notify.SMTPPort))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
