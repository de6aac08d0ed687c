package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. An empty path skips the file and starts from the
// defaults. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Venues ──
	setStr(&cfg.Polymarket.GammaHost, "CROSSARB_POLYMARKET_GAMMA_HOST")
	setDuration(&cfg.Polymarket.Timeout, "CROSSARB_POLYMARKET_TIMEOUT")
	setStr(&cfg.Kalshi.ApiKey, "CROSSARB_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "CROSSARB_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.RsaKeyPassword, "CROSSARB_KALSHI_RSA_KEY_PASSWORD")
	setStr(&cfg.Kalshi.BaseURL, "CROSSARB_KALSHI_BASE_URL")
	setDuration(&cfg.Kalshi.Timeout, "CROSSARB_KALSHI_TIMEOUT")

	// ── Matching ──
	setFloat64(&cfg.Matching.MinConfidence, "CROSSARB_MATCHING_MIN_CONFIDENCE")
	setBool(&cfg.Matching.UseSemantic, "CROSSARB_MATCHING_USE_SEMANTIC")
	setInt(&cfg.Matching.Workers, "CROSSARB_MATCHING_WORKERS")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.MinProfitPct, "CROSSARB_ARBITRAGE_MIN_PROFIT_PCT")
	setFloat64(&cfg.Arbitrage.MinLiquidity, "CROSSARB_ARBITRAGE_MIN_LIQUIDITY")

	// ── Scan ──
	setDuration(&cfg.Scan.Interval, "CROSSARB_SCAN_INTERVAL")
	setInt(&cfg.Scan.PolymarketLimit, "CROSSARB_SCAN_POLYMARKET_LIMIT")
	setInt(&cfg.Scan.KalshiLimit, "CROSSARB_SCAN_KALSHI_LIMIT")
	setStr(&cfg.Scan.KalshiStatus, "CROSSARB_SCAN_KALSHI_STATUS")
	setDuration(&cfg.Scan.CacheTTL, "CROSSARB_SCAN_CACHE_TTL")
	setDuration(&cfg.Scan.FallbackMaxAge, "CROSSARB_SCAN_FALLBACK_MAX_AGE")

	// ── Embedding ──
	setStr(&cfg.Embedding.Provider, "CROSSARB_EMBEDDING_PROVIDER")
	setStr(&cfg.Embedding.ApiKey, "CROSSARB_EMBEDDING_API_KEY")
	setStr(&cfg.Embedding.ApiKey, "GEMINI_API_KEY") // compatibility alias
	setStr(&cfg.Embedding.Model, "CROSSARB_EMBEDDING_MODEL")
	setInt(&cfg.Embedding.BatchSize, "CROSSARB_EMBEDDING_BATCH_SIZE")
	setDuration(&cfg.Embedding.CacheTTL, "CROSSARB_EMBEDDING_CACHE_TTL")

	// ── Supabase ──
	setBool(&cfg.Supabase.Enabled, "CROSSARB_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "CROSSARB_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "CROSSARB_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "CROSSARB_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "CROSSARB_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "CROSSARB_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "CROSSARB_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "CROSSARB_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "CROSSARB_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "CROSSARB_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "CROSSARB_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "CROSSARB_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CROSSARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CROSSARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CROSSARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROSSARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CROSSARB_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CROSSARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CROSSARB_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "CROSSARB_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "CROSSARB_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROSSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL") // compatibility alias
	setStr(&cfg.Notify.SMTPHost, "CROSSARB_NOTIFY_SMTP_HOST")
	setInt(&cfg.Notify.SMTPPort, "CROSSARB_NOTIFY_SMTP_PORT")
	setStr(&cfg.Notify.SMTPUser, "CROSSARB_NOTIFY_SMTP_USER")
	setStr(&cfg.Notify.SMTPPassword, "CROSSARB_NOTIFY_SMTP_PASSWORD")
	setStr(&cfg.Notify.EmailFrom, "CROSSARB_NOTIFY_EMAIL_FROM")
	setStringSlice(&cfg.Notify.EmailTo, "CROSSARB_NOTIFY_EMAIL_TO")
	setStringSlice(&cfg.Notify.Events, "CROSSARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSARB_MODE")
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
