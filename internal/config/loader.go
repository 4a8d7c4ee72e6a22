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
// built-in defaults, applies PHYGD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PHYGD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "PHYGD_CHAIN_RPC_URL")
	setInt(&cfg.Chain.ChainID, "PHYGD_CHAIN_ID")
	setStr(&cfg.Chain.TrackerContract, "PHYGD_CHAIN_TRACKER_CONTRACT")
	setDuration(&cfg.Chain.CallTimeout, "PHYGD_CHAIN_CALL_TIMEOUT")

	// ── Price feed ──
	setStr(&cfg.PriceFeed.URL, "PHYGD_PRICE_FEED_URL")
	setDuration(&cfg.PriceFeed.RefreshInterval, "PHYGD_PRICE_FEED_REFRESH_INTERVAL")
	setStr(&cfg.PriceFeed.FallbackRate, "PHYGD_PRICE_FEED_FALLBACK_RATE")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PHYGD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PHYGD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PHYGD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PHYGD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PHYGD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PHYGD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PHYGD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PHYGD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PHYGD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PHYGD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PHYGD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PHYGD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PHYGD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PHYGD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PHYGD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PHYGD_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.SnapshotTTL, "PHYGD_REDIS_SNAPSHOT_TTL")
	setInt(&cfg.Redis.StreamMaxLen, "PHYGD_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PHYGD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PHYGD_S3_REGION")
	setStr(&cfg.S3.Bucket, "PHYGD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PHYGD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PHYGD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PHYGD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PHYGD_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setDuration(&cfg.Engine.CountdownInterval, "PHYGD_ENGINE_COUNTDOWN_INTERVAL")
	setDuration(&cfg.Engine.RedeemLockTTL, "PHYGD_ENGINE_REDEEM_LOCK_TTL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "PHYGD_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "PHYGD_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "PHYGD_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PHYGD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PHYGD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PHYGD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PHYGD_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PHYGD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PHYGD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PHYGD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PHYGD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PHYGD_MODE")
	setStr(&cfg.LogLevel, "PHYGD_LOG_LEVEL")
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
