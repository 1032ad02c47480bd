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
// built-in defaults, applies ENGINED_* environment variable overrides, and
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

// applyEnvOverrides reads well-known ENGINED_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "ENGINED_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "ENGINED_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "ENGINED_DATABASE_HOST")
	setInt(&cfg.Database.Port, "ENGINED_DATABASE_PORT")
	setStr(&cfg.Database.Database, "ENGINED_DATABASE_NAME")
	setStr(&cfg.Database.User, "ENGINED_DATABASE_USER")
	setStr(&cfg.Database.Password, "ENGINED_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "ENGINED_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "ENGINED_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "ENGINED_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "ENGINED_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ENGINED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ENGINED_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ENGINED_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ENGINED_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ENGINED_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ENGINED_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ENGINED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ENGINED_S3_REGION")
	setStr(&cfg.S3.Bucket, "ENGINED_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ENGINED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ENGINED_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ENGINED_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ENGINED_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setUint64(&cfg.Engine.FeeBps, "ENGINED_ENGINE_FEE_BPS")
	setUint64(&cfg.Engine.MinOrderAmount, "ENGINED_ENGINE_MIN_ORDER_AMOUNT")
	setUint64(&cfg.Engine.MinLiquidity, "ENGINED_ENGINE_MIN_LIQUIDITY")
	setDuration(&cfg.Engine.SnapshotInterval, "ENGINED_ENGINE_SNAPSHOT_INTERVAL")

	// ── Archiver ──
	setBool(&cfg.Archiver.Enabled, "ENGINED_ARCHIVER_ENABLED")
	setDuration(&cfg.Archiver.Interval, "ENGINED_ARCHIVER_INTERVAL")
	setInt(&cfg.Archiver.RetentionDays, "ENGINED_ARCHIVER_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ENGINED_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ENGINED_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ENGINED_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ENGINED_SERVER_API_KEY")
	setInt(&cfg.Server.RatePerMinute, "ENGINED_SERVER_RATE_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ENGINED_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ENGINED_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ENGINED_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ENGINED_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ENGINED_MODE")
	setStr(&cfg.LogLevel, "ENGINED_LOG_LEVEL")
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
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
