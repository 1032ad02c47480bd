package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "server"
log_level = "debug"

[engine]
fee_bps = 50
snapshot_interval = "30s"

[server]
port = 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(50), cfg.Engine.FeeBps)
	assert.Equal(t, 30*time.Second, cfg.Engine.SnapshotInterval.Duration)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, uint64(10), cfg.Engine.MinOrderAmount)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[database]
password = "from-file"
`)

	t.Setenv("ENGINED_DATABASE_PASSWORD", "from-env")
	t.Setenv("ENGINED_SERVER_API_KEY", "sekrit")
	t.Setenv("ENGINED_ENGINE_FEE_BPS", "100")
	t.Setenv("ENGINED_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "sekrit", cfg.Server.APIKey)
	assert.Equal(t, uint64(100), cfg.Engine.FeeBps)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Engine.FeeBps = 10000
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), `unknown log_level "loud"`)
	assert.Contains(t, err.Error(), "redis: addr must not be empty")
	assert.Contains(t, err.Error(), "fee_bps must be below 10000")
	assert.Contains(t, err.Error(), "server: port must be 1-65535")
}

func TestValidateS3OnlyWhenArchiverRuns(t *testing.T) {
	cfg := Defaults()
	cfg.S3.Endpoint = ""
	cfg.S3.Bucket = ""

	// Archiver disabled in "full" mode: S3 settings are not required.
	require.NoError(t, cfg.Validate())

	cfg.Mode = "archive"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: endpoint must not be empty")
	assert.Contains(t, err.Error(), "s3: bucket must not be empty")
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-secret"
	cfg.Notify.TelegramToken = "tg-secret"

	out := RedactedConfig(&cfg)

	assert.NotContains(t, out.Database.Password, "pg-secret")
	assert.NotContains(t, out.Redis.Password, "redis-secret")
	assert.NotContains(t, out.S3.SecretKey, "s3-secret")
	assert.NotContains(t, out.Server.APIKey, "api-secret")
	assert.NotContains(t, out.Notify.TelegramToken, "tg-secret")

	// The original is untouched.
	assert.Equal(t, "pg-secret", cfg.Database.Password)
}
