package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "0123456789abcdef0123456789abcdef"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("QR_SIGNING_SECRET", testSigningSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	for _, key := range []string{"ENV", "PORT", "QR_STORE_DRIVER", "QR_CACHE_TTL", "QR_CLEANUP_INTERVAL", "LOG_FORMAT", "REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, StoreDriverPostgres, cfg.QR.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.QR.CacheTTL)
	assert.Equal(t, time.Hour, cfg.QR.CleanupInterval)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("QR_STORE_DRIVER", "SQLite")
	t.Setenv("QR_SQLITE_PATH", "/tmp/tokens.db")
	t.Setenv("QR_CACHE_TTL", "0s")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("DB_MAX_OPEN_CONNS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, StoreDriverSQLite, cfg.QR.StoreDriver)
	assert.Equal(t, "/tmp/tokens.db", cfg.QR.SQLitePath)
	assert.Zero(t, cfg.QR.CacheTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5, cfg.Database.MaxOpenConns)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}, wantErr: "JWT_SECRET"},
		{name: "short signing secret", env: map[string]string{"QR_SIGNING_SECRET": "short"}, wantErr: "QR_SIGNING_SECRET"},
		{name: "unknown store driver", env: map[string]string{"QR_STORE_DRIVER": "mongo"}, wantErr: "QR_STORE_DRIVER"},
		{name: "negative cache ttl", env: map[string]string{"QR_CACHE_TTL": "-1s"}, wantErr: "QR_CACHE_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-a-number")
	t.Setenv("CFG_TEST_DURATION", "90s")
	t.Setenv("CFG_TEST_BOOL", "yes")
	t.Setenv("CFG_TEST_EMPTY", "")

	assert.Equal(t, 7, GetIntEnv("CFG_TEST_INT", 7))
	assert.Equal(t, 90*time.Second, GetDurationEnv("CFG_TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, GetDurationEnv("CFG_TEST_UNSET", time.Minute))
	assert.True(t, GetBoolEnv("CFG_TEST_BOOL", true), "unparseable bools fall back to the default")
	assert.Equal(t, "fallback", GetEnv("CFG_TEST_EMPTY", "fallback"))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", Name: "csy", SSLMode: "require"}
	assert.Equal(t, "host=db user=u password=p dbname=csy port=5433 sslmode=require", c.DSN())
}
