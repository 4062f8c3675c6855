package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv parses a Go duration string such as "30s" or "1h".
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port     string
	Env      string
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	QR       QRConfig
	Log      LogConfig
	CORS     string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type AuthConfig struct {
	JWTSecret string
}

type QRConfig struct {
	SigningSecret    string
	StoreDriver      string
	SQLitePath       string
	CacheTTL         time.Duration
	CleanupInterval  time.Duration
	CleanupRetention time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the full configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     GetEnv("PORT", "8080"),
		Env:      GetEnv("ENV", "development"),
		Database: LoadDatabase(),
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
			Enabled:  GetBoolEnv("REDIS_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret: GetEnv("JWT_SECRET", ""),
		},
		QR: LoadQR(),
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", ""),
		},
		CORS: GetEnv("CORS_ORIGINS", "*"),
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.Env == "production" {
			cfg.Log.Format = "json"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads the postgres settings on their own, for tools that do
// not need the full server configuration.
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:            GetEnv("DB_HOST", "localhost"),
		Port:            GetEnv("DB_PORT", "5432"),
		User:            GetEnv("DB_USER", "postgres"),
		Password:        GetEnv("DB_PASSWORD", ""),
		Name:            GetEnv("DB_NAME", "csy"),
		SSLMode:         GetEnv("DB_SSLMODE", "disable"),
		MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 50),
		ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
	}
}

// LoadQR reads the token settings on their own.
func LoadQR() QRConfig {
	return QRConfig{
		SigningSecret:    GetEnv("QR_SIGNING_SECRET", ""),
		StoreDriver:      strings.ToLower(GetEnv("QR_STORE_DRIVER", StoreDriverPostgres)),
		SQLitePath:       GetEnv("QR_SQLITE_PATH", "qr_tokens.db"),
		CacheTTL:         GetDurationEnv("QR_CACHE_TTL", 30*time.Second),
		CleanupInterval:  GetDurationEnv("QR_CLEANUP_INTERVAL", time.Hour),
		CleanupRetention: GetDurationEnv("QR_CLEANUP_RETENTION", 720*time.Hour),
	}
}

// Validate checks settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if len(c.QR.SigningSecret) < 32 {
		return fmt.Errorf("config: QR_SIGNING_SECRET must be at least 32 bytes")
	}
	switch c.QR.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown QR_STORE_DRIVER %q", c.QR.StoreDriver)
	}
	if c.QR.CacheTTL < 0 {
		return fmt.Errorf("config: QR_CACHE_TTL must not be negative")
	}
	return nil
}
