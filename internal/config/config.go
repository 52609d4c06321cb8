package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Env                   string        `mapstructure:"ENV"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	AuditLogFile          string        `mapstructure:"AUDIT_LOG_FILE"`
	StoreBackend          string        `mapstructure:"STORE_BACKEND"`
	GoogleCredentialsFile string        `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	SpreadsheetID         string        `mapstructure:"SPREADSHEET_ID"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	MaxLoginAttempts      int           `mapstructure:"MAX_LOGIN_ATTEMPTS"`
	StoreTimeout          time.Duration `mapstructure:"STORE_TIMEOUT"`
	SeedFile              string        `mapstructure:"SEED_FILE"`
}

var keys = []string{
	"ENV", "LOG_LEVEL", "AUDIT_LOG_FILE", "STORE_BACKEND", "GOOGLE_CREDENTIALS_FILE",
	"SPREADSHEET_ID", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"MAX_LOGIN_ATTEMPTS", "STORE_TIMEOUT", "SEED_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUDIT_LOG_FILE", "medcab-audit.log")
	v.SetDefault("STORE_BACKEND", BackendSheets)
	v.SetDefault("GOOGLE_CREDENTIALS_FILE", "creds.json")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("MAX_LOGIN_ATTEMPTS", 3)
	v.SetDefault("STORE_TIMEOUT", "15s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	return cfg, nil
}

// lockHeldCalls bounds the store calls one stock change makes while holding
// its lock: up to three attempts of three calls each.
const lockHeldCalls = 9

const (
	minLockTTL       = 10 * time.Second
	unboundedLockTTL = 2 * time.Minute
	lockTTLMargin    = 5 * time.Second
)

// LockTTL is how long a Redis stock lock lives before it expires on its own.
// It outlasts the longest stock change STORE_TIMEOUT allows.
func (c *Config) LockTTL() time.Duration {
	if c.StoreTimeout <= 0 {
		return unboundedLockTTL
	}
	ttl := lockHeldCalls*c.StoreTimeout + lockTTLMargin
	if ttl < minLockTTL {
		return minLockTTL
	}
	return ttl
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the chosen record store backend has what it needs to
// connect.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("SPREADSHEET_ID is required when STORE_BACKEND is %q", BackendSheets)
		}
		if c.GoogleCredentialsFile == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS_FILE is required when STORE_BACKEND is %q", BackendSheets)
		}
		if _, err := os.Stat(c.GoogleCredentialsFile); err != nil {
			return fmt.Errorf("credentials file %s: %w", c.GoogleCredentialsFile, err)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
		if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) and DB_MAX_CONNS (%d) are out of range", c.DBMinConns, c.DBMaxConns)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q, %q, or %q, got %q",
			BackendSheets, BackendPostgres, BackendMemory, c.StoreBackend)
	}

	if c.MaxLoginAttempts < 1 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1, got %d", c.MaxLoginAttempts)
	}
	if c.StoreTimeout < 0 {
		return fmt.Errorf("STORE_TIMEOUT must not be negative, got %s", c.StoreTimeout)
	}
	return nil
}
