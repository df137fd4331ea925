// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration for the Snowflake connection, the HTTP
// dashboard, and script generation defaults.
type Config struct {
	// Snowflake connection
	SnowflakeAccount        string
	SnowflakeUser           string
	SnowflakePassword       string // fallback when no private key is configured
	SnowflakePrivateKeyPath string // PEM-encoded PKCS8 RSA key for JWT auth
	SnowflakeRole           string // session role (optional, user default when empty)
	SnowflakeWarehouse      string // session warehouse (optional)
	SnowflakeDatabase       string // session database (optional)
	SnowflakeSchema         string // session schema (optional)

	// HTTP server
	ListenAddr         string   // default ":8080"
	CORSAllowedOrigins []string // default ["*"]
	RateLimitRPS       float64  // sustained requests per second (default 50)
	RateLimitBurst     int      // burst capacity (default 100)

	// Analysis
	CacheTTL            time.Duration // metadata cache TTL (default 5m)
	ScriptWarehouse     string        // warehouse name used in generated scripts (default "COMPUTE_WH")
	UseSessionVariables bool          // render scripts with SET/IDENTIFIER($x) (default true)

	LogLevel string // log level: debug, info, warn, error (default "info")
	Env      string // "development" (default) or "production"

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasCredentials reports whether at least one Snowflake auth method is configured.
func (c *Config) HasCredentials() bool {
	return c.SnowflakePrivateKeyPath != "" || c.SnowflakePassword != ""
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		SnowflakeAccount:        os.Getenv("SNOWFLAKE_ACCOUNT"),
		SnowflakeUser:           os.Getenv("SNOWFLAKE_USER"),
		SnowflakePassword:       os.Getenv("SNOWFLAKE_PASSWORD"),
		SnowflakePrivateKeyPath: os.Getenv("SNOWFLAKE_PRIVATE_KEY_PATH"),
		SnowflakeRole:           os.Getenv("SNOWFLAKE_ROLE"),
		SnowflakeWarehouse:      os.Getenv("SNOWFLAKE_WAREHOUSE"),
		SnowflakeDatabase:       os.Getenv("SNOWFLAKE_DATABASE"),
		SnowflakeSchema:         os.Getenv("SNOWFLAKE_SCHEMA"),
		ListenAddr:              os.Getenv("LISTEN_ADDR"),
		ScriptWarehouse:         os.Getenv("SCRIPT_WAREHOUSE"),
		LogLevel:                os.Getenv("LOG_LEVEL"),
		Env:                     os.Getenv("ENV"),
		UseSessionVariables:     true,
	}

	if cfg.SnowflakeAccount == "" {
		return nil, fmt.Errorf("SNOWFLAKE_ACCOUNT environment variable not set")
	}
	if cfg.SnowflakeUser == "" {
		return nil, fmt.Errorf("SNOWFLAKE_USER environment variable not set")
	}
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("set SNOWFLAKE_PRIVATE_KEY_PATH or SNOWFLAKE_PASSWORD")
	}
	if cfg.SnowflakePrivateKeyPath != "" && cfg.SnowflakePassword != "" {
		cfg.Warnings = append(cfg.Warnings, "both key-pair and password auth configured; key-pair takes precedence")
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	if strings.EqualFold(os.Getenv("USE_SESSION_VARIABLES"), "false") {
		cfg.UseSessionVariables = false
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ScriptWarehouse == "" {
		cfg.ScriptWarehouse = "COMPUTE_WH"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 100
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.SnowflakePrivateKeyPath == "" {
			return nil, fmt.Errorf("key-pair auth is required in production (set SNOWFLAKE_PRIVATE_KEY_PATH)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}
