// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// HTTPConfig defines the HTTP listener settings.
type HTTPConfig struct {
	Addr          string `yaml:"addr"`
	RatePerMinute int    `yaml:"rate_per_minute"`
}

// DatabaseConfig defines the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	// ConfigFile is where runtime DSN updates from /db/config are persisted.
	ConfigFile string `yaml:"config_file"`
}

// AuthConfig defines bearer-token auth. Auth is enforced only when a
// secret is configured.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// Load builds configuration from defaults, the YAML file named by
// OEE_CONFIG (when set), then environment variables.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:          ":8080",
			RatePerMinute: 60,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 1,
			ConfigFile:   "db_config.json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path := os.Getenv("OEE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.HTTP.Addr = getenvDefault("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.RatePerMinute = getenvIntDefault("RATE_LIMIT_PER_MINUTE", cfg.HTTP.RatePerMinute)
	cfg.Database.URL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.Database.URL))
	cfg.Database.MaxOpenConns = getenvIntDefault("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getenvIntDefault("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConfigFile = getenvDefault("DB_CONFIG_FILE", cfg.Database.ConfigFile)
	cfg.Auth.JWTSecret = getenvDefault("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)

	if cfg.HTTP.RatePerMinute <= 0 {
		return cfg, errors.New("config: rate_per_minute must be positive")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		return cfg, errors.New("config: max_open_conns must be positive")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
