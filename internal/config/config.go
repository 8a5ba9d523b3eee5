// Package config loads layered configuration for the gauge lifecycle core:
// defaults, an optional YAML file, then environment variables.
package config

import (
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig controls the Postgres connection pool.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	QueryTimeoutSec int    `yaml:"query_timeout_sec" env:"DATABASE_QUERY_TIMEOUT_SEC"`
	AcquireTimeoutSec int  `yaml:"acquire_timeout_sec" env:"DATABASE_ACQUIRE_TIMEOUT_SEC"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// AuditConfig controls the audit log's retention and archival behavior.
type AuditConfig struct {
	RetentionDays      int    `yaml:"retention_days" env:"AUDIT_RETENTION_DAYS"`
	ArchiveCron        string `yaml:"archive_cron" env:"AUDIT_ARCHIVE_CRON"`
	ArchiveBatchSize   int    `yaml:"archive_batch_size" env:"AUDIT_ARCHIVE_BATCH_SIZE"`
}

// RedisConfig controls the gauge-store read-through cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	TTLSec   int    `yaml:"ttl_sec" env:"REDIS_TTL_SEC"`
}

// Config is the top-level configuration structure for the core.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Audit    AuditConfig    `yaml:"audit"`
	Redis    RedisConfig    `yaml:"redis"`
}

// Defaults returns a Config populated with sensible defaults.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxOpenConns:      20,
			MaxIdleConns:      5,
			QueryTimeoutSec:   15,
			AcquireTimeoutSec: 30,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Audit: AuditConfig{
			RetentionDays:    730,
			ArchiveCron:      "0 3 * * *",
			ArchiveBatchSize: 500,
		},
		Redis: RedisConfig{Addr: "localhost:6379", TTLSec: 300},
	}
}

// Load reads an optional .env file, an optional YAML file at yamlPath, then
// overlays environment variables (env wins).
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in
		// the environment; treat that as "no overrides" so local runs work
		// without exporting every variable.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, err
		}
	}

	return cfg, nil
}
