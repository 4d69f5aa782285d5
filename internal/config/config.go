// Package config provides configuration management for the ingestion core.
//
// Configuration is loaded from multiple sources in this order:
// 1. Configuration file (YAML, optional)
// 2. Environment variables (OTLPCORE_-prefixed, plus a few standard names)
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	GRPC        GRPCConfig     `mapstructure:"grpc"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Database    DatabaseConfig `mapstructure:"database"`
	Dimensions  DimensionsConfig `mapstructure:"dimensions"`
	Promotion   PromotionConfig  `mapstructure:"promotion"`
	Workers     WorkersConfig  `mapstructure:"workers"`
	Health      HealthConfig   `mapstructure:"health"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// GRPCConfig contains the OTLP gRPC receiver configuration.
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig contains the observability HTTP mux configuration (/metrics, /healthz, /readyz).
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig contains PostgreSQL configuration for both connection
// pools this core maintains.
type DatabaseConfig struct {
	URL                   string `mapstructure:"url"`
	AutocommitPoolSize    int32  `mapstructure:"autocommit_pool_size"`
	TransactionalPoolSize int32  `mapstructure:"transactional_pool_size"`
	MigrationsPath        string `mapstructure:"migrations_path"`
	MigrationsTable       string `mapstructure:"migrations_table"`
}

// DimensionsConfig contains the resource/scope/metric dimension manager tunables.
type DimensionsConfig struct {
	LastSeenThreshold time.Duration `mapstructure:"last_seen_threshold"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// PromotionConfig points at the base and override promotion policy documents.
type PromotionConfig struct {
	BasePath     string `mapstructure:"base_path"`
	OverridePath string `mapstructure:"override_path"`
}

// WorkersConfig bounds the receiver's concurrent batch-processing pool.
type WorkersConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// HealthConfig controls the readiness supervisor's poll cadence.
type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Validate validates the main configuration and all sub-configurations.
func (c *Config) Validate() error {
	if err := c.GRPC.Validate(); err != nil {
		return fmt.Errorf("grpc config validation failed: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config validation failed: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	if c.Workers.PoolSize <= 0 {
		return errors.New("workers.pool_size must be positive")
	}
	if c.Promotion.BasePath == "" {
		return errors.New("promotion.base_path is required")
	}
	return nil
}

// Validate validates gRPC configuration.
func (gc *GRPCConfig) Validate() error {
	if gc.Port <= 0 || gc.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", gc.Port)
	}
	return nil
}

// Validate validates database configuration.
func (dc *DatabaseConfig) Validate() error {
	if dc.URL == "" {
		return errors.New("database.url (or DATABASE_URL) is required")
	}
	if dc.AutocommitPoolSize <= 0 {
		return errors.New("database.autocommit_pool_size must be positive")
	}
	if dc.TransactionalPoolSize <= 0 {
		return errors.New("database.transactional_pool_size must be positive")
	}
	return nil
}

// Validate validates logging configuration.
func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, lc.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of %v)", lc.Level, validLevels)
	}
	validFormats := []string{"json", "text"}
	if !contains(validFormats, lc.Format) {
		return fmt.Errorf("invalid log format: %s (must be one of %v)", lc.Format, validFormats)
	}
	return nil
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// Load loads configuration from an optional config file and environment
// variables, applying defaults grounded on the source's §9 design notes.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/otlpcore")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("OTLPCORE")

	//nolint:errcheck
	viper.BindEnv("database.url", "DATABASE_URL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")

	viper.SetDefault("grpc.port", 4343)
	viper.SetDefault("http.port", 8888)

	viper.SetDefault("database.url", "")
	viper.SetDefault("database.autocommit_pool_size", 10)
	viper.SetDefault("database.transactional_pool_size", 10)
	viper.SetDefault("database.migrations_path", "migrations")
	viper.SetDefault("database.migrations_table", "schema_migrations")

	viper.SetDefault("dimensions.last_seen_threshold", "5m")
	viper.SetDefault("dimensions.cache_ttl", "30m")

	viper.SetDefault("promotion.base_path", "config/promotion.base.yaml")
	viper.SetDefault("promotion.override_path", "config/promotion.override.yaml")

	viper.SetDefault("workers.pool_size", 16)

	viper.SetDefault("health.check_interval", "1s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
