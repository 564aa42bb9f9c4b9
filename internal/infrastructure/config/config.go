package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	HTTPPort int    `mapstructure:"http_port"`
}

// DatabaseConfig holds database configuration. Driver is either
// "sqlite3" (default, single local profile) or "postgres".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig holds the tunable knobs of the learning engine. The
// defaults are the calibrated values; overriding them changes scheduling
// and scoring behaviour, not correctness.
type EngineConfig struct {
	DesiredRetention    float64 `mapstructure:"desired_retention"`
	MaximumIntervalDays float64 `mapstructure:"maximum_interval_days"`

	CriticalThreshold float64 `mapstructure:"critical_threshold"`
	WeakThreshold     float64 `mapstructure:"weak_threshold"`
	StrongThreshold   float64 `mapstructure:"strong_threshold"`

	PlanMaxItems        int32   `mapstructure:"plan_max_items"`
	PlanMaxMinutes      int32   `mapstructure:"plan_max_minutes"`
	PlanReviewShare     float64 `mapstructure:"plan_review_share"`
	CoverageMinAttempts int32   `mapstructure:"coverage_min_attempts"`

	RecencyHalfLifeDays float64 `mapstructure:"recency_half_life_days"`
	TrendWindow         int     `mapstructure:"trend_window"`
	TrendThreshold      float64 `mapstructure:"trend_threshold"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)

	// Database defaults
	viper.SetDefault("database.driver", "sqlite3")
	viper.SetDefault("database.dsn", "file:gapmap.db?_busy_timeout=5000")

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// Engine defaults
	viper.SetDefault("engine.desired_retention", 0.9)
	viper.SetDefault("engine.maximum_interval_days", 36500)
	viper.SetDefault("engine.critical_threshold", 50)
	viper.SetDefault("engine.weak_threshold", 70)
	viper.SetDefault("engine.strong_threshold", 80)
	viper.SetDefault("engine.plan_max_items", 15)
	viper.SetDefault("engine.plan_max_minutes", 30)
	viper.SetDefault("engine.plan_review_share", 0.7)
	viper.SetDefault("engine.coverage_min_attempts", 2)
	viper.SetDefault("engine.recency_half_life_days", 14)
	viper.SetDefault("engine.trend_window", 5)
	viper.SetDefault("engine.trend_threshold", 3)
}

// DatabaseDriver returns the configured sql driver name.
func (c *Config) DatabaseDriver() (string, error) {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
		return c.Database.Driver, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
}

// DatabaseURL returns the connection string for the configured driver.
func (c *Config) DatabaseURL() (string, error) {
	if c.Database.DSN == "" {
		return "", fmt.Errorf("database dsn is required")
	}
	return c.Database.DSN, nil
}
