// Package config provides configuration management for mcsstheme using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort       = 8080
	defaultServerTimeout    = 30 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultMaxOpenConns     = 10
	defaultMaxIdleConns     = 5
	defaultConnMaxIdleTime  = 30 * time.Minute
	defaultThemeFileMaxSize = 100 * 1024 // 100 KiB
	defaultSnapshotCron     = "0 0 3 * * *"
	defaultSnapshotKeep     = 10
	defaultThemeID          = "m-light-sepia"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "MCSSTHEME"

// Config holds all configuration for the application.
type Config struct {
	Theme    ThemeConfig    `mapstructure:"theme"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// ThemeConfig holds theme catalogue configuration.
type ThemeConfig struct {
	// Default is the theme id used when none is given.
	Default string `mapstructure:"default"`
	// DataDir holds the themes/ directory with custom themes.
	DataDir string `mapstructure:"data_dir"`
	// MaxFileSize is the maximum size of a custom theme file.
	// Supports human-readable values like "100KB", "1MiB", or raw byte counts.
	MaxFileSize ByteSize `mapstructure:"max_file_size"`
	// ColorFormat is "preserve" or "hex".
	ColorFormat string `mapstructure:"color_format"`
	// Strict requires custom themes to declare every m.css token.
	Strict bool `mapstructure:"strict"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn" masq:"secret"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format         string `mapstructure:"format"` // json, text
	AddSource      bool   `mapstructure:"add_source"`
	TimeFormat     string `mapstructure:"time_format"`
	RequestLogging bool   `mapstructure:"request_logging"`
}

// SnapshotConfig holds resolved-theme snapshot configuration.
type SnapshotConfig struct {
	Schedule SnapshotScheduleConfig `mapstructure:"schedule"`
	// Themes lists the theme ids snapshotted by the schedule. Empty means
	// the default theme only.
	Themes []string `mapstructure:"themes"`
}

// SnapshotScheduleConfig holds scheduled snapshot configuration.
type SnapshotScheduleConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Cron      string `mapstructure:"cron"`      // 6-field cron expression
	Retention int    `mapstructure:"retention"` // snapshots kept per theme
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with MCSSTHEME_ and use underscores for nesting.
// Example: MCSSTHEME_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/mcsstheme")
		v.AddConfigPath("$HOME/.mcsstheme")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates configuration from an initialized viper
// instance. Human-readable sizes and durations are decoded via
// encoding.TextUnmarshaler.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Theme defaults
	v.SetDefault("theme.default", defaultThemeID)
	v.SetDefault("theme.data_dir", "./data")
	v.SetDefault("theme.max_file_size", defaultThemeFileMaxSize)
	v.SetDefault("theme.color_format", "preserve")
	v.SetDefault("theme.strict", false)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "mcsstheme.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.request_logging", true)

	// Snapshot defaults
	v.SetDefault("snapshot.schedule.enabled", false)
	v.SetDefault("snapshot.schedule.cron", defaultSnapshotCron) // Daily at 3 AM (6-field cron)
	v.SetDefault("snapshot.schedule.retention", defaultSnapshotKeep)
	v.SetDefault("snapshot.themes", []string{})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Theme validation
	if c.Theme.Default == "" {
		return fmt.Errorf("theme.default is required")
	}
	if c.Theme.DataDir == "" {
		return fmt.Errorf("theme.data_dir is required")
	}
	if c.Theme.MaxFileSize <= 0 {
		return fmt.Errorf("theme.max_file_size must be positive")
	}
	validColorFormats := map[string]bool{"preserve": true, "hex": true}
	if !validColorFormats[strings.ToLower(c.Theme.ColorFormat)] {
		return fmt.Errorf("theme.color_format must be one of: preserve, hex")
	}

	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	// Database validation
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns must be non-negative")
	}
	validDBLogLevels := map[string]bool{"silent": true, "error": true, "warn": true, "info": true}
	if !validDBLogLevels[c.Database.LogLevel] {
		return fmt.Errorf("database.log_level must be one of: silent, error, warn, info")
	}

	// Logging validation
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Snapshot validation
	const maxRetention = 365
	if c.Snapshot.Schedule.Retention < 1 || c.Snapshot.Schedule.Retention > maxRetention {
		return fmt.Errorf("snapshot.schedule.retention must be between 1 and %d", maxRetention)
	}
	if c.Snapshot.Schedule.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Snapshot.Schedule.Cron); err != nil {
			return fmt.Errorf("snapshot.schedule.cron is invalid: %w", err)
		}
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ThemesDir returns the directory holding custom themes.
func (c *ThemeConfig) ThemesDir() string {
	return filepath.Join(c.DataDir, "themes")
}

// SnapshotThemes returns the theme ids the snapshot schedule covers.
func (c *Config) SnapshotThemes() []string {
	if len(c.Snapshot.Themes) > 0 {
		return c.Snapshot.Themes
	}
	return []string{c.Theme.Default}
}
