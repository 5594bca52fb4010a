package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Storage StorageConfig `mapstructure:"storage"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DataConfig defines where the application keeps its files
type DataConfig struct {
	Directory    string `mapstructure:"directory"`
	FileName     string `mapstructure:"file_name"`
	SettingsFile string `mapstructure:"settings_file"`
	LockFile     string `mapstructure:"lock_file"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type             string      `mapstructure:"type"`
	ProjectCacheSize int         `mapstructure:"project_cache_size"`
	Redis            RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines the Redis connection used by the redis backend
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// BackupConfig defines backup retention and scheduling
type BackupConfig struct {
	Retention     int    `mapstructure:"retention"`
	Schedule      string `mapstructure:"schedule"`
	OnChange      bool   `mapstructure:"on_change"`
	SkipUnchanged bool   `mapstructure:"skip_unchanged"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the metrics endpoint served by "run"
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// DataFile returns the full path of the primary data file.
func (c *Config) DataFile() string {
	return filepath.Join(c.Data.Directory, c.Data.FileName)
}

// SettingsPath returns the full path of the user settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Data.Directory, c.Data.SettingsFile)
}

// LockPath returns the full path of the instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Data.Directory, c.Data.LockFile)
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BARALGA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults and environment variables
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration made of defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// KnownKeys returns the set of recognised configuration keys.
func KnownKeys() map[string]bool {
	v := viper.New()
	setDefaults(v)

	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// UnknownKeys returns the keys in the config file that are not recognised.
func UnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	known := KnownKeys()
	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

// DefaultDirectory is the per-user application directory.
func DefaultDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".baralga"
	}
	return filepath.Join(home, ".baralga")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Data defaults
	v.SetDefault("data.directory", DefaultDirectory())
	v.SetDefault("data.file_name", "baralga.db")
	v.SetDefault("data.settings_file", "baralga.properties")
	v.SetDefault("data.lock_file", "lock")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.project_cache_size", 256)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 1)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "baralga")

	// Backup defaults
	v.SetDefault("backup.retention", 3)
	v.SetDefault("backup.schedule", "@every 30m")
	v.SetDefault("backup.on_change", true)
	v.SetDefault("backup.skip_unchanged", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9464")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Data.Directory == "" {
		return fmt.Errorf("data directory is required")
	}
	if cfg.Data.FileName == "" || strings.ContainsRune(cfg.Data.FileName, filepath.Separator) {
		return fmt.Errorf("invalid data file name: %q", cfg.Data.FileName)
	}

	switch cfg.Storage.Type {
	case "":
		cfg.Storage.Type = "bolt"
	case "bolt", "redis":
	default:
		return fmt.Errorf("unknown storage type: %s (must be bolt or redis)", cfg.Storage.Type)
	}

	if cfg.Backup.Retention < 1 {
		return fmt.Errorf("backup retention must be at least 1, got %d", cfg.Backup.Retention)
	}
	if cfg.Backup.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Backup.Schedule); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", cfg.Backup.Schedule, err)
		}
	}

	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown logging format: %s", cfg.Logging.Format)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.Data.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}
