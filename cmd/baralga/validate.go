package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/baralga/internal/backup"
	"github.com/goodtune/baralga/internal/config"
	"github.com/spf13/cobra"
)

var validateDump bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the Baralga configuration file and report unknown keys.`,
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with changed values highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	unknownKeys, err := config.UnknownKeys(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(os.Stdout, "ℹ️  No configuration file at %s, using defaults\n", configPath)
	case err != nil:
		fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	default:
		fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)
	}

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		_, _ = red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		dumpConfig(cfg, config.Default())
		printBackupStatus(cfg)
		fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	_, _ = cyan.Println("\n[data]")
	dumpField("  directory", cfg.Data.Directory, defaultCfg.Data.Directory, yellow, green)
	dumpField("  file_name", cfg.Data.FileName, defaultCfg.Data.FileName, yellow, green)
	dumpField("  settings_file", cfg.Data.SettingsFile, defaultCfg.Data.SettingsFile, yellow, green)
	dumpField("  lock_file", cfg.Data.LockFile, defaultCfg.Data.LockFile, yellow, green)

	_, _ = cyan.Println("\n[storage]")
	dumpField("  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	dumpField("  project_cache_size", cfg.Storage.ProjectCacheSize, defaultCfg.Storage.ProjectCacheSize, yellow, green)
	_, _ = cyan.Println("  [storage.redis]")
	dumpField("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host, yellow, green)
	dumpField("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port, yellow, green)
	dumpField("    password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password), yellow, green)
	dumpField("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB, yellow, green)
	dumpField("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize, yellow, green)
	dumpField("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns, yellow, green)
	dumpField("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout, yellow, green)
	dumpField("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout, yellow, green)
	dumpField("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout, yellow, green)
	dumpField("    key_prefix", cfg.Storage.Redis.KeyPrefix, defaultCfg.Storage.Redis.KeyPrefix, yellow, green)

	_, _ = cyan.Println("\n[backup]")
	dumpField("  retention", cfg.Backup.Retention, defaultCfg.Backup.Retention, yellow, green)
	dumpField("  schedule", cfg.Backup.Schedule, defaultCfg.Backup.Schedule, yellow, green)
	dumpField("  on_change", cfg.Backup.OnChange, defaultCfg.Backup.OnChange, yellow, green)
	dumpField("  skip_unchanged", cfg.Backup.SkipUnchanged, defaultCfg.Backup.SkipUnchanged, yellow, green)

	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)

	_, _ = cyan.Println("\n[metrics]")
	dumpField("  enabled", cfg.Metrics.Enabled, defaultCfg.Metrics.Enabled, yellow, green)
	dumpField("  address", cfg.Metrics.Address, defaultCfg.Metrics.Address, yellow, green)
}

// printBackupStatus lists existing backups without taking the lock.
func printBackupStatus(cfg *config.Config) {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\n[backups]")

	m := backup.NewManager(nil, backup.Config{DataFile: cfg.DataFile(), Retention: cfg.Backup.Retention}, nil, setupLogger(config.LoggingConfig{Level: "error"}))
	latest, err := m.Latest()
	if err != nil {
		fmt.Println("  latest = (none)")
		return
	}
	fmt.Printf("  latest = %s (%s)\n", latest.Name(), latest.Date.Format("2006-01-02 15:04:05"))
	fmt.Printf("  count  = %d\n", len(m.List()))
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
