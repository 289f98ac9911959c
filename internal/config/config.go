package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration. The RDBDIFF_ prefix for
// environment overrides is supplied once, in LoadConfigWithOverrides.
type Config struct {
	Compare  CompareConfig  `json:"compare"`
	Output   OutputConfig   `json:"output"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
}

// CompareConfig controls how schema differences are collected
type CompareConfig struct {
	Eager           bool `json:"eager"            env:"EAGER"`            // keep checking a table or routine after its first difference
	CheckWhitespace bool `json:"check_whitespace" env:"CHECK_WHITESPACE"` // treat whitespace runs in routine definitions as significant
}

// OutputConfig controls how the comparison report is rendered
type OutputConfig struct {
	Format    string `json:"format"     env:"OUTPUT_FORMAT"` // table, json, yaml
	File      string `json:"file"       env:"OUTPUT_FILE"`   // write report here instead of stdout
	NoColor   bool   `json:"no_color"   env:"NO_COLOR"`
	ExportDir string `json:"export_dir" env:"EXPORT_DIR"` // destination for exported CREATE statements
}

// DatabaseConfig controls live database connections
type DatabaseConfig struct {
	ConnectTimeout string `json:"connect_timeout" env:"DB_CONNECT_TIMEOUT"`
	QueryTimeout   string `json:"query_timeout"   env:"DB_QUERY_TIMEOUT"`
	MaxOpenConns   int    `json:"max_open_conns"  env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns   int    `json:"max_idle_conns"  env:"DB_MAX_IDLE_CONNS"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"`  // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT"` // text, json
	Output string `json:"output" env:"LOG_OUTPUT"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"`   // log file path when output is file
}

// DefaultConfig returns the built-in configuration defaults. Reports go to
// stdout, so logging defaults to stderr to keep the two streams separate.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format:    "table",
			ExportDir: ".",
		},
		Database: DatabaseConfig{
			ConnectTimeout: "10s",
			QueryTimeout:   "30s",
			MaxOpenConns:   4,
			MaxIdleConns:   2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File:   "~/.config/rdbdiff/logs/rdbdiff.log",
		},
	}
}

// ConnectTimeoutDuration returns the parsed connection timeout.
func (d DatabaseConfig) ConnectTimeoutDuration() time.Duration {
	dur, err := time.ParseDuration(d.ConnectTimeout)
	if err != nil {
		return 10 * time.Second
	}

	return dur
}

// QueryTimeoutDuration returns the parsed per-query timeout.
func (d DatabaseConfig) QueryTimeoutDuration() time.Duration {
	dur, err := time.ParseDuration(d.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return dur
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag
// overrides. Later sources win: built-in defaults, then the config file, then
// RDBDIFF_* environment variables, then flags.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := DefaultConfig()

	// Load from config file if it exists
	configPath := GetConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "RDBDIFF_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.ExpandAllPaths()

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into a temporary struct to merge with defaults
	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Merge file config with defaults
	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "eager":
			if b, ok := value.(bool); ok {
				config.Compare.Eager = b
			}
		case "check-whitespace":
			if b, ok := value.(bool); ok {
				config.Compare.CheckWhitespace = b
			}
		case "format":
			if str, ok := value.(string); ok && str != "" {
				config.Output.Format = str
			}
		case "output":
			if str, ok := value.(string); ok && str != "" {
				config.Output.File = str
			}
		case "no-color":
			if b, ok := value.(bool); ok {
				config.Output.NoColor = b
			}
		case "export-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Output.ExportDir = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "query-timeout":
			if str, ok := value.(string); ok && str != "" {
				config.Database.QueryTimeout = str
			}
		}
	}

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := 0; i < s.NumField(); i++ {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	// Validate log format
	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	// Validate log output
	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	// Validate report format
	validFormats := map[string]bool{
		"table": true, "json": true, "yaml": true,
	}
	if !validFormats[strings.ToLower(config.Output.Format)] {
		return fmt.Errorf(
			"invalid output format: %s (must be table, json, or yaml)",
			config.Output.Format,
		)
	}

	// Validate timeout durations
	if _, err := time.ParseDuration(config.Database.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid database connect timeout: %s", config.Database.ConnectTimeout)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	// Validate numeric values
	if config.Database.MaxOpenConns <= 0 {
		return fmt.Errorf(
			"database max open connections must be positive: %d",
			config.Database.MaxOpenConns,
		)
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := GetConfigPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the configuration file, honoring the
// RDBDIFF_CONFIG override
func GetConfigPath() string {
	// Check for custom config path from environment
	if configPath := os.Getenv("RDBDIFF_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "rdbdiff", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Output.File = expandPath(c.Output.File)
	c.Output.ExportDir = expandPath(c.Output.ExportDir)
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/rdbdiff"
	}

	return filepath.Join(homeDir, ".config", "rdbdiff")
}

// GetLogDir returns the log directory
func GetLogDir() string {
	return filepath.Join(GetConfigDir(), "logs")
}
