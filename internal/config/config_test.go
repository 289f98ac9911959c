package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.False(t, cfg.Compare.Eager)
	assert.False(t, cfg.Compare.CheckWhitespace)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, ".", cfg.Output.ExportDir)
	assert.Equal(t, "10s", cfg.Database.ConnectTimeout)
	assert.Equal(t, "30s", cfg.Database.QueryTimeout)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestTimeoutDurations(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeoutDuration())

	cfg.Database.ConnectTimeout = "1m"
	cfg.Database.QueryTimeout = "90s"
	assert.Equal(t, time.Minute, cfg.Database.ConnectTimeoutDuration())
	assert.Equal(t, 90*time.Second, cfg.Database.QueryTimeoutDuration())

	// Unparseable values fall back to the defaults.
	cfg.Database.ConnectTimeout = "bogus"
	cfg.Database.QueryTimeout = "bogus"
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeoutDuration())
}

func TestLoadConfigFromFile(t *testing.T) {
	// Create temporary config file
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]interface{}{
		"compare": map[string]interface{}{
			"eager": true,
		},
		"output": map[string]interface{}{
			"format":     "json",
			"export_dir": "/custom/exports",
		},
		"database": map[string]interface{}{
			"query_timeout":  "60s",
			"max_open_conns": 8,
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
			"output": "file",
			"file":   "/custom/log/path.log",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)

	err = os.WriteFile(configPath, data, 0600)
	require.NoError(t, err)

	// Test loading
	config := DefaultConfig()
	err = loadConfigFromFile(config, configPath)
	require.NoError(t, err)

	assert.True(t, config.Compare.Eager)
	assert.Equal(t, "json", config.Output.Format)
	assert.Equal(t, "/custom/exports", config.Output.ExportDir)
	assert.Equal(t, "60s", config.Database.QueryTimeout)
	assert.Equal(t, 8, config.Database.MaxOpenConns)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "file", config.Logging.Output)
	assert.Equal(t, "/custom/log/path.log", config.Logging.File)

	// Values the file does not mention keep their defaults.
	assert.Equal(t, "10s", config.Database.ConnectTimeout)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	// Create temporary config file with invalid JSON
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	err := os.WriteFile(configPath, []byte("invalid json"), 0600)
	require.NoError(t, err)

	config := DefaultConfig()
	err = loadConfigFromFile(config, configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	// Point the config path at a file that does not exist so only
	// defaults and environment variables apply.
	t.Setenv("RDBDIFF_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	envVars := map[string]string{
		"RDBDIFF_EAGER":             "true",
		"RDBDIFF_CHECK_WHITESPACE":  "true",
		"RDBDIFF_OUTPUT_FORMAT":     "yaml",
		"RDBDIFF_EXPORT_DIR":        "/env/exports",
		"RDBDIFF_DB_QUERY_TIMEOUT":  "45s",
		"RDBDIFF_DB_MAX_OPEN_CONNS": "16",
		"RDBDIFF_LOG_LEVEL":         "warn",
		"RDBDIFF_LOG_FORMAT":        "json",
		"RDBDIFF_LOG_OUTPUT":        "stdout",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	config, err := LoadConfigWithOverrides(nil)
	require.NoError(t, err)

	assert.True(t, config.Compare.Eager)
	assert.True(t, config.Compare.CheckWhitespace)
	assert.Equal(t, "yaml", config.Output.Format)
	assert.Equal(t, "/env/exports", config.Output.ExportDir)
	assert.Equal(t, "45s", config.Database.QueryTimeout)
	assert.Equal(t, 16, config.Database.MaxOpenConns)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)

	// Untouched values keep their defaults.
	assert.Equal(t, "10s", config.Database.ConnectTimeout)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	fileConfig := map[string]interface{}{
		"logging": map[string]interface{}{
			"level": "debug",
		},
	}

	data, err := json.Marshal(fileConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	t.Setenv("RDBDIFF_CONFIG", configPath)
	t.Setenv("RDBDIFF_LOG_LEVEL", "error")

	config, err := LoadConfigWithOverrides(nil)
	require.NoError(t, err)

	assert.Equal(t, "error", config.Logging.Level)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	overrides := map[string]interface{}{
		"eager":            true,
		"check-whitespace": true,
		"format":           "yaml",
		"output":           "/flag/report.yaml",
		"no-color":         true,
		"export-dir":       "/flag/exports",
		"log-level":        "error",
		"query-timeout":    "2m",
	}

	err := applyFlagOverrides(config, overrides)
	require.NoError(t, err)

	assert.True(t, config.Compare.Eager)
	assert.True(t, config.Compare.CheckWhitespace)
	assert.Equal(t, "yaml", config.Output.Format)
	assert.Equal(t, "/flag/report.yaml", config.Output.File)
	assert.True(t, config.Output.NoColor)
	assert.Equal(t, "/flag/exports", config.Output.ExportDir)
	assert.Equal(t, "error", config.Logging.Level)
	assert.Equal(t, "2m", config.Database.QueryTimeout)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name          string
		modifyConfig  func(*Config)
		expectError   bool
		errorContains string
	}{
		{
			name: "valid config",
			modifyConfig: func(_ *Config) {
				// No modifications - should be valid
			},
			expectError: false,
		},
		{
			name: "invalid log level",
			modifyConfig: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log level",
		},
		{
			name: "invalid log format",
			modifyConfig: func(c *Config) {
				c.Logging.Format = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log format",
		},
		{
			name: "invalid log output",
			modifyConfig: func(c *Config) {
				c.Logging.Output = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log output",
		},
		{
			name: "invalid output format",
			modifyConfig: func(c *Config) {
				c.Output.Format = "csv"
			},
			expectError:   true,
			errorContains: "invalid output format",
		},
		{
			name: "invalid connect timeout",
			modifyConfig: func(c *Config) {
				c.Database.ConnectTimeout = "invalid"
			},
			expectError:   true,
			errorContains: "invalid database connect timeout",
		},
		{
			name: "invalid query timeout",
			modifyConfig: func(c *Config) {
				c.Database.QueryTimeout = "invalid"
			},
			expectError:   true,
			errorContains: "invalid database query timeout",
		},
		{
			name: "invalid max open connections",
			modifyConfig: func(c *Config) {
				c.Database.MaxOpenConns = -1
			},
			expectError:   true,
			errorContains: "database max open connections must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modifyConfig(config)

			err := validateConfig(config)
			if tt.expectError {
				assert.Error(t, err)

				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "absolute path",
			input:    "/absolute/path",
			expected: "/absolute/path",
		},
		{
			name:     "relative path",
			input:    "relative/path",
			expected: "relative/path",
		},
		{
			name:     "home directory only",
			input:    "~",
			expected: os.Getenv("HOME"),
		},
		{
			name:     "home directory with path",
			input:    "~/config/file.json",
			expected: filepath.Join(os.Getenv("HOME"), "config/file.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)

			if tt.expected == os.Getenv("HOME") && tt.expected == "" {
				// Skip test if HOME is not set
				t.Skip("HOME environment variable not set")
			}

			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfigExpandAllPaths(t *testing.T) {
	config := &Config{
		Output: OutputConfig{
			File:      "~/reports/out.json",
			ExportDir: "~/exports",
		},
		Logging: LoggingConfig{
			File: "~/logs/app.log",
		},
	}

	config.ExpandAllPaths()

	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		t.Skip("HOME environment variable not set")
	}

	assert.Equal(t, filepath.Join(homeDir, "reports/out.json"), config.Output.File)
	assert.Equal(t, filepath.Join(homeDir, "exports"), config.Output.ExportDir)
	assert.Equal(t, filepath.Join(homeDir, "logs/app.log"), config.Logging.File)
}

func TestSaveConfig(t *testing.T) {
	// Use a temporary config path to avoid interference with other tests
	tempConfigPath := filepath.Join(t.TempDir(), "test_config.json")
	t.Setenv("RDBDIFF_CONFIG", tempConfigPath)

	config := DefaultConfig()
	config.Output.Format = "yaml"
	config.Logging.Level = "debug"

	err := SaveConfig(config)
	require.NoError(t, err)

	// Verify file was created and contains expected data
	data, err := os.ReadFile(tempConfigPath)
	require.NoError(t, err)

	var loadedConfig Config
	err = json.Unmarshal(data, &loadedConfig)
	require.NoError(t, err)

	assert.Equal(t, config.Output.Format, loadedConfig.Output.Format)
	assert.Equal(t, config.Logging.Level, loadedConfig.Logging.Level)
}

func TestLoadConfigWithOverridesNoFile(t *testing.T) {
	// Point at a config path that does not exist
	tempConfigPath := filepath.Join(t.TempDir(), "test_config.json")
	t.Setenv("RDBDIFF_CONFIG", tempConfigPath)

	config, err := LoadConfigWithOverrides(nil)
	require.NoError(t, err)

	// Should return default config
	defaultConfig := DefaultConfig()
	assert.Equal(t, defaultConfig.Output.Format, config.Output.Format)
	assert.Equal(t, defaultConfig.Logging.Level, config.Logging.Level)
	assert.Equal(t, defaultConfig.Database.QueryTimeout, config.Database.QueryTimeout)
}

func TestLoadConfigWithOverridesFlagBeatsEnv(t *testing.T) {
	tempConfigPath := filepath.Join(t.TempDir(), "test_config.json")
	t.Setenv("RDBDIFF_CONFIG", tempConfigPath)
	t.Setenv("RDBDIFF_LOG_LEVEL", "warn")

	config, err := LoadConfigWithOverrides(map[string]interface{}{
		"log-level": "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
}

func TestMergeConfigs(t *testing.T) {
	target := DefaultConfig()
	source := &Config{
		Output: OutputConfig{
			Format:    "json",
			ExportDir: "/new/exports",
		},
		Logging: LoggingConfig{
			Level: "debug",
		},
	}

	mergeConfigs(target, source)

	assert.Equal(t, "json", target.Output.Format)
	assert.Equal(t, "/new/exports", target.Output.ExportDir)
	assert.Equal(t, "debug", target.Logging.Level)
	// Other values should remain from target
	assert.Equal(t, "30s", target.Database.QueryTimeout)
	assert.Equal(t, "text", target.Logging.Format)
}
