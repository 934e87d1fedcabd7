// Package config provides configuration loading for burnwatch.
//
// Settings come from environment variables (optionally seeded from a .env
// file). Risk thresholds may additionally be overridden by a YAML or TOML
// file, which is watched and reloaded while the monitor runs.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/burnwatch/internal/analyzer"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// Pipeline
	UpdateIntervalSeconds  int `env:"BURNWATCH_UPDATE_INTERVAL_SECONDS" envDefault:"5"`
	PersistIntervalSeconds int `env:"BURNWATCH_PERSIST_INTERVAL_SECONDS" envDefault:"60"`
	HistoryRetentionHours  int `env:"BURNWATCH_HISTORY_RETENTION_HOURS" envDefault:"24"`
	FileRetentionDays      int `env:"BURNWATCH_FILE_RETENTION_DAYS" envDefault:"7"`
	ArchiveRetentionDays   int `env:"BURNWATCH_ARCHIVE_RETENTION_DAYS" envDefault:"90"`

	// Risk model
	ContinuousWorkThresholdMinutes float64 `env:"BURNWATCH_CONTINUOUS_WORK_THRESHOLD_MINUTES" envDefault:"120"`
	HighClickRatePerHour           float64 `env:"BURNWATCH_HIGH_CLICK_RATE_PER_HOUR" envDefault:"100"`
	HighKeyRatePerHour             float64 `env:"BURNWATCH_HIGH_KEY_RATE_PER_HOUR" envDefault:"1000"`
	ThresholdsFile                 string  `env:"BURNWATCH_THRESHOLDS_FILE"`

	// Storage
	DataDir string `env:"BURNWATCH_DATA_DIR"`

	// Input
	InputDevices []string `env:"BURNWATCH_INPUT_DEVICES" envSeparator:","`

	// Dashboard
	ListenAddr string `env:"BURNWATCH_LISTEN_ADDR" envDefault:"127.0.0.1:8000"`

	// Redis live state (disabled when RedisAddr is empty)
	RedisAddr       string `env:"BURNWATCH_REDIS_ADDR"`
	RedisPassword   string `env:"BURNWATCH_REDIS_PASSWORD"`
	RedisDB         int    `env:"BURNWATCH_REDIS_DB" envDefault:"0"`
	RedisTTLSeconds int    `env:"BURNWATCH_REDIS_TTL_SECONDS" envDefault:"60"`
	RedisMaxRetries int    `env:"BURNWATCH_REDIS_MAX_RETRIES" envDefault:"5"`

	// Elasticsearch indexing (disabled when ElasticsearchURL is empty)
	ElasticsearchURL   string `env:"BURNWATCH_ELASTICSEARCH_URL"`
	ElasticsearchIndex string `env:"BURNWATCH_ELASTICSEARCH_INDEX" envDefault:"burnwatch-metrics"`

	// Logging
	LogLevel  string `env:"BURNWATCH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"BURNWATCH_LOG_FORMAT" envDefault:"text"`
}

// Thresholds returns the risk thresholds described by c.
func (c *Config) Thresholds() analyzer.Thresholds {
	return analyzer.Thresholds{
		ContinuousWorkMinutes: c.ContinuousWorkThresholdMinutes,
		HighClickRatePerHour:  c.HighClickRatePerHour,
		HighKeyRatePerHour:    c.HighKeyRatePerHour,
	}
}

// UpdateInterval is the aggregation period.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

// PersistInterval is how often the latest snapshot is saved to disk.
func (c *Config) PersistInterval() time.Duration {
	return time.Duration(c.PersistIntervalSeconds) * time.Second
}

// HistoryRetention bounds the in-memory trend window.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionHours) * time.Hour
}

// FileRetention bounds how long snapshot files are kept.
func (c *Config) FileRetention() time.Duration {
	return time.Duration(c.FileRetentionDays) * 24 * time.Hour
}

// RedisTTL is the expiry of the live-state key.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}

// Dir returns the burnwatch config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/burnwatch if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "burnwatch"), nil
}

// DefaultDataDir returns ~/.burnwatch.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".burnwatch"), nil
}
