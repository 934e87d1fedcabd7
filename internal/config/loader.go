package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables. If envFile exists
// it is loaded first; variables already set in the environment win. An
// empty envFile means ".env" in the working directory.
//
// When no thresholds file is configured, thresholds.yaml, thresholds.yml
// or thresholds.toml in the config directory is used if present.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		logrus.Debugf("no env file at %s", envFile)
	} else {
		logrus.Infof("loaded environment variables from %s", envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	if cfg.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfg.DataDir = dir
	}

	if cfg.ThresholdsFile == "" {
		cfg.ThresholdsFile = findThresholdsFile()
	}
	if cfg.ThresholdsFile != "" {
		if err := cfg.ApplyThresholdsFile(cfg.ThresholdsFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// findThresholdsFile returns the first thresholds file present in the
// config directory, or "".
func findThresholdsFile() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"thresholds.yaml", "thresholds.yml", "thresholds.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ApplyThresholdsFile overrides the risk thresholds with the values set in
// path. Fields absent from the file keep their current values.
func (c *Config) ApplyThresholdsFile(path string) error {
	tf, err := LoadThresholdsFile(path)
	if err != nil {
		return err
	}
	tf.apply(c)
	return nil
}

// Validate performs range checks on the configuration.
func (c *Config) Validate() error {
	if c.UpdateIntervalSeconds < 1 {
		return fmt.Errorf("invalid BURNWATCH_UPDATE_INTERVAL_SECONDS: %d (must be >= 1)", c.UpdateIntervalSeconds)
	}
	if c.PersistIntervalSeconds < 1 {
		return fmt.Errorf("invalid BURNWATCH_PERSIST_INTERVAL_SECONDS: %d (must be >= 1)", c.PersistIntervalSeconds)
	}
	if c.HistoryRetentionHours < 1 {
		return fmt.Errorf("invalid BURNWATCH_HISTORY_RETENTION_HOURS: %d (must be >= 1)", c.HistoryRetentionHours)
	}
	if c.FileRetentionDays < 1 {
		return fmt.Errorf("invalid BURNWATCH_FILE_RETENTION_DAYS: %d (must be >= 1)", c.FileRetentionDays)
	}
	if c.ArchiveRetentionDays < 1 {
		return fmt.Errorf("invalid BURNWATCH_ARCHIVE_RETENTION_DAYS: %d (must be >= 1)", c.ArchiveRetentionDays)
	}

	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	if c.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
			return fmt.Errorf("invalid BURNWATCH_LISTEN_ADDR %q: %w", c.ListenAddr, err)
		}
	}
	if c.RedisAddr != "" && c.RedisTTLSeconds < 1 {
		return fmt.Errorf("invalid BURNWATCH_REDIS_TTL_SECONDS: %d (must be >= 1)", c.RedisTTLSeconds)
	}
	if c.RedisMaxRetries < 0 {
		return fmt.Errorf("invalid BURNWATCH_REDIS_MAX_RETRIES: %d (must be >= 0)", c.RedisMaxRetries)
	}
	if c.ElasticsearchURL != "" && c.ElasticsearchIndex == "" {
		return fmt.Errorf("BURNWATCH_ELASTICSEARCH_INDEX is required when BURNWATCH_ELASTICSEARCH_URL is set")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid BURNWATCH_LOG_FORMAT %q (must be text or json)", c.LogFormat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid BURNWATCH_LOG_LEVEL: %w", err)
	}

	return nil
}
