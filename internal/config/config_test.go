package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/burnwatch/internal/analyzer"
)

// isolate points HOME and XDG_CONFIG_HOME at temp dirs so Load never sees
// the developer's real files.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.UpdateIntervalSeconds)
	assert.Equal(t, 60, cfg.PersistIntervalSeconds)
	assert.Equal(t, 24, cfg.HistoryRetentionHours)
	assert.Equal(t, 7, cfg.FileRetentionDays)
	assert.Equal(t, 90, cfg.ArchiveRetentionDays)
	assert.Equal(t, "127.0.0.1:8000", cfg.ListenAddr)
	assert.Equal(t, "burnwatch-metrics", cfg.ElasticsearchIndex)
	assert.Equal(t, filepath.Join(home, ".burnwatch"), cfg.DataDir)
	assert.Equal(t, analyzer.DefaultThresholds(), cfg.Thresholds())
	assert.Equal(t, 5*time.Second, cfg.UpdateInterval())
	assert.Equal(t, 7*24*time.Hour, cfg.FileRetention())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvFile(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "BURNWATCH_UPDATE_INTERVAL_SECONDS=10\nBURNWATCH_INPUT_DEVICES=/dev/input/event3,/dev/input/event5\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	// godotenv never overrides variables that are already set, so make sure
	// these are unset and restored afterwards.
	t.Setenv("BURNWATCH_UPDATE_INTERVAL_SECONDS", "")
	os.Unsetenv("BURNWATCH_UPDATE_INTERVAL_SECONDS")
	t.Setenv("BURNWATCH_INPUT_DEVICES", "")
	os.Unsetenv("BURNWATCH_INPUT_DEVICES")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.UpdateIntervalSeconds)
	assert.Equal(t, []string{"/dev/input/event3", "/dev/input/event5"}, cfg.InputDevices)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("BURNWATCH_HIGH_CLICK_RATE_PER_HOUR", "250")
	t.Setenv("BURNWATCH_LISTEN_ADDR", "0.0.0.0:9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 250.0, cfg.HighClickRatePerHour)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
}

func TestLoad_InvalidNumber(t *testing.T) {
	isolate(t)
	t.Setenv("BURNWATCH_UPDATE_INTERVAL_SECONDS", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoad_DiscoversThresholdsFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "burnwatch")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thresholds.toml"), []byte("high_key_rate_per_hour = 2000\n"), 0644))

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "thresholds.toml"), cfg.ThresholdsFile)
	assert.Equal(t, 2000.0, cfg.HighKeyRatePerHour)
	assert.Equal(t, 120.0, cfg.ContinuousWorkThresholdMinutes)
}

func validConfig() *Config {
	return &Config{
		UpdateIntervalSeconds:          5,
		PersistIntervalSeconds:         60,
		HistoryRetentionHours:          24,
		FileRetentionDays:              7,
		ArchiveRetentionDays:           90,
		ContinuousWorkThresholdMinutes: 120,
		HighClickRatePerHour:           100,
		HighKeyRatePerHour:             1000,
		ListenAddr:                     "127.0.0.1:8000",
		RedisTTLSeconds:                60,
		ElasticsearchIndex:             "burnwatch-metrics",
		LogLevel:                       "info",
		LogFormat:                      "text",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero update interval", func(c *Config) { c.UpdateIntervalSeconds = 0 }},
		{"zero persist interval", func(c *Config) { c.PersistIntervalSeconds = 0 }},
		{"zero history retention", func(c *Config) { c.HistoryRetentionHours = 0 }},
		{"zero file retention", func(c *Config) { c.FileRetentionDays = 0 }},
		{"zero archive retention", func(c *Config) { c.ArchiveRetentionDays = 0 }},
		{"negative threshold", func(c *Config) { c.HighKeyRatePerHour = -1 }},
		{"bad listen addr", func(c *Config) { c.ListenAddr = "localhost" }},
		{"redis without ttl", func(c *Config) { c.RedisAddr = "localhost:6379"; c.RedisTTLSeconds = 0 }},
		{"negative redis retries", func(c *Config) { c.RedisMaxRetries = -1 }},
		{"elastic without index", func(c *Config) { c.ElasticsearchURL = "http://localhost:9200"; c.ElasticsearchIndex = "" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected error for %s, got nil", tt.name)
			}
		})
	}
}

func TestLoadThresholdsFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("continuous_work_threshold_minutes: 90\n"), 0644))

	c := validConfig()
	require.NoError(t, c.ApplyThresholdsFile(yamlPath))
	assert.Equal(t, 90.0, c.ContinuousWorkThresholdMinutes)
	assert.Equal(t, 100.0, c.HighClickRatePerHour, "unset fields keep their value")

	tomlPath := filepath.Join(dir, "thresholds.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("high_click_rate_per_hour = 150.5\n"), 0644))
	require.NoError(t, c.ApplyThresholdsFile(tomlPath))
	assert.Equal(t, 150.5, c.HighClickRatePerHour)
	assert.Equal(t, 90.0, c.ContinuousWorkThresholdMinutes)

	jsonPath := filepath.Join(dir, "thresholds.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0644))
	assert.Error(t, c.ApplyThresholdsFile(jsonPath))

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("high_key_rate_per_hour: [\n"), 0644))
	assert.Error(t, c.ApplyThresholdsFile(badPath))

	assert.Error(t, c.ApplyThresholdsFile(filepath.Join(dir, "absent.yaml")))
}

func TestWatchThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("high_click_rate_per_hour: 100\n"), 0644))

	c := validConfig()
	c.ThresholdsFile = path

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, _ := logtest.NewNullLogger()
	updates := make(chan analyzer.Thresholds, 4)
	require.NoError(t, c.WatchThresholds(ctx, log, func(th analyzer.Thresholds) { updates <- th }))

	// An invalid file is ignored.
	require.NoError(t, os.WriteFile(path, []byte("high_click_rate_per_hour: -5\n"), 0644))
	time.Sleep(300 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("high_click_rate_per_hour: 300\n"), 0644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case th := <-updates:
			require.Positive(t, th.HighClickRatePerHour, "invalid thresholds must never be delivered")
			if th.HighClickRatePerHour != 300 {
				continue
			}
			assert.Equal(t, 120.0, th.ContinuousWorkMinutes)
			return
		case <-timeout:
			t.Fatal("timed out waiting for thresholds reload")
		}
	}
}

func TestWatchThresholds_NoFile(t *testing.T) {
	c := validConfig()
	called := false
	err := c.WatchThresholds(context.Background(), nil, func(analyzer.Thresholds) { called = true })
	assert.NoError(t, err)
	assert.False(t, called)
}
