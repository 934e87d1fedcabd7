package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ThresholdsFile is the on-disk threshold override. Unset fields leave the
// environment value in place.
//
//	# thresholds.yaml
//	continuous_work_threshold_minutes: 90
//	high_click_rate_per_hour: 150
type ThresholdsFile struct {
	ContinuousWorkThresholdMinutes *float64 `yaml:"continuous_work_threshold_minutes" toml:"continuous_work_threshold_minutes"`
	HighClickRatePerHour           *float64 `yaml:"high_click_rate_per_hour" toml:"high_click_rate_per_hour"`
	HighKeyRatePerHour             *float64 `yaml:"high_key_rate_per_hour" toml:"high_key_rate_per_hour"`
}

// LoadThresholdsFile decodes a YAML (.yaml, .yml) or TOML (.toml) file.
func LoadThresholdsFile(path string) (*ThresholdsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds file: %w", err)
	}

	tf := &ThresholdsFile{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, tf); err != nil {
			return nil, fmt.Errorf("failed to parse YAML thresholds %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), tf); err != nil {
			return nil, fmt.Errorf("failed to parse TOML thresholds %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported thresholds file format %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}

	return tf, nil
}

func (tf *ThresholdsFile) apply(c *Config) {
	if tf.ContinuousWorkThresholdMinutes != nil {
		c.ContinuousWorkThresholdMinutes = *tf.ContinuousWorkThresholdMinutes
	}
	if tf.HighClickRatePerHour != nil {
		c.HighClickRatePerHour = *tf.HighClickRatePerHour
	}
	if tf.HighKeyRatePerHour != nil {
		c.HighKeyRatePerHour = *tf.HighKeyRatePerHour
	}
}
