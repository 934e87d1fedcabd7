package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/analyzer"
)

const reloadDebounce = 100 * time.Millisecond

// WatchThresholds watches c.ThresholdsFile and calls fn with the merged
// thresholds each time the file changes. Files that fail to parse or
// validate are logged and ignored, leaving the previous thresholds active.
//
// The watch runs until ctx is cancelled. It is a no-op when no thresholds
// file is configured.
func (c *Config) WatchThresholds(ctx context.Context, log logrus.FieldLogger, fn func(analyzer.Thresholds)) error {
	if c.ThresholdsFile == "" {
		return nil
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Editors often replace the file, so watch the directory.
	path := filepath.Clean(c.ThresholdsFile)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	base := *c
	reload := func() {
		next := base
		if err := next.ApplyThresholdsFile(path); err != nil {
			log.WithError(err).Warn("ignoring thresholds file")
			return
		}
		t := next.Thresholds()
		if err := t.Validate(); err != nil {
			log.WithError(err).Warn("ignoring invalid thresholds")
			return
		}
		log.WithFields(logrus.Fields{
			"continuous_work_minutes":  t.ContinuousWorkMinutes,
			"high_click_rate_per_hour": t.HighClickRatePerHour,
			"high_key_rate_per_hour":   t.HighKeyRatePerHour,
		}).Info("thresholds reloaded")
		fn(t)
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("thresholds watcher error")
			}
		}
	}()

	return nil
}
