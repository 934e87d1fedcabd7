package snapshots

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

// maxNameAttempts bounds the numeric suffixes tried when several snapshots
// are saved within the same second.
const maxNameAttempts = 1000

// Save writes s to a new metrics_YYYYMMDD_HHMMSS.json file and returns its
// path, then deletes files older than the retention. Cleanup problems are
// logged and never fail the save.
func (m *Manager) Save(s activity.Snapshot) (string, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	now := m.now()
	record := activity.PersistedRecord{
		Timestamp: now,
		Metrics:   s.Clone(),
	}
	if record.Metrics.RiskLevel == "" {
		record.Metrics.RiskLevel = activity.RiskUnknown
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot data: %w", err)
	}

	path, err := m.writeUnique(now.Format(fileTimeLayout), data)
	if err != nil {
		return "", err
	}

	if _, err := m.Cleanup(); err != nil {
		m.log.Warnf("snapshot cleanup failed: %v", err)
	}

	return path, nil
}

// writeUnique creates a new file named after stamp, adding a _N suffix if
// another snapshot already claimed that second. The suffix is zero-padded
// so names keep sorting in write order.
func (m *Manager) writeUnique(stamp string, data []byte) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		name := filePrefix + stamp + fileSuffix
		if i > 0 {
			name = fmt.Sprintf("%s%s_%03d%s", filePrefix, stamp, i, fileSuffix)
		}
		path := filepath.Join(m.dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create snapshot file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write snapshot file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to write snapshot file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to write snapshot file: too many snapshots at %s", stamp)
}

// Cleanup removes snapshot files older than the retention and returns how
// many were deleted. Individual delete failures are logged and skipped.
func (m *Manager) Cleanup() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	cutoff := m.now().Add(-m.retention)
	deleted := 0

	for _, entry := range entries {
		if entry.IsDir() || !isSnapshotFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		// Files are written once, so the modification time is the
		// creation time.
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.Warnf("failed to delete snapshot file %s: %v", path, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		m.log.Infof("removed %d expired snapshot files", deleted)
	}
	return deleted, nil
}

func isSnapshotFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
