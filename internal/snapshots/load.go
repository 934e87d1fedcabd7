package snapshots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaURL = "persisted-record.schema.json"

// recordSchema describes a persisted record. Older records lack
// metrics.last_updated and metrics.risk_level, and their timestamps may
// carry no zone offset, so timestamps are checked when decoding.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["timestamp", "metrics"],
  "properties": {
    "timestamp": {"type": "string", "minLength": 1},
    "metrics": {
      "type": "object",
      "required": ["mouse_clicks", "key_presses"],
      "properties": {
        "mouse_clicks": {"type": "integer", "minimum": 0},
        "key_presses": {"type": "integer", "minimum": 0},
        "screen_time": {"type": "number", "minimum": 0},
        "current_app": {"type": ["string", "null"]},
        "last_updated": {"type": ["string", "null"]},
        "risk_level": {"enum": ["low", "medium", "high", "unknown"]},
        "recommendations": {"type": ["array", "null"], "items": {"type": "string"}}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(recordSchemaURL, strings.NewReader(recordSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to add record schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(recordSchemaURL)
	})
	return schema, schemaErr
}

// Load returns the records saved within the last hours, ordered by
// filename. A non-positive hours returns every record on disk. Files that
// cannot be read, fail validation, or fail to parse are logged and skipped.
func (m *Manager) Load(hours float64) ([]activity.PersistedRecord, error) {
	paths, err := m.listFiles()
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if hours > 0 {
		cutoff = m.now().Add(-time.Duration(hours * float64(time.Hour)))
	}

	records := make([]activity.PersistedRecord, 0, len(paths))
	for _, path := range paths {
		rec, err := loadRecordFile(path)
		if err != nil {
			m.log.Warnf("skipping snapshot file %s: %v", filepath.Base(path), err)
			continue
		}
		if !cutoff.IsZero() && rec.Timestamp.Before(cutoff) {
			continue
		}
		records = append(records, *rec)
	}

	return records, nil
}

// DailySummary aggregates every stored record whose local date is date
// (YYYY-MM-DD). It reports false when no record matches.
func (m *Manager) DailySummary(date string) (activity.DailySummary, bool, error) {
	if _, err := time.ParseInLocation(activity.DateLayout, date, time.Local); err != nil {
		return activity.DailySummary{}, false, fmt.Errorf("invalid date %q: %w", date, err)
	}

	records, err := m.Load(0)
	if err != nil {
		return activity.DailySummary{}, false, err
	}

	summary, ok := activity.Summarize(date, records)
	return summary, ok, nil
}

// Latest returns the most recently saved record.
func (m *Manager) Latest() (activity.PersistedRecord, bool, error) {
	records, err := m.Load(0)
	if err != nil {
		return activity.PersistedRecord{}, false, err
	}
	if len(records) == 0 {
		return activity.PersistedRecord{}, false, nil
	}
	return records[len(records)-1], true, nil
}

// listFiles returns the snapshot files in the directory sorted by name.
func (m *Manager) listFiles() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isSnapshotFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(m.dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// loadRecordFile reads, validates, and parses a snapshot JSON file.
func loadRecordFile(path string) (*activity.PersistedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid snapshot record: %w", err)
	}

	var rec activity.PersistedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}

	if rec.Metrics.TakenAt.IsZero() {
		rec.Metrics.TakenAt = rec.Timestamp
	}
	if rec.Metrics.RiskLevel == "" {
		rec.Metrics.RiskLevel = activity.RiskUnknown
	}
	return &rec, nil
}
