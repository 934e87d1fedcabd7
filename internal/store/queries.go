package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

// timeLayout is fixed-width UTC so that text ordering matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Snapshot operations

// InsertSnapshot archives a scored snapshot and returns its row ID.
func (s *Store) InsertSnapshot(snap activity.Snapshot) (int64, error) {
	recs, err := json.Marshal(snap.Recommendations)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	level := snap.RiskLevel
	if level == "" {
		level = activity.RiskUnknown
	}

	query := `
		INSERT INTO snapshots
		(taken_at, day, clicks, keypresses, screen_time, active_app, risk_level, recommendations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		formatTime(snap.TakenAt),
		snap.TakenAt.Local().Format(activity.DateLayout),
		snap.Clicks,
		snap.KeyPresses,
		snap.ScreenTimeMinutes,
		snap.ActiveApp,
		string(level),
		string(recs),
	)
	if err != nil {
		return 0, wrapQueryErr("insert snapshot", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot ID: %w", err)
	}

	return id, nil
}

// ListSnapshots returns archived snapshots taken at or after since, oldest
// first.
func (s *Store) ListSnapshots(since time.Time) ([]activity.Snapshot, error) {
	query := `
		SELECT taken_at, clicks, keypresses, screen_time, active_app, risk_level, recommendations
		FROM snapshots
		WHERE taken_at >= ?
		ORDER BY taken_at ASC, id ASC
	`

	rows, err := s.db.Query(query, formatTime(since))
	if err != nil {
		return nil, wrapQueryErr("list snapshots", err)
	}
	defer rows.Close()

	var snapshots []activity.Snapshot
	for rows.Next() {
		var snap activity.Snapshot
		var takenAt, level string
		var app, recs sql.NullString

		if err := rows.Scan(&takenAt, &snap.Clicks, &snap.KeyPresses, &snap.ScreenTimeMinutes, &app, &level, &recs); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snap.TakenAt, err = parseTime(takenAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse taken_at: %w", err)
		}
		snap.ActiveApp = app.String
		snap.RiskLevel, err = activity.ParseRiskLevel(level)
		if err != nil {
			return nil, err
		}
		if recs.Valid && recs.String != "" {
			if err := json.Unmarshal([]byte(recs.String), &snap.Recommendations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
			}
		}

		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// DailyTotals aggregates archived snapshots per local calendar day for the
// last days days (including today), oldest day first. Totals follow the
// same rules as activity.Summarize.
func (s *Store) DailyTotals(days int, now time.Time) ([]activity.DailySummary, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	firstDay := now.Local().AddDate(0, 0, -(days - 1)).Format(activity.DateLayout)

	query := `
		SELECT day,
		       COUNT(*),
		       SUM(clicks),
		       SUM(keypresses),
		       MAX(screen_time),
		       SUM(CASE WHEN risk_level = 'low' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN risk_level = 'medium' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN risk_level = 'high' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN risk_level = 'unknown' THEN 1 ELSE 0 END)
		FROM snapshots
		WHERE day >= ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.db.Query(query, firstDay)
	if err != nil {
		return nil, wrapQueryErr("aggregate daily totals", err)
	}
	defer rows.Close()

	var summaries []activity.DailySummary
	for rows.Next() {
		var sum activity.DailySummary
		var low, medium, high, unknown int

		if err := rows.Scan(&sum.Date, &sum.Snapshots, &sum.TotalClicks, &sum.TotalKeyPresses,
			&sum.SessionMinutes, &low, &medium, &high, &unknown); err != nil {
			return nil, fmt.Errorf("failed to scan daily totals: %w", err)
		}

		sum.RiskLevels = map[activity.RiskLevel]int{}
		for level, n := range map[activity.RiskLevel]int{
			activity.RiskLow:     low,
			activity.RiskMedium:  medium,
			activity.RiskHigh:    high,
			activity.RiskUnknown: unknown,
		} {
			if n > 0 {
				sum.RiskLevels[level] = n
			}
		}

		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily totals: %w", err)
	}

	return summaries, nil
}

// CountSnapshots returns the number of archived snapshots.
func (s *Store) CountSnapshots() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n); err != nil {
		return 0, wrapQueryErr("count snapshots", err)
	}
	return n, nil
}

// HasSnapshot reports whether a snapshot taken at exactly takenAt is
// archived.
func (s *Store) HasSnapshot(takenAt time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots WHERE taken_at = ?", formatTime(takenAt)).Scan(&n)
	if err != nil {
		return false, wrapQueryErr("look up snapshot", err)
	}
	return n > 0, nil
}

// PruneSnapshots deletes archived snapshots taken before cutoff and returns
// how many rows were removed.
func (s *Store) PruneSnapshots(before time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM snapshots WHERE taken_at < ?", formatTime(before))
	if err != nil {
		return 0, wrapQueryErr("prune snapshots", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get pruned row count: %w", err)
	}
	return n, nil
}

// Break operations

// InsertBreak records an acknowledged break.
func (s *Store) InsertBreak(at time.Time) error {
	if _, err := s.db.Exec("INSERT INTO breaks (taken_at) VALUES (?)", formatTime(at)); err != nil {
		return wrapQueryErr("insert break", err)
	}
	return nil
}

// GetLastBreak returns the most recent acknowledged break, or nil if none
// has been recorded.
func (s *Store) GetLastBreak() (*time.Time, error) {
	var takenAt string
	err := s.db.QueryRow("SELECT taken_at FROM breaks ORDER BY taken_at DESC LIMIT 1").Scan(&takenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapQueryErr("get last break", err)
	}

	t, err := parseTime(takenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse break time: %w", err)
	}
	return &t, nil
}
