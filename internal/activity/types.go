// Package activity defines the metrics records shared by the burnwatch
// pipeline and the counter that input callbacks feed.
package activity

import (
	"fmt"
	"time"
)

// RiskLevel is the burnout risk classification attached to a snapshot.
type RiskLevel string

const (
	RiskUnknown RiskLevel = "unknown"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

// UnknownApp is reported when the active window cannot be resolved.
const UnknownApp = "Unknown"

// Score maps a level onto the scale used for averaging factors:
// unknown=0, low=1, medium=2, high=3.
func (r RiskLevel) Score() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// ParseRiskLevel converts a stored level name back into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskUnknown, RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), nil
	}
	return RiskUnknown, fmt.Errorf("invalid risk level %q", s)
}

// RiskLevels lists every level in ascending score order.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskUnknown, RiskLow, RiskMedium, RiskHigh}
}

// Counts is a point-in-time read of the event counter. Clicks and
// KeyPresses always describe the same instant.
type Counts struct {
	Clicks         int64
	KeyPresses     int64
	ElapsedMinutes float64
}

// Snapshot is one aggregated metrics record. Snapshots are values: once
// built they are superseded, never modified.
type Snapshot struct {
	Clicks            int64     `json:"mouse_clicks"`
	KeyPresses        int64     `json:"key_presses"`
	ScreenTimeMinutes float64   `json:"screen_time"`
	ActiveApp         string    `json:"current_app"`
	TakenAt           time.Time `json:"last_updated"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Recommendations   []string  `json:"recommendations"`
}

// Assessment is the output of the risk engine for one snapshot.
type Assessment struct {
	RiskLevel       RiskLevel `json:"risk_level"`
	Recommendations []string  `json:"recommendations"`
}

// WithAssessment returns a copy of s carrying the given assessment.
func (s Snapshot) WithAssessment(a Assessment) Snapshot {
	out := s
	out.RiskLevel = a.RiskLevel
	out.Recommendations = append([]string(nil), a.Recommendations...)
	return out
}

// Clone returns a copy of s that shares no memory with it.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Recommendations != nil {
		out.Recommendations = append([]string(nil), s.Recommendations...)
	}
	return out
}

// PersistedRecord is the on-disk form of a saved snapshot.
type PersistedRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   Snapshot  `json:"metrics"`
}

// DailySummary aggregates the persisted snapshots of one calendar day.
// SessionMinutes is the largest screen time seen that day.
type DailySummary struct {
	Date            string            `json:"date"`
	TotalClicks     int64             `json:"total_clicks"`
	TotalKeyPresses int64             `json:"total_keypresses"`
	SessionMinutes  float64           `json:"session_minutes"`
	Snapshots       int               `json:"snapshots"`
	RiskLevels      map[RiskLevel]int `json:"risk_levels"`
}

// Summarize folds records into a DailySummary for date. It reports false
// when no record matches.
func Summarize(date string, records []PersistedRecord) (DailySummary, bool) {
	summary := DailySummary{
		Date:       date,
		RiskLevels: make(map[RiskLevel]int),
	}
	for _, rec := range records {
		if rec.Timestamp.Local().Format(DateLayout) != date {
			continue
		}
		m := rec.Metrics
		summary.Snapshots++
		summary.TotalClicks += m.Clicks
		summary.TotalKeyPresses += m.KeyPresses
		if m.ScreenTimeMinutes > summary.SessionMinutes {
			summary.SessionMinutes = m.ScreenTimeMinutes
		}
		level := m.RiskLevel
		if level == "" {
			level = RiskUnknown
		}
		summary.RiskLevels[level]++
	}
	if summary.Snapshots == 0 {
		return DailySummary{}, false
	}
	return summary, true
}

// DateLayout is the calendar date format used by summaries.
const DateLayout = "2006-01-02"
