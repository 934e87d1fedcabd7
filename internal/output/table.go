// Package output provides terminal output utilities for burnwatch.
//
// This package includes:
//   - Table rendering for persisted history, daily summaries and multi-day trends
//   - A status block for the current snapshot and its risk factors
//   - Progress bars and spinners for long-running commands
//
// Risk levels are colored green, yellow and red when stdout is a terminal
// and NO_COLOR is unset. Progress indicators are safe for concurrent use.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/analyzer"
)

// ANSI color codes for risk level display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// Status is everything the status command shows about a monitor.
type Status struct {
	Running  bool
	PID      int
	Snapshot activity.Snapshot
	// Factors is nil when the monitor has not scored a snapshot yet or the
	// status came from disk.
	Factors           *analyzer.Factors
	Thresholds        analyzer.Thresholds
	MinutesSinceBreak float64
	// Source names where the snapshot came from, e.g. the dashboard URL or
	// "last saved snapshot".
	Source string
}

// RenderStatus renders the current snapshot, its risk and recommendations.
func RenderStatus(st Status) string {
	var sb strings.Builder

	switch {
	case st.Running && st.PID > 0:
		sb.WriteString(fmt.Sprintf("Monitor:       %s (PID %d)\n", colorize(colorGreen, "running"), st.PID))
	case st.Running:
		sb.WriteString(fmt.Sprintf("Monitor:       %s\n", colorize(colorGreen, "running")))
	default:
		sb.WriteString(fmt.Sprintf("Monitor:       %s\n", colorize(colorGray, "stopped")))
	}
	if st.Source != "" {
		sb.WriteString(fmt.Sprintf("Source:        %s\n", st.Source))
	}

	s := st.Snapshot
	if s.TakenAt.IsZero() {
		sb.WriteString("Updated:       never\n")
	} else {
		sb.WriteString(fmt.Sprintf("Updated:       %s\n", formatRelativeTime(s.TakenAt)))
	}
	sb.WriteString(fmt.Sprintf("Risk:          %s\n", formatRisk(s.RiskLevel)))
	sb.WriteString(fmt.Sprintf("Clicks:        %d\n", s.Clicks))
	sb.WriteString(fmt.Sprintf("Key presses:   %d\n", s.KeyPresses))
	sb.WriteString(fmt.Sprintf("Screen time:   %s\n", formatMinutes(s.ScreenTimeMinutes)))
	sb.WriteString(fmt.Sprintf("Active app:    %s\n", orUnknown(s.ActiveApp)))

	if st.Thresholds.ContinuousWorkMinutes > 0 && st.Running {
		sb.WriteString(fmt.Sprintf("Since break:   %s %s / %s\n",
			meter(st.MinutesSinceBreak, st.Thresholds.ContinuousWorkMinutes, 20),
			formatMinutes(st.MinutesSinceBreak),
			formatMinutes(st.Thresholds.ContinuousWorkMinutes)))
	}

	if st.Factors != nil {
		sb.WriteString("\nFactors\n")
		sb.WriteString(strings.Repeat("─", 32))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%-18s %s\n", "Continuous work", formatRisk(st.Factors.ContinuousWork)))
		sb.WriteString(fmt.Sprintf("%-18s %s\n", "Activity rate", formatRisk(st.Factors.Activity)))
		sb.WriteString(fmt.Sprintf("%-18s %s\n", "Pattern", formatRisk(st.Factors.Pattern)))
	}

	if len(s.Recommendations) > 0 {
		sb.WriteString("\nRecommendations\n")
		for _, rec := range s.Recommendations {
			sb.WriteString(fmt.Sprintf("  • %s\n", rec))
		}
	}

	return sb.String()
}

// RenderHistoryTable renders persisted snapshots, newest first.
func RenderHistoryTable(records []activity.PersistedRecord) string {
	if len(records) == 0 {
		return "No snapshots found.\n"
	}

	sorted := make([]activity.PersistedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-17s %-8s %-8s %-9s %-20s %s\n",
		"Saved", "Clicks", "Keys", "Screen", "Active App", "Risk"))
	sb.WriteString(strings.Repeat("─", 74))
	sb.WriteString("\n")

	for _, rec := range sorted {
		m := rec.Metrics
		sb.WriteString(fmt.Sprintf("%-17s %-8d %-8d %-9s %-20s %s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			m.Clicks,
			m.KeyPresses,
			formatMinutes(m.ScreenTimeMinutes),
			truncate(orUnknown(m.ActiveApp), 20),
			formatRisk(m.RiskLevel)))
	}

	return sb.String()
}

// RenderSummary renders one day's aggregate.
func RenderSummary(s activity.DailySummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Summary for %s\n", s.Date))
	sb.WriteString(strings.Repeat("─", 32))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-18s %d\n", "Snapshots", s.Snapshots))
	sb.WriteString(fmt.Sprintf("%-18s %d\n", "Clicks", s.TotalClicks))
	sb.WriteString(fmt.Sprintf("%-18s %d\n", "Key presses", s.TotalKeyPresses))
	sb.WriteString(fmt.Sprintf("%-18s %s\n", "Longest session", formatMinutes(s.SessionMinutes)))
	sb.WriteString(fmt.Sprintf("%-18s %s\n", "Risk", formatRiskCounts(s.RiskLevels)))

	return sb.String()
}

// RenderTrendTable renders one row per day, oldest first, followed by the
// direction of daily key presses.
func RenderTrendTable(days []activity.DailySummary) string {
	if len(days) == 0 {
		return "No archived snapshots found.\n"
	}

	sorted := make([]activity.DailySummary, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-12s %-10s %-10s %-10s %-6s %s\n",
		"Date", "Clicks", "Keys", "Session", "Snaps", "Peak Risk"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	keys := make([]float64, 0, len(sorted))
	for _, d := range sorted {
		keys = append(keys, float64(d.TotalKeyPresses))
		sb.WriteString(fmt.Sprintf("%-12s %-10d %-10d %-10s %-6d %s\n",
			d.Date,
			d.TotalClicks,
			d.TotalKeyPresses,
			formatMinutes(d.SessionMinutes),
			d.Snapshots,
			formatRisk(peakRisk(d.RiskLevels))))
	}

	if slope, err := analyzer.Slope(keys); err == nil {
		sb.WriteString(fmt.Sprintf("\nKey presses per day: %s\n", formatTrend(slope)))
	}

	return sb.String()
}

// formatRisk returns the colored, upper-cased level name.
func formatRisk(level activity.RiskLevel) string {
	if level == "" {
		level = activity.RiskUnknown
	}
	return colorize(riskColor(level), strings.ToUpper(string(level)))
}

// riskColor returns the ANSI color code for a risk level.
func riskColor(level activity.RiskLevel) string {
	switch level {
	case activity.RiskLow:
		return colorGreen
	case activity.RiskMedium:
		return colorYellow
	case activity.RiskHigh:
		return colorRed
	default:
		return colorGray
	}
}

// formatRiskCounts lists non-zero level counts, highest level first.
// Example: "high 2 · medium 5 · low 40"
func formatRiskCounts(counts map[activity.RiskLevel]int) string {
	levels := activity.RiskLevels()
	var parts []string
	for i := len(levels) - 1; i >= 0; i-- {
		if n := counts[levels[i]]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", colorize(riskColor(levels[i]), string(levels[i])), n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " · ")
}

// peakRisk is the highest level seen at least once.
func peakRisk(counts map[activity.RiskLevel]int) activity.RiskLevel {
	peak := activity.RiskUnknown
	for level, n := range counts {
		if n > 0 && level.Score() > peak.Score() {
			peak = level
		}
	}
	return peak
}

// formatTrend returns an arrow for the sign of a fitted slope.
func formatTrend(slope float64) string {
	switch {
	case slope > 0:
		return "↑ rising"
	case slope < 0:
		return "↓ falling"
	default:
		return "→ steady"
	}
}

// formatMinutes renders minutes as "1h 05m".
func formatMinutes(minutes float64) string {
	if minutes < 0 {
		minutes = 0
	}
	total := int(minutes)
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

// meter draws a fixed-width bar of value against limit, capped at full.
func meter(value, limit float64, width int) string {
	filled := 0
	if limit > 0 {
		filled = int(value / limit * float64(width))
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := "[" + strings.Repeat("#", filled) + strings.Repeat(" ", width-filled) + "]"
	if value >= limit {
		return colorize(colorRed, bar)
	}
	return bar
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 hours ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	default:
		return plural(int(diff.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func orUnknown(app string) string {
	if strings.TrimSpace(app) == "" {
		return activity.UnknownApp
	}
	return app
}

// truncate truncates a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
