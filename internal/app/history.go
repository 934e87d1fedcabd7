package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/output"
	"github.com/blackwell-systems/burnwatch/internal/snapshots"
)

var (
	historyHours float64
	summaryDate  string

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List saved snapshots",
		Long: `List the snapshots saved to the data directory, newest first.

Snapshot files are kept for BURNWATCH_FILE_RETENTION_DAYS (7 by default).
Use 'burnwatch trend' for older days.`,
		Example: `  # Last 24 hours
  burnwatch history

  # Last 2 hours
  burnwatch history --hours 2`,
		RunE: runHistory,
	}

	summaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Summarize one day of saved snapshots",
		Example: `  # Today
  burnwatch summary

  # A given day
  burnwatch summary --date 2024-03-05`,
		RunE: runSummary,
	}
)

func init() {
	historyCmd.Flags().Float64Var(&historyHours, "hours", 24, "how many hours back to list")
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "day to summarize, YYYY-MM-DD (default: today)")

	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(summaryCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyHours <= 0 {
		return fmt.Errorf("--hours must be positive, got %v", historyHours)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager := snapshots.New(getSnapshotDir(cfg), snapshots.Options{})
	records, err := manager.Load(historyHours)
	if err != nil {
		return fmt.Errorf("failed to load snapshots: %w", err)
	}

	fmt.Print(output.RenderHistoryTable(records))
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	date := summaryDate
	if date == "" {
		date = time.Now().Format(activity.DateLayout)
	}
	if _, err := time.Parse(activity.DateLayout, date); err != nil {
		return fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager := snapshots.New(getSnapshotDir(cfg), snapshots.Options{})
	summary, ok, err := manager.DailySummary(date)
	if err != nil {
		return fmt.Errorf("failed to summarize %s: %w", date, err)
	}
	if !ok {
		fmt.Printf("No data for %s.\n", date)
		return nil
	}

	fmt.Print(output.RenderSummary(summary))
	return nil
}
