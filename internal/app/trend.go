package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/output"
	"github.com/blackwell-systems/burnwatch/internal/snapshots"
	"github.com/blackwell-systems/burnwatch/internal/store"
)

var (
	trendDays   int
	importHours float64

	trendCmd = &cobra.Command{
		Use:   "trend",
		Short: "Show daily totals from the archive",
		Long: `Show one row per day from the long-term archive with the day's clicks,
key presses, longest session and peak risk, followed by the direction of
daily key presses.`,
		Example: `  # Last week
  burnwatch trend

  # Last 30 days
  burnwatch trend --days 30`,
		RunE: runTrend,
	}

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Copy saved snapshot files into the archive",
		Long: `Copy snapshot files from the data directory into the long-term archive.
Snapshots already archived are skipped, so the command can be run
repeatedly.`,
		RunE: runImport,
	}
)

func init() {
	trendCmd.Flags().IntVar(&trendDays, "days", 7, "number of days to show")
	importCmd.Flags().Float64Var(&importHours, "hours", 0, "only import snapshots from the last N hours (default: all)")

	RootCmd.AddCommand(trendCmd)
	RootCmd.AddCommand(importCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	if trendDays < 1 {
		return fmt.Errorf("--days must be at least 1, got %d", trendDays)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := getDBPath(cfg)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return store.ErrNotInitialized
	}

	archive, err := store.New(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	days, err := archive.DailyTotals(trendDays, time.Now())
	if err != nil {
		return err
	}

	fmt.Print(output.RenderTrendTable(days))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager := snapshots.New(getSnapshotDir(cfg), snapshots.Options{})
	records, err := manager.Load(importHours)
	if err != nil {
		return fmt.Errorf("failed to load snapshots: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No snapshot files to import.")
		return nil
	}

	archive, err := store.New(getDBPath(cfg))
	if err != nil {
		return err
	}
	defer archive.Close()
	if err := archive.CreateSchema(); err != nil {
		return err
	}

	imported, skipped, err := importRecords(archive, records, output.NewProgress(len(records), "Importing snapshots"))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Imported %d snapshot(s), %d already archived\n", imported, skipped)
	return nil
}

// importRecords archives every record not yet in the archive. Records are
// matched by the snapshot's TakenAt.
func importRecords(archive *store.Store, records []activity.PersistedRecord, progress *output.ProgressBar) (imported, skipped int, err error) {
	defer progress.Finish()

	for _, rec := range records {
		snap := rec.Metrics
		if snap.TakenAt.IsZero() {
			snap.TakenAt = rec.Timestamp
		}

		exists, err := archive.HasSnapshot(snap.TakenAt)
		if err != nil {
			return imported, skipped, err
		}
		if exists {
			skipped++
		} else {
			if _, err := archive.InsertSnapshot(snap); err != nil {
				return imported, skipped, err
			}
			imported++
		}
		progress.Increment()
	}

	return imported, skipped, nil
}
