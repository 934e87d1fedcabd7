package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/blackwell-systems/burnwatch/internal/config"
	"github.com/blackwell-systems/burnwatch/internal/monitor"
	"github.com/blackwell-systems/burnwatch/internal/output"
	"github.com/blackwell-systems/burnwatch/internal/snapshots"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor state and the current burnout risk",
	Long: `Display whether the monitor is running, the latest snapshot and its risk
factors, and the current recommendations.

When the monitor is not reachable the newest saved snapshot is shown
instead.`,
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := collectStatus(commandContext(cmd), cfg)
	if err != nil {
		return err
	}

	fmt.Print(output.RenderStatus(st))
	return nil
}

// collectStatus asks the running monitor for its state, falling back to
// the newest persisted snapshot.
func collectStatus(ctx context.Context, cfg *config.Config) (output.Status, error) {
	var st output.Status

	pidFile := getDefaultPIDFile(cfg)
	if running, err := monitor.IsDaemonRunning(pidFile); err == nil && running {
		if pid, err := monitor.DaemonPID(pidFile); err == nil {
			st.PID = pid
		}
	}

	client := newAPIClient(dashboardURL(cfg))
	var snap activity.Snapshot
	err := client.get(ctx, "/api/current_metrics", &snap)
	if err == nil {
		st.Running = true
		st.Source = client.base
		st.Snapshot = snap

		var factors factorsResponse
		if err := client.get(ctx, "/api/factors", &factors); err == nil {
			st.Factors = factors.Factors
			st.Thresholds = factors.Thresholds
		}
		var health healthResponse
		if err := client.get(ctx, "/health", &health); err == nil {
			st.MinutesSinceBreak = health.MinutesSinceBreak
		}
		return st, nil
	}
	logrus.Debugf("status: %v", err)

	manager := snapshots.New(getSnapshotDir(cfg), snapshots.Options{})
	rec, ok, err := manager.Latest()
	if err != nil {
		return st, fmt.Errorf("failed to read saved snapshots: %w", err)
	}
	if !ok {
		st.Snapshot = activity.Snapshot{RiskLevel: activity.RiskUnknown}
		st.Source = "no saved snapshots"
		return st, nil
	}

	st.Snapshot = rec.Metrics
	st.Source = fmt.Sprintf("last saved snapshot (%s)", rec.Timestamp.Local().Format("2006-01-02 15:04"))
	return st, nil
}
