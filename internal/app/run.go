package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/burnwatch/internal/activewindow"
	"github.com/blackwell-systems/burnwatch/internal/config"
	"github.com/blackwell-systems/burnwatch/internal/input"
	"github.com/blackwell-systems/burnwatch/internal/monitor"
	"github.com/blackwell-systems/burnwatch/internal/output"
)

// stopTimeout bounds how long `run --stop` waits for the daemon to exit.
const stopTimeout = 10 * time.Second

var (
	runDaemon      bool
	runDaemonChild bool
	runPIDFile     string
	runLogFile     string
	runStop        bool
	runSimulate    bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Monitor activity and serve the dashboard",
		Long: `Start counting mouse clicks and key presses, assess burnout risk every
update interval, and serve the dashboard and API.

Run modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a background process
  • Stop: Stop a running daemon

Input is read from /dev/input/event* on Linux, which needs membership of the
input group. Use --simulate to generate synthetic activity instead.

Snapshots are saved to the data directory every persist interval
(60 seconds by default) and once more on shutdown.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  burnwatch run

  # Run as background daemon
  burnwatch run --daemon

  # Stop running daemon
  burnwatch run --stop

  # Try the dashboard without input permissions
  burnwatch run --simulate`,
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().BoolVar(&runDaemon, "daemon", false, "run as background daemon")
	runCmd.Flags().BoolVar(&runDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	runCmd.Flags().StringVar(&runPIDFile, "pid-file", "", "PID file path (default: <data-dir>/burnwatch.pid)")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "log file path (default: <data-dir>/burnwatch.log)")
	runCmd.Flags().BoolVar(&runStop, "stop", false, "stop running daemon")
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "generate synthetic input instead of reading devices")

	// Hide the internal daemon-child flag from help
	runCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pidFile := runPIDFile
	if pidFile == "" {
		pidFile = getDefaultPIDFile(cfg)
	}
	logFile := runLogFile
	if logFile == "" {
		logFile = getDefaultLogFile(cfg)
	}

	if runStop {
		return stopRunDaemon(pidFile)
	}
	if runDaemon {
		return startRunDaemon(cfg, pidFile, logFile)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	opts := serviceOptions{}
	if runSimulate {
		sim := input.NewSimulated()
		opts.Input = sim
		opts.Lookup = activewindow.Static("Simulator")
		go simulateActivity(ctx, sim)
	}

	svc, err := newService(ctx, cfg, logrus.StandardLogger(), opts)
	if err != nil {
		return err
	}
	defer svc.close()

	if runDaemonChild {
		// stdout and stderr are the log file here.
		return svc.run(ctx, pidFile)
	}

	return runForeground(ctx, svc)
}

func stopRunDaemon(pidFile string) error {
	running, err := monitor.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon").WithTimeout(stopTimeout)
	spinner.Start()
	if err := monitor.StopDaemon(pidFile, stopTimeout); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

func startRunDaemon(cfg *config.Config, pidFile, logFile string) error {
	extra := globalArgs()
	if runSimulate {
		extra = append(extra, "--simulate")
	}
	if runPIDFile != "" {
		extra = append(extra, "--pid-file", absPath(runPIDFile))
	}

	spinner := output.NewSpinner("Starting daemon")
	spinner.Start()
	if err := monitor.StartDaemon(pidFile, logFile, extra...); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nActivity monitor started\n")
	fmt.Printf("  Dashboard: %s\n", dashboardURL(cfg))
	fmt.Printf("  PID file:  %s\n", pidFile)
	fmt.Printf("  Log file:  %s\n", logFile)
	fmt.Printf("\nTo stop: burnwatch run --stop\n")

	return nil
}

func runForeground(ctx context.Context, svc *service) error {
	fmt.Println("Starting activity monitor (press Ctrl+C to stop)...")
	fmt.Printf("Dashboard: %s\n", dashboardURL(svc.cfg))
	fmt.Println()

	if err := svc.run(ctx, ""); err != nil {
		return err
	}

	fmt.Println("Activity monitor stopped")
	return nil
}
