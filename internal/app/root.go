package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/burnwatch/internal/config"
)

var (
	dataDirFlag   string
	dbPath        string
	configPath    string
	logLevelFlag  string
	logFormatFlag string

	// RootCmd is the root command for burnwatch
	RootCmd = &cobra.Command{
		Use:   "burnwatch",
		Short: "Track keyboard and mouse activity and warn before burnout",
		Long: `burnwatch counts mouse clicks and key presses, notes the active
application, and turns that activity into a low, medium or high burnout
risk with recommendations. Key codes are never recorded.

Start the monitor with 'burnwatch run' (or 'burnwatch run --daemon') and
open the dashboard at http://127.0.0.1:8000.

Examples:
  # Run the monitor in the foreground
  burnwatch run

  # Run in the background
  burnwatch run --daemon

  # Show the current risk
  burnwatch status

  # Tell the monitor you took a break
  burnwatch break

  # Review today
  burnwatch summary`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("burnwatch: activity tracking and burnout risk")
			fmt.Println()
			fmt.Println("Run 'burnwatch run' to start monitoring.")
			fmt.Println("Run 'burnwatch --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default: $BURNWATCH_DATA_DIR or ~/.burnwatch)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "archive database path (default: <data-dir>/burnwatch.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "env file, or a .yaml/.yml/.toml thresholds file")
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error (default: $BURNWATCH_LOG_LEVEL or info)")
	RootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "log format: text or json (default: $BURNWATCH_LOG_FORMAT or text)")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig resolves the configuration from the environment and the
// global flags, configures logging and makes sure the data directory
// exists.
func loadConfig() (*config.Config, error) {
	var envFile, thresholdsFile string
	if isThresholdsFile(configPath) {
		thresholdsFile = configPath
	} else {
		envFile = configPath
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	if thresholdsFile != "" {
		cfg.ThresholdsFile = thresholdsFile
		if err := cfg.ApplyThresholdsFile(thresholdsFile); err != nil {
			return nil, err
		}
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.LogFormat = logFormatFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging(logrus.StandardLogger(), cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func isThresholdsFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// configureLogging applies the validated level and format to log.
func configureLogging(log *logrus.Logger, cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// getDBPath returns the archive path, using the flag value or the data
// directory.
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return filepath.Join(cfg.DataDir, "burnwatch.db")
}

// getSnapshotDir returns the directory holding persisted snapshot files.
func getSnapshotDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "snapshots")
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "burnwatch.pid")
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "burnwatch.log")
}

// dashboardURL returns the base URL of the monitor's dashboard.
func dashboardURL(cfg *config.Config) string {
	return "http://" + cfg.ListenAddr
}

// globalArgs returns the global flags set on this invocation so a daemon
// child resolves the same configuration.
func globalArgs() []string {
	var args []string
	add := func(name, value string) {
		if value != "" {
			args = append(args, "--"+name, value)
		}
	}
	add("data-dir", absPath(dataDirFlag))
	add("db", absPath(dbPath))
	add("config", absPath(configPath))
	add("log-level", logLevelFlag)
	add("log-format", logFormatFlag)
	return args
}

// absPath makes a relative path absolute against the working directory.
// Empty paths stay empty.
func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// commandContext returns the command's context, or a background context
// when the command was invoked directly rather than through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
