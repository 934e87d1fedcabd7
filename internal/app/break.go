package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var breakCmd = &cobra.Command{
	Use:   "break",
	Short: "Tell the running monitor you took a break",
	Long: `Reset the continuous-work clock of the running monitor. The break is
also recorded in the archive.`,
	RunE: runBreak,
}

func init() {
	RootCmd.AddCommand(breakCmd)
}

func runBreak(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var resp breakResponse
	if err := newAPIClient(dashboardURL(cfg)).post(commandContext(cmd), "/api/break", &resp); err != nil {
		return fmt.Errorf("failed to record break: %w", err)
	}

	fmt.Printf("✓ Break recorded at %s\n", resp.LastBreak.Local().Format("15:04:05"))
	return nil
}
