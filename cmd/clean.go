package cmd

import (
	"github.com/spf13/cobra"

	"consilium/internal/workspace"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove orphaned session workspaces",
	Long: `Scan the system temp directory for consilium session workspaces whose
owning process is gone and remove them.

A session normally removes its own workspace on completion; a hard kill can
leave one behind. Workspaces of still-running sessions and retained
workspaces being inspected by a live process are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanRun()
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func cleanRun() error {
	if dryRun {
		orphans, err := workspace.Orphans()
		if err != nil {
			return err
		}
		if len(orphans) == 0 {
			ui.Info("No orphaned workspaces")
			return nil
		}
		for _, dir := range orphans {
			ui.DryRunMsg("Would remove %s", dir)
		}
		return nil
	}

	removed, err := workspace.Sweep()
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		ui.Info("No orphaned workspaces")
		return nil
	}
	for _, dir := range removed {
		ui.VerboseLog("Removed %s", dir)
	}
	ui.Success("Removed %d orphaned workspace(s)", len(removed))
	return nil
}
