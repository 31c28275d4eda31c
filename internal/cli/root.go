// Package cli implements the agentfleet CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentfleet",
	Short: "Orchestrate coding agent subprocesses and sessions",
	Long: `Agentfleet spawns coding-assistant CLIs (codex, claude, droid, gemini)
as supervised subprocesses in isolated git worktrees, and manages the
lead-agent sessions and heartbeats that coordinate them.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands (alphabetical)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(heartbeatCmd)
	rootCmd.AddCommand(interruptCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(unarchiveCmd)
	rootCmd.AddCommand(versionCmd)
}
