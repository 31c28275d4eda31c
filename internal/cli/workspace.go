package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var interruptCmd = &cobra.Command{
	Use:   "interrupt <project> <slug>",
	Short: "Interrupt a running subagent",
	Long:  `Stop the workspace's current run without destroying the workspace. A no-op if nothing is running.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.Interrupt(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s %s/%s\n", styleSuccess.Render("Interrupted"), args[0], args[1])
		return nil
	},
}

var killCmd = &cobra.Command{
	Use:   "kill <project> <slug>",
	Short: "Kill a subagent and delete its workspace",
	Long:  `Force-stop any running subprocess and delete the workspace, including its worktree and branch.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.Kill(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s %s/%s\n", styleSuccess.Render("Killed"), args[0], args[1])
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <project> <slug>",
	Short: "Archive a workspace",
	Long:  `Move a finished workspace out of the active namespace, keeping its logs and state.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.Archive(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s %s/%s\n", styleSuccess.Render("Archived"), args[0], args[1])
		return nil
	},
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive <project> <slug>",
	Short: "Restore an archived workspace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.Unarchive(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s %s/%s\n", styleSuccess.Render("Restored"), args[0], args[1])
		return nil
	},
}
