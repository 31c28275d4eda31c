package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <project> [slug]",
	Short: "Show workspace status",
	Long:  `Show the derived status of one workspace, or of every workspace under a project.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	if len(args) == 2 {
		info, err := mgr.Status(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("%s/%s  %s\n", args[0], args[1], statusBadge(info.Status))
		fmt.Printf("  %s %s\n", styleLabel.Render("cli:"), string(info.State.CLI))
		fmt.Printf("  %s %s\n", styleLabel.Render("mode:"), string(info.State.RunMode))
		fmt.Printf("  %s %d\n", styleLabel.Render("pid:"), info.State.SupervisorPID)
		fmt.Printf("  %s %s\n", styleLabel.Render("started:"), info.State.StartedAt)
		if info.State.SessionID != nil {
			fmt.Printf("  %s %s\n", styleLabel.Render("session:"), *info.State.SessionID)
		}
		if info.Progress.LastActive != "" {
			fmt.Printf("  %s %s (%d tool calls)\n", styleLabel.Render("activity:"), info.Progress.LastActive, info.Progress.ToolCalls)
		}
		if info.State.LastError != "" {
			fmt.Printf("  %s %s\n", styleLabel.Render("last error:"), styleError.Render(info.State.LastError))
		}
		return nil
	}

	infos, err := mgr.List(args[0])
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Printf("No workspaces under project %s.\n", args[0])
		return nil
	}

	for _, info := range infos {
		line := fmt.Sprintf("  %-24s %-10s %s", info.Slug, statusBadge(info.Status), string(info.State.CLI))
		if info.Progress.ToolCalls > 0 {
			line += styleHint.Render(fmt.Sprintf("  (%d tool calls)", info.Progress.ToolCalls))
		}
		fmt.Println(line)
	}
	return nil
}
