package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentfleet-io/agentfleet/internal/daemon/spool"
	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/subagent"
)

// spawnAwaitTimeout bounds how long the CLI waits for the daemon to
// answer a spawn request; worktree creation on a large repository can
// take a while.
const spawnAwaitTimeout = 30 * time.Second

var (
	spawnCLI    string
	spawnPrompt string
	spawnMode   string
	spawnBase   string
	spawnResume bool
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <project> <slug>",
	Short: "Spawn a subagent in a workspace",
	Long: `Spawn a coding-assistant subprocess in the workspace identified by
project and slug. Worktree mode (the default) gives the run its own
branch and git worktree; main mode runs directly in the project
checkout; none mode uses a bare scratch directory.

The subprocess is spawned and supervised by the daemon, so it keeps
running after this command returns. The daemon is started if needed.`,
	Args: cobra.ExactArgs(2),
	RunE: runSpawn,
}

func init() {
	spawnCmd.Flags().StringVarP(&spawnCLI, "cli", "c", "claude", "subagent CLI: codex, claude, droid, or gemini")
	spawnCmd.Flags().StringVarP(&spawnPrompt, "prompt", "p", "", "prompt for the subagent (required)")
	spawnCmd.Flags().StringVarP(&spawnMode, "mode", "m", "worktree", "run mode: worktree, main-run, or none")
	spawnCmd.Flags().StringVar(&spawnBase, "base", "", "base branch for worktree mode (default: project default branch)")
	spawnCmd.Flags().BoolVar(&spawnResume, "resume", false, "resume the workspace's recorded tool session")
	_ = spawnCmd.MarkFlagRequired("prompt")
}

func runSpawn(cmd *cobra.Command, args []string) error {
	if err := EnsureDaemon(); err != nil {
		return err
	}

	id, err := spool.Submit(subagent.SpawnOptions{
		ProjectID: args[0],
		Slug:      args[1],
		CLI:       models.CLI(spawnCLI),
		Prompt:    spawnPrompt,
		RunMode:   models.RunMode(spawnMode),
		BaseRef:   spawnBase,
		Resume:    spawnResume,
	})
	if err != nil {
		return err
	}

	resp, err := spool.Await(id, spawnAwaitTimeout)
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	info := resp.Info
	if info == nil {
		return fmt.Errorf("daemon returned no workspace info for %s/%s", args[0], args[1])
	}

	fmt.Printf("%s %s/%s\n", styleSuccess.Render("Spawned"), args[0], args[1])
	fmt.Printf("  %s %s\n", styleLabel.Render("cli:"), styleValue.Render(string(info.State.CLI)))
	fmt.Printf("  %s %d\n", styleLabel.Render("pid:"), info.State.SupervisorPID)
	if info.State.WorktreePath != "" {
		fmt.Printf("  %s %s\n", styleLabel.Render("worktree:"), info.State.WorktreePath)
	}
	fmt.Println(styleHint.Render(fmt.Sprintf("Follow output with: agentfleet logs %s %s --follow", args[0], args[1])))
	return nil
}
